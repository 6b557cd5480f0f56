package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"duty-roster/internal/dto"
	"duty-roster/internal/model"
	"duty-roster/internal/repository"
	"duty-roster/internal/rotation"
	"duty-roster/pkg/database"
	pkgerrors "duty-roster/pkg/errors"
)

// PatternService 倒班公式与班组（Pattern Store）
type PatternService interface {
	// GetGroups 去重后的班组，按 group_number 升序
	GetGroups(ctx context.Context, formulaID string) ([]model.FormulaGroup, error)
	// MaxGroup 去重后的最大班组号；没有班组时返回 ErrNoPatterns
	MaxGroup(ctx context.Context, formulaID string) (int, error)
	// CleanDuplicates 删除重复班组，只保留 group_id 最小的一行
	CleanDuplicates(ctx context.Context, formulaID string) (int, error)
	// Rotations 批量构建轮转表；不存在的公式不出现在结果中
	Rotations(ctx context.Context, formulaIDs []string) (map[string]rotation.Rotation, error)

	CreateFormula(ctx context.Context, req *dto.CreateFormulaRequest, callerID string) (*dto.FormulaResponse, error)
	UpdateFormula(ctx context.Context, id string, req *dto.UpdateFormulaRequest, callerID string) (*dto.FormulaResponse, error)
	GetFormula(ctx context.Context, id string) (*dto.FormulaResponse, error)
	ListFormulas(ctx context.Context) ([]dto.FormulaResponse, error)
	DeleteFormula(ctx context.Context, id, callerID string) error
}

type patternService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPatternService 创建 PatternService 实例
func NewPatternService(repo *repository.Repository, logger *zap.Logger) PatternService {
	return &patternService{repo: repo, logger: logger}
}

// DedupGroups 同一 group_number 出现多次时保留 group_id 最小的一行。
// 返回按 group_number 升序的保留行，以及应删除的 group_id。
func DedupGroups(raw []model.FormulaGroup) (kept []model.FormulaGroup, duplicates []int64) {
	rows := make([]model.FormulaGroup, len(raw))
	copy(rows, raw)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].GroupID < rows[j].GroupID })

	seen := make(map[int]bool, len(rows))
	for _, g := range rows {
		if seen[g.GroupNumber] {
			duplicates = append(duplicates, g.GroupID)
			continue
		}
		seen[g.GroupNumber] = true
		kept = append(kept, g)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].GroupNumber < kept[j].GroupNumber })
	return kept, duplicates
}

// RotationFromGroups 由去重后的班组构建轮转表
func RotationFromGroups(groups []model.FormulaGroup) rotation.Rotation {
	m := make(map[int]string, len(groups))
	for _, g := range groups {
		m[g.GroupNumber] = strings.ToUpper(g.Pattern)
	}
	return rotation.NewRotation(m)
}

// ════════════════════════════════════════════════════════════
// 班组查询与清理
// ════════════════════════════════════════════════════════════

func (s *patternService) GetGroups(ctx context.Context, formulaID string) ([]model.FormulaGroup, error) {
	raw, err := s.repo.FormulaGroup.ListRawByFormula(ctx, formulaID)
	if err != nil {
		s.logger.Error("查询班组失败", zap.String("formula_id", formulaID), zap.Error(err))
		return nil, err
	}
	kept, dups := DedupGroups(raw)
	if len(dups) > 0 {
		s.logger.Debug("公式存在重复班组", zap.String("formula_id", formulaID), zap.Int("duplicates", len(dups)))
	}
	return kept, nil
}

func (s *patternService) MaxGroup(ctx context.Context, formulaID string) (int, error) {
	groups, err := s.GetGroups(ctx, formulaID)
	if err != nil {
		return 0, err
	}
	if len(groups) == 0 {
		return 0, pkgerrors.ErrNoPatterns
	}
	return groups[len(groups)-1].GroupNumber, nil
}

func (s *patternService) CleanDuplicates(ctx context.Context, formulaID string) (int, error) {
	if _, err := s.repo.Formula.GetByID(ctx, formulaID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.Wrap(pkgerrors.KindNotFound, "倒班公式不存在", err)
		}
		s.logger.Error("查询公式失败", zap.Error(err))
		return 0, err
	}

	var removed int64
	err := s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		raw, err := tx.FormulaGroup.ListRawByFormula(ctx, formulaID)
		if err != nil {
			return err
		}
		_, dups := DedupGroups(raw)
		removed, err = tx.FormulaGroup.DeleteByIDs(ctx, dups)
		return err
	})
	if err != nil {
		s.logger.Error("清理重复班组失败", zap.String("formula_id", formulaID), zap.Error(err))
		return 0, err
	}

	if removed > 0 {
		s.logger.Info("已清理重复班组", zap.String("formula_id", formulaID), zap.Int64("removed", removed))
	}
	return int(removed), nil
}

func (s *patternService) Rotations(ctx context.Context, formulaIDs []string) (map[string]rotation.Rotation, error) {
	out := make(map[string]rotation.Rotation, len(formulaIDs))
	if len(formulaIDs) == 0 {
		return out, nil
	}

	// 已删除的公式不在结果中，调用方按缺失处理
	formulas, err := s.repo.Formula.ListByIDs(ctx, formulaIDs)
	if err != nil {
		s.logger.Error("批量查询公式失败", zap.Error(err))
		return nil, err
	}
	raw, err := s.repo.FormulaGroup.ListRawByFormulas(ctx, formulaIDs)
	if err != nil {
		s.logger.Error("批量查询班组失败", zap.Error(err))
		return nil, err
	}

	byFormula := make(map[string][]model.FormulaGroup)
	for _, g := range raw {
		byFormula[g.FormulaID] = append(byFormula[g.FormulaID], g)
	}
	for _, f := range formulas {
		kept, _ := DedupGroups(byFormula[f.FormulaID])
		out[f.FormulaID] = RotationFromGroups(kept)
	}
	return out, nil
}

// ════════════════════════════════════════════════════════════
// 公式管理
// ════════════════════════════════════════════════════════════

func (s *patternService) CreateFormula(ctx context.Context, req *dto.CreateFormulaRequest, callerID string) (*dto.FormulaResponse, error) {
	groups, err := normalizeGroups(req.Groups)
	if err != nil {
		return nil, err
	}

	formula := &model.Formula{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	if callerID != "" {
		formula.CreatedBy = &callerID
		formula.UpdatedBy = &callerID
	}

	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Formula.Create(ctx, formula); err != nil {
			return err
		}
		for i := range groups {
			groups[i].FormulaID = formula.FormulaID
		}
		return tx.FormulaGroup.BatchCreate(ctx, groups)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, pkgerrors.Newf(pkgerrors.KindFormulaNameTaken, "公式名称 %q 已存在", formula.Name)
		}
		s.logger.Error("创建公式失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("公式已创建", zap.String("formula_id", formula.FormulaID), zap.Int("groups", len(groups)))
	kept, _ := DedupGroups(groups)
	return toFormulaResponse(formula, kept), nil
}

func (s *patternService) UpdateFormula(ctx context.Context, id string, req *dto.UpdateFormulaRequest, callerID string) (*dto.FormulaResponse, error) {
	groups, err := normalizeGroups(req.Groups)
	if err != nil {
		return nil, err
	}

	var formula *model.Formula
	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		f, err := tx.Formula.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if f.Revision != req.Revision {
			return pkgerrors.ErrOptimisticLock
		}
		f.Name = strings.TrimSpace(req.Name)
		f.Description = req.Description
		if callerID != "" {
			f.UpdatedBy = &callerID
		}
		if err := tx.Formula.Update(ctx, f); err != nil {
			return err
		}
		if err := tx.FormulaGroup.DeleteByFormula(ctx, id); err != nil {
			return err
		}
		for i := range groups {
			groups[i].FormulaID = id
		}
		if err := tx.FormulaGroup.BatchCreate(ctx, groups); err != nil {
			return err
		}
		formula = f
		return nil
	})
	if err != nil {
		return nil, s.mapFormulaError(err, "更新公式失败")
	}

	kept, _ := DedupGroups(groups)
	return toFormulaResponse(formula, kept), nil
}

func (s *patternService) GetFormula(ctx context.Context, id string) (*dto.FormulaResponse, error) {
	formula, err := s.repo.Formula.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapFormulaError(err, "查询公式失败")
	}
	groups, err := s.GetGroups(ctx, id)
	if err != nil {
		return nil, err
	}
	return toFormulaResponse(formula, groups), nil
}

func (s *patternService) ListFormulas(ctx context.Context) ([]dto.FormulaResponse, error) {
	formulas, err := s.repo.Formula.List(ctx)
	if err != nil {
		s.logger.Error("查询公式列表失败", zap.Error(err))
		return nil, err
	}

	ids := make([]string, len(formulas))
	for i, f := range formulas {
		ids[i] = f.FormulaID
	}
	raw, err := s.repo.FormulaGroup.ListRawByFormulas(ctx, ids)
	if err != nil {
		s.logger.Error("批量查询班组失败", zap.Error(err))
		return nil, err
	}
	byFormula := make(map[string][]model.FormulaGroup)
	for _, g := range raw {
		byFormula[g.FormulaID] = append(byFormula[g.FormulaID], g)
	}

	result := make([]dto.FormulaResponse, 0, len(formulas))
	for i := range formulas {
		kept, _ := DedupGroups(byFormula[formulas[i].FormulaID])
		result = append(result, *toFormulaResponse(&formulas[i], kept))
	}
	return result, nil
}

func (s *patternService) DeleteFormula(ctx context.Context, id, callerID string) error {
	if _, err := s.repo.Formula.GetByID(ctx, id); err != nil {
		return s.mapFormulaError(err, "查询公式失败")
	}

	inUse, err := s.repo.Staff.CountByFormula(ctx, id)
	if err != nil {
		s.logger.Error("统计公式引用失败", zap.Error(err))
		return err
	}
	if inUse > 0 {
		return pkgerrors.Newf(pkgerrors.KindFormulaInUse, "倒班公式仍被 %d 名人员引用，不可删除", inUse)
	}

	if err := s.repo.Formula.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除公式失败", zap.Error(err))
		return err
	}
	s.logger.Info("公式已删除", zap.String("formula_id", id), zap.String("by", callerID))
	return nil
}

// ── 辅助函数 ──

func (s *patternService) mapFormulaError(err error, msg string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.Wrap(pkgerrors.KindNotFound, "倒班公式不存在", err)
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		return err
	case database.IsUniqueViolation(err):
		return pkgerrors.ErrFormulaNameTaken
	default:
		s.logger.Error(msg, zap.Error(err))
		return fmt.Errorf("%s: %w", msg, err)
	}
}

// normalizeGroups 校验并统一模式为大写；班组号在请求内必须唯一
func normalizeGroups(reqs []dto.FormulaGroupRequest) ([]model.FormulaGroup, error) {
	if len(reqs) == 0 {
		return nil, pkgerrors.New(pkgerrors.KindInvalidPattern, "至少需要一个班组")
	}
	seen := make(map[int]bool, len(reqs))
	groups := make([]model.FormulaGroup, 0, len(reqs))
	for _, g := range reqs {
		if g.GroupNumber <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.KindInvalidPattern, "班组号必须大于 0，实际为 %d", g.GroupNumber)
		}
		if seen[g.GroupNumber] {
			return nil, pkgerrors.Newf(pkgerrors.KindInvalidPattern, "班组号 %d 重复", g.GroupNumber)
		}
		if !rotation.ValidPattern(g.Pattern) {
			return nil, pkgerrors.Newf(pkgerrors.KindInvalidPattern, "班组 %d 的模式 %q 必须为 7 个字母", g.GroupNumber, g.Pattern)
		}
		seen[g.GroupNumber] = true
		groups = append(groups, model.FormulaGroup{
			GroupNumber: g.GroupNumber,
			Pattern:     strings.ToUpper(g.Pattern),
		})
	}
	return groups, nil
}

func toFormulaResponse(f *model.Formula, groups []model.FormulaGroup) *dto.FormulaResponse {
	resp := &dto.FormulaResponse{
		ID:          f.FormulaID,
		Name:        f.Name,
		Description: f.Description,
		Groups:      make([]dto.FormulaGroupResponse, 0, len(groups)),
		Revision:    f.Revision,
		CreatedAt:   f.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   f.UpdatedAt.Format(time.RFC3339),
	}
	for _, g := range groups {
		resp.Groups = append(resp.Groups, dto.FormulaGroupResponse{
			GroupID:     g.GroupID,
			GroupNumber: g.GroupNumber,
			Pattern:     g.Pattern,
		})
		if g.GroupNumber > resp.MaxGroup {
			resp.MaxGroup = g.GroupNumber
		}
	}
	return resp
}
