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

// SnapshotService 月度排班版本管理
type SnapshotService interface {
	// Create 新建草稿版本，版本号为该月最大值 + 1
	Create(ctx context.Context, year, month int, note string, asBase bool, callerID string) (*dto.VersionResponse, error)
	Get(ctx context.Context, versionID string) (*dto.VersionResponse, error)
	// GetCurrent 该月最近创建的版本
	GetCurrent(ctx context.Context, year, month int) (*dto.VersionResponse, error)
	ListByMonth(ctx context.Context, year, month int) ([]dto.VersionResponse, error)
	Entries(ctx context.Context, versionID string) (*dto.VersionEntriesResponse, error)
	// Publish 已发布时不修改原发布时间与发布人，除非 force
	Publish(ctx context.Context, versionID, publisherID string, force bool) (*dto.VersionResponse, error)
	// SetBase 同一月份最多一个基准版本
	SetBase(ctx context.Context, versionID string, isBase bool, callerID string) (*dto.VersionResponse, error)
	// Replace 原子替换版本下的全部排班，同时清除相关差异缓存
	Replace(ctx context.Context, versionID string, rows []model.DayAssignment) error
}

type snapshotService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSnapshotService 创建 SnapshotService 实例
func NewSnapshotService(repo *repository.Repository, logger *zap.Logger) SnapshotService {
	return &snapshotService{repo: repo, logger: logger}
}

// ════════════════════════════════════════════════════════════
// 事务内复用的版本操作
// ════════════════════════════════════════════════════════════

// createVersion 调用方需已持有该月锁
func createVersion(ctx context.Context, repo *repository.Repository, year, month int, note string, asBase bool, callerID string) (*model.RosterVersion, error) {
	maxNo, err := repo.Version.MaxVersionNo(ctx, year, month)
	if err != nil {
		return nil, err
	}
	v := &model.RosterVersion{
		TargetYear:    year,
		TargetMonth:   month,
		VersionNo:     maxNo + 1,
		Note:          note,
		IsBaseVersion: asBase,
		Revision:      1,
	}
	if callerID != "" {
		v.CreatedBy = &callerID
		v.UpdatedBy = &callerID
	}
	if err := repo.Version.Create(ctx, v); err != nil {
		return nil, err
	}
	if asBase {
		if err := repo.Version.ClearBase(ctx, year, month, v.VersionID); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// lockVersionMonth 获取版本所在月份的事务锁，并在加锁后重新读取版本
func lockVersionMonth(ctx context.Context, tx *repository.Repository, versionID string) (*model.RosterVersion, error) {
	found, err := tx.Version.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if err := tx.MonthLock.Lock(ctx, found.TargetYear, found.TargetMonth); err != nil {
		return nil, err
	}
	return tx.Version.GetByID(ctx, versionID)
}

func replaceRows(ctx context.Context, repo *repository.Repository, versionID string, rows []model.DayAssignment) error {
	if err := repo.Assignment.ReplaceByVersion(ctx, versionID, rows); err != nil {
		return err
	}
	return repo.Diff.DeleteByVersion(ctx, versionID)
}

// ════════════════════════════════════════════════════════════
// 版本生命周期
// ════════════════════════════════════════════════════════════

func (s *snapshotService) Create(ctx context.Context, year, month int, note string, asBase bool, callerID string) (*dto.VersionResponse, error) {
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}

	var v *model.RosterVersion
	err := s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.MonthLock.Lock(ctx, year, month); err != nil {
			return err
		}
		created, err := createVersion(ctx, tx, year, month, note, asBase, callerID)
		v = created
		return err
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, pkgerrors.Wrap(pkgerrors.KindConcurrentRegeneration, pkgerrors.ErrConcurrentRegeneration.Reason, err)
		}
		s.logger.Error("创建排班版本失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("排班版本已创建",
		zap.String("version_id", v.VersionID),
		zap.String("month", repository.MonthKey(year, month)),
		zap.Int("version_no", v.VersionNo),
	)
	return toVersionResponse(v, 0), nil
}

func (s *snapshotService) Get(ctx context.Context, versionID string) (*dto.VersionResponse, error) {
	v, err := s.loadVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return s.withCount(ctx, v)
}

func (s *snapshotService) GetCurrent(ctx context.Context, year, month int) (*dto.VersionResponse, error) {
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}
	v, err := s.repo.Version.GetCurrent(ctx, year, month)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.KindNotFound, "%s 尚无排班版本", repository.MonthKey(year, month))
		}
		s.logger.Error("查询当前版本失败", zap.Error(err))
		return nil, err
	}
	return s.withCount(ctx, v)
}

func (s *snapshotService) ListByMonth(ctx context.Context, year, month int) ([]dto.VersionResponse, error) {
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}
	list, err := s.repo.Version.ListByMonth(ctx, year, month)
	if err != nil {
		s.logger.Error("查询版本列表失败", zap.Error(err))
		return nil, err
	}

	ids := make([]string, len(list))
	for i, v := range list {
		ids[i] = v.VersionID
	}
	counts, err := s.repo.Assignment.CountByVersions(ctx, ids)
	if err != nil {
		s.logger.Error("统计排班条数失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.VersionResponse, 0, len(list))
	for i := range list {
		result = append(result, *toVersionResponse(&list[i], counts[list[i].VersionID]))
	}
	return result, nil
}

func (s *snapshotService) Entries(ctx context.Context, versionID string) (*dto.VersionEntriesResponse, error) {
	v, err := s.loadVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.Assignment.ListByVersion(ctx, versionID)
	if err != nil {
		s.logger.Error("查询版本排班失败", zap.Error(err))
		return nil, err
	}

	staffIDs := make([]string, 0)
	seen := make(map[string]bool)
	for _, r := range rows {
		if !seen[r.StaffID] {
			seen[r.StaffID] = true
			staffIDs = append(staffIDs, r.StaffID)
		}
	}
	staff, err := s.repo.Staff.ListByIDs(ctx, staffIDs)
	if err != nil {
		s.logger.Error("查询人员失败", zap.Error(err))
		return nil, err
	}

	month := rotation.Month{Year: v.TargetYear, Month: time.Month(v.TargetMonth)}
	return &dto.VersionEntriesResponse{
		Version: *toVersionResponse(v, int64(len(rows))),
		Days:    month.DaysIn(),
		Rows:    buildGrid(month, staff, rows),
	}, nil
}

func (s *snapshotService) Publish(ctx context.Context, versionID, publisherID string, force bool) (*dto.VersionResponse, error) {
	var (
		v       *model.RosterVersion
		changed bool
	)
	err := s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		locked, err := lockVersionMonth(ctx, tx, versionID)
		if err != nil {
			return err
		}
		v = locked
		// 加锁后的状态为准，并发发布时后到者按已发布处理
		if v.IsPublished && !force {
			return nil
		}

		now := time.Now().UTC()
		v.IsPublished = true
		v.PublishedAt = &now
		if publisherID != "" {
			v.PublishedBy = &publisherID
			v.UpdatedBy = &publisherID
		}
		changed = true
		return tx.Version.Update(ctx, v)
	})
	if err != nil {
		return nil, s.mapVersionError(err, "发布版本失败")
	}

	if changed {
		s.logger.Info("排班版本已发布",
			zap.String("version_id", v.VersionID),
			zap.String("publisher", publisherID),
			zap.Bool("force", force),
		)
	}
	return s.withCount(ctx, v)
}

func (s *snapshotService) SetBase(ctx context.Context, versionID string, isBase bool, callerID string) (*dto.VersionResponse, error) {
	var v *model.RosterVersion
	err := s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		found, err := lockVersionMonth(ctx, tx, versionID)
		if err != nil {
			return err
		}
		if isBase {
			if err := tx.Version.ClearBase(ctx, found.TargetYear, found.TargetMonth, found.VersionID); err != nil {
				return err
			}
		}
		found.IsBaseVersion = isBase
		if callerID != "" {
			found.UpdatedBy = &callerID
		}
		if err := tx.Version.Update(ctx, found); err != nil {
			return err
		}
		v = found
		return nil
	})
	if err != nil {
		return nil, s.mapVersionError(err, "设置基准版本失败")
	}
	return s.withCount(ctx, v)
}

func (s *snapshotService) Replace(ctx context.Context, versionID string, rows []model.DayAssignment) error {
	err := s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := lockVersionMonth(ctx, tx, versionID); err != nil {
			return err
		}
		return replaceRows(ctx, tx, versionID, rows)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.mapVersionError(err, "替换版本排班失败")
		}
		s.logger.Error("替换版本排班失败", zap.String("version_id", versionID), zap.Error(err))
		return fmt.Errorf("替换版本排班失败: %w", err)
	}
	return nil
}

// ── 辅助函数 ──

func (s *snapshotService) loadVersion(ctx context.Context, versionID string) (*model.RosterVersion, error) {
	v, err := s.repo.Version.GetByID(ctx, versionID)
	if err != nil {
		return nil, s.mapVersionError(err, "查询版本失败")
	}
	return v, nil
}

func (s *snapshotService) withCount(ctx context.Context, v *model.RosterVersion) (*dto.VersionResponse, error) {
	counts, err := s.repo.Assignment.CountByVersions(ctx, []string{v.VersionID})
	if err != nil {
		s.logger.Error("统计排班条数失败", zap.Error(err))
		return nil, err
	}
	return toVersionResponse(v, counts[v.VersionID]), nil
}

func (s *snapshotService) mapVersionError(err error, msg string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.Wrap(pkgerrors.KindNotFound, "排班版本不存在", err)
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		return err
	default:
		s.logger.Error(msg, zap.Error(err))
		return fmt.Errorf("%s: %w", msg, err)
	}
}

func validateMonth(year, month int) error {
	if year < 2000 || year > 2100 {
		return pkgerrors.Newf(pkgerrors.KindInvalidMonth, "年份 %d 超出范围 2000-2100", year)
	}
	if month < 1 || month > 12 {
		return pkgerrors.Newf(pkgerrors.KindInvalidMonth, "月份 %d 超出范围 1-12", month)
	}
	return nil
}

// wideCodeMarker 历史数据中非单字节的班次代码在 Duties 中的占位，完整代码见 Cells
const wideCodeMarker = '*'

// buildGrid 每人一行，按人员顺序排列；档案缺失的人员排在最后
func buildGrid(month rotation.Month, staff []model.Staff, rows []model.DayAssignment) []dto.StaffRow {
	days := month.DaysIn()
	byStaff := make(map[string][]model.DayAssignment)
	for _, r := range rows {
		byStaff[r.StaffID] = append(byStaff[r.StaffID], r)
	}

	SortRoster(staff)
	ordered := make([]dto.StaffRow, 0, len(byStaff))
	known := make(map[string]bool, len(staff))
	for _, st := range staff {
		known[st.StaffID] = true
		if _, ok := byStaff[st.StaffID]; !ok {
			continue
		}
		ordered = append(ordered, dto.StaffRow{StaffID: st.StaffID, EmployeeNo: st.EmployeeNo, Name: st.Name})
	}
	orphans := make([]string, 0)
	for id := range byStaff {
		if !known[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		ordered = append(ordered, dto.StaffRow{StaffID: id})
	}

	for i := range ordered {
		duties := []byte(strings.Repeat("-", days))
		cells := make([]dto.EntryCell, 0, days)
		for _, r := range byStaff[ordered[i].StaffID] {
			d := r.DutyDate.Day()
			if d >= 1 && d <= days && r.DutyCode != "" {
				if len(r.DutyCode) == 1 {
					duties[d-1] = r.DutyCode[0]
				} else {
					duties[d-1] = wideCodeMarker
				}
			}
			cells = append(cells, dto.EntryCell{
				Day:         d,
				DutyCode:    r.DutyCode,
				AreaCode:    r.AreaCode,
				WorkTime:    r.WorkTime,
				SpecialType: r.SpecialType,
			})
		}
		ordered[i].Duties = string(duties)
		ordered[i].Cells = cells
	}
	return ordered
}

func toVersionResponse(v *model.RosterVersion, entryCount int64) *dto.VersionResponse {
	resp := &dto.VersionResponse{
		ID:            v.VersionID,
		Year:          v.TargetYear,
		Month:         v.TargetMonth,
		VersionNo:     v.VersionNo,
		Note:          v.Note,
		Status:        v.Status(),
		IsBaseVersion: v.IsBaseVersion,
		PublishedBy:   v.PublishedBy,
		EntryCount:    entryCount,
		Revision:      v.Revision,
		CreatedAt:     v.CreatedAt.Format(time.RFC3339),
	}
	if v.PublishedAt != nil {
		t := v.PublishedAt.Format(time.RFC3339)
		resp.PublishedAt = &t
	}
	return resp
}
