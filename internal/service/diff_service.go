package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"duty-roster/internal/dto"
	"duty-roster/internal/model"
	"duty-roster/internal/repository"
	pkgerrors "duty-roster/pkg/errors"
)

// DiffService 版本差异比较
type DiffService interface {
	// Diff 以 baseID 为基准比较 targetID；refresh 为 true 时跳过缓存
	Diff(ctx context.Context, baseID, targetID string, refresh bool) (*dto.DiffResponse, error)
}

type diffService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewDiffService 创建 DiffService 实例
func NewDiffService(repo *repository.Repository, logger *zap.Logger) DiffService {
	return &diffService{repo: repo, logger: logger}
}

// diffPayload 缓存到 version_diffs.payload 的内容
type diffPayload struct {
	Added    []dto.DiffEntry `json:"added"`
	Modified []dto.DiffEntry `json:"modified"`
	Deleted  []dto.DiffEntry `json:"deleted"`
}

type cellKey struct {
	staffID string
	date    string
}

// ComputeDiff 按 (人员, 日期) 比较班次、区域与工作时间。
// 仅在 target 中出现为 Added，仅在 base 中出现为 Deleted；结果按日期、人员排序。
func ComputeDiff(base, target []model.DayAssignment) (added, modified, deleted []dto.DiffEntry) {
	baseIdx := indexCells(base)
	targetIdx := indexCells(target)

	added = make([]dto.DiffEntry, 0)
	modified = make([]dto.DiffEntry, 0)
	deleted = make([]dto.DiffEntry, 0)

	for k, after := range targetIdx {
		after := after
		before, ok := baseIdx[k]
		switch {
		case !ok:
			added = append(added, dto.DiffEntry{StaffID: k.staffID, Date: k.date, After: &after})
		case before != after:
			before := before
			modified = append(modified, dto.DiffEntry{StaffID: k.staffID, Date: k.date, Before: &before, After: &after})
		}
	}
	for k, before := range baseIdx {
		before := before
		if _, ok := targetIdx[k]; !ok {
			deleted = append(deleted, dto.DiffEntry{StaffID: k.staffID, Date: k.date, Before: &before})
		}
	}

	sortDiff(added)
	sortDiff(modified)
	sortDiff(deleted)
	return added, modified, deleted
}

// ════════════════════════════════════════════════════════════
// Diff
// ════════════════════════════════════════════════════════════

func (s *diffService) Diff(ctx context.Context, baseID, targetID string, refresh bool) (*dto.DiffResponse, error) {
	base, err := s.loadVersion(ctx, baseID)
	if err != nil {
		return nil, err
	}
	target, err := s.loadVersion(ctx, targetID)
	if err != nil {
		return nil, err
	}
	// 月份不一致时不加载排班明细
	if base.TargetYear != target.TargetYear || base.TargetMonth != target.TargetMonth {
		return nil, pkgerrors.ErrMonthMismatch
	}

	resp := &dto.DiffResponse{
		BaseVersionID: baseID,
		VersionID:     targetID,
		Year:          target.TargetYear,
		Month:         target.TargetMonth,
	}

	if !refresh {
		if cached, ok := s.fromCache(ctx, targetID, baseID); ok {
			resp.Added, resp.Modified, resp.Deleted = cached.Added, cached.Modified, cached.Deleted
			resp.Cached = true
			return resp, nil
		}
	}

	// 读取明细与写入缓存在同一月份锁内完成，重新生成只能发生在之前或之后
	var cacheErr error
	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.MonthLock.Lock(ctx, target.TargetYear, target.TargetMonth); err != nil {
			return err
		}
		baseRows, err := tx.Assignment.ListByVersion(ctx, baseID)
		if err != nil {
			return fmt.Errorf("查询基准版本排班失败: %w", err)
		}
		targetRows, err := tx.Assignment.ListByVersion(ctx, targetID)
		if err != nil {
			return fmt.Errorf("查询目标版本排班失败: %w", err)
		}

		resp.Added, resp.Modified, resp.Deleted = ComputeDiff(baseRows, targetRows)
		cacheErr = storeCache(ctx, tx, targetID, baseID, diffPayload{Added: resp.Added, Modified: resp.Modified, Deleted: resp.Deleted})
		return cacheErr
	})
	if err != nil {
		// 缓存写入失败不影响结果
		if cacheErr != nil {
			s.logger.Warn("写入差异缓存失败", zap.Error(cacheErr))
			return resp, nil
		}
		s.logger.Error("计算版本差异失败", zap.Error(err))
		return nil, err
	}
	return resp, nil
}

// ── 辅助函数 ──

func (s *diffService) loadVersion(ctx context.Context, id string) (*model.RosterVersion, error) {
	v, err := s.repo.Version.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.KindNotFound, "排班版本 %s 不存在", id)
		}
		s.logger.Error("查询版本失败", zap.Error(err))
		return nil, err
	}
	return v, nil
}

func (s *diffService) fromCache(ctx context.Context, targetID, baseID string) (*diffPayload, bool) {
	row, err := s.repo.Diff.Get(ctx, targetID, baseID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("读取差异缓存失败", zap.Error(err))
		}
		return nil, false
	}
	var p diffPayload
	if err := json.Unmarshal(row.Payload, &p); err != nil {
		s.logger.Warn("差异缓存内容无法解析，重新计算", zap.String("diff_id", row.DiffID), zap.Error(err))
		return nil, false
	}
	return &p, true
}

func storeCache(ctx context.Context, tx *repository.Repository, targetID, baseID string, p diffPayload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return tx.Diff.Upsert(ctx, &model.VersionDiff{
		VersionID:     targetID,
		BaseVersionID: baseID,
		Payload:       datatypes.JSON(raw),
	})
}

func indexCells(rows []model.DayAssignment) map[cellKey]dto.DutyCell {
	idx := make(map[cellKey]dto.DutyCell, len(rows))
	for _, r := range rows {
		idx[cellKey{staffID: r.StaffID, date: r.DutyDate.Format("2006-01-02")}] = dto.DutyCell{
			DutyCode: r.DutyCode,
			AreaCode: r.AreaCode,
			WorkTime: r.WorkTime,
		}
	}
	return idx
}

func sortDiff(entries []dto.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date < entries[j].Date
		}
		return entries[i].StaffID < entries[j].StaffID
	})
}
