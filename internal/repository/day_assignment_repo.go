package repository

import (
	"context"

	"gorm.io/gorm"

	"duty-roster/internal/model"
)

const assignmentBatchSize = 500

// DayAssignmentRepository 每日排班数据访问接口
type DayAssignmentRepository interface {
	// ListByVersion 按 duty_date、staff_id 排序
	ListByVersion(ctx context.Context, versionID string) ([]model.DayAssignment, error)
	CountByVersions(ctx context.Context, versionIDs []string) (map[string]int64, error)
	// ReplaceByVersion 单个事务内删除旧行并批量写入新行，失败时旧行保持不变
	ReplaceByVersion(ctx context.Context, versionID string, rows []model.DayAssignment) error
}

type dayAssignmentRepo struct {
	db *gorm.DB
}

func NewDayAssignmentRepo(db *gorm.DB) DayAssignmentRepository {
	return &dayAssignmentRepo{db: db}
}

func (r *dayAssignmentRepo) ListByVersion(ctx context.Context, versionID string) ([]model.DayAssignment, error) {
	var rows []model.DayAssignment
	err := r.db.WithContext(ctx).
		Where("version_id = ?", versionID).
		Order("duty_date ASC, staff_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *dayAssignmentRepo) CountByVersions(ctx context.Context, versionIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(versionIDs))
	if len(versionIDs) == 0 {
		return counts, nil
	}

	type row struct {
		VersionID string
		Total     int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.DayAssignment{}).
		Select("version_id, COUNT(*) AS total").
		Where("version_id IN ?", versionIDs).
		Group("version_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, rw := range rows {
		counts[rw.VersionID] = rw.Total
	}
	return counts, nil
}

func (r *dayAssignmentRepo) ReplaceByVersion(ctx context.Context, versionID string, rows []model.DayAssignment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("version_id = ?", versionID).Delete(&model.DayAssignment{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for i := range rows {
			rows[i].VersionID = versionID
		}
		return tx.CreateInBatches(&rows, assignmentBatchSize).Error
	})
}
