package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"duty-roster/internal/model"
)

// VersionDiffRepository 版本差异缓存数据访问接口
type VersionDiffRepository interface {
	Get(ctx context.Context, versionID, baseVersionID string) (*model.VersionDiff, error)
	Upsert(ctx context.Context, diff *model.VersionDiff) error
	// DeleteByVersion 删除该版本作为任一侧参与的缓存
	DeleteByVersion(ctx context.Context, versionID string) error
}

type versionDiffRepo struct {
	db *gorm.DB
}

func NewVersionDiffRepo(db *gorm.DB) VersionDiffRepository {
	return &versionDiffRepo{db: db}
}

func (r *versionDiffRepo) Get(ctx context.Context, versionID, baseVersionID string) (*model.VersionDiff, error) {
	var diff model.VersionDiff
	err := r.db.WithContext(ctx).
		Where("version_id = ? AND base_version_id = ?", versionID, baseVersionID).
		First(&diff).Error
	if err != nil {
		return nil, err
	}
	return &diff, nil
}

func (r *versionDiffRepo) Upsert(ctx context.Context, diff *model.VersionDiff) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "version_id"}, {Name: "base_version_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "created_at"}),
		}).
		Create(diff).Error
}

func (r *versionDiffRepo) DeleteByVersion(ctx context.Context, versionID string) error {
	return r.db.WithContext(ctx).
		Where("version_id = ? OR base_version_id = ?", versionID, versionID).
		Delete(&model.VersionDiff{}).Error
}
