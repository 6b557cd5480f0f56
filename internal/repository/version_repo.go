package repository

import (
	"context"

	"gorm.io/gorm"

	"duty-roster/internal/model"
	pkgerrors "duty-roster/pkg/errors"
)

// RosterVersionRepository 排班版本数据访问接口
type RosterVersionRepository interface {
	Create(ctx context.Context, version *model.RosterVersion) error
	GetByID(ctx context.Context, id string) (*model.RosterVersion, error)
	// GetCurrent 该月最近创建的版本
	GetCurrent(ctx context.Context, year, month int) (*model.RosterVersion, error)
	ListByMonth(ctx context.Context, year, month int) ([]model.RosterVersion, error)
	MaxVersionNo(ctx context.Context, year, month int) (int, error)
	Update(ctx context.Context, version *model.RosterVersion) error
	// ClearBase 清除该月除 exceptID 外所有版本的基准标记
	ClearBase(ctx context.Context, year, month int, exceptID string) error
}

type rosterVersionRepo struct {
	db *gorm.DB
}

func NewRosterVersionRepo(db *gorm.DB) RosterVersionRepository {
	return &rosterVersionRepo{db: db}
}

func (r *rosterVersionRepo) Create(ctx context.Context, version *model.RosterVersion) error {
	return r.db.WithContext(ctx).Create(version).Error
}

func (r *rosterVersionRepo) GetByID(ctx context.Context, id string) (*model.RosterVersion, error) {
	var version model.RosterVersion
	err := r.db.WithContext(ctx).
		Where("version_id = ?", id).
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *rosterVersionRepo) GetCurrent(ctx context.Context, year, month int) (*model.RosterVersion, error) {
	var version model.RosterVersion
	err := r.db.WithContext(ctx).
		Where("target_year = ? AND target_month = ?", year, month).
		Order("created_at DESC, version_no DESC").
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *rosterVersionRepo) ListByMonth(ctx context.Context, year, month int) ([]model.RosterVersion, error) {
	var list []model.RosterVersion
	err := r.db.WithContext(ctx).
		Where("target_year = ? AND target_month = ?", year, month).
		Order("version_no DESC").
		Find(&list).Error
	return list, err
}

func (r *rosterVersionRepo) MaxVersionNo(ctx context.Context, year, month int) (int, error) {
	var maxNo int
	err := r.db.WithContext(ctx).
		Model(&model.RosterVersion{}).
		Where("target_year = ? AND target_month = ?", year, month).
		Select("COALESCE(MAX(version_no), 0)").
		Scan(&maxNo).Error
	return maxNo, err
}

func (r *rosterVersionRepo) Update(ctx context.Context, version *model.RosterVersion) error {
	oldRevision := version.Revision
	result := r.db.WithContext(ctx).
		Model(version).
		Where("version_id = ? AND revision = ?", version.VersionID, oldRevision).
		Updates(map[string]interface{}{
			"note":            version.Note,
			"is_published":    version.IsPublished,
			"published_at":    version.PublishedAt,
			"published_by":    version.PublishedBy,
			"is_base_version": version.IsBaseVersion,
			"updated_by":      version.UpdatedBy,
			"revision":        oldRevision + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	version.Revision = oldRevision + 1
	return nil
}

func (r *rosterVersionRepo) ClearBase(ctx context.Context, year, month int, exceptID string) error {
	return r.db.WithContext(ctx).
		Model(&model.RosterVersion{}).
		Where("target_year = ? AND target_month = ? AND version_id <> ? AND is_base_version = ?", year, month, exceptID, true).
		Updates(map[string]interface{}{
			"is_base_version": false,
			"revision":        gorm.Expr("revision + 1"),
		}).Error
}
