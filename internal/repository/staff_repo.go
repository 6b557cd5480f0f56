package repository

import (
	"context"

	"gorm.io/gorm"

	"duty-roster/internal/model"
)

// StaffRepository 人员数据访问接口
type StaffRepository interface {
	Create(ctx context.Context, staff *model.Staff) error
	GetByID(ctx context.Context, id string) (*model.Staff, error)
	// ListActive 在岗人员，按 sort_order、employee_no、staff_id 排序
	ListActive(ctx context.Context) ([]model.Staff, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Staff, error)
	CountByFormula(ctx context.Context, formulaID string) (int64, error)
}

type staffRepo struct {
	db *gorm.DB
}

func NewStaffRepo(db *gorm.DB) StaffRepository {
	return &staffRepo{db: db}
}

func (r *staffRepo) Create(ctx context.Context, staff *model.Staff) error {
	return r.db.WithContext(ctx).Create(staff).Error
}

func (r *staffRepo) GetByID(ctx context.Context, id string) (*model.Staff, error) {
	var staff model.Staff
	err := r.db.WithContext(ctx).
		Where("staff_id = ?", id).
		First(&staff).Error
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepo) ListActive(ctx context.Context) ([]model.Staff, error) {
	var list []model.Staff
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, employee_no ASC, staff_id ASC").
		Find(&list).Error
	return list, err
}

func (r *staffRepo) CountByFormula(ctx context.Context, formulaID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Staff{}).
		Where("formula_id = ?", formulaID).
		Count(&count).Error
	return count, err
}

func (r *staffRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Staff, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var list []model.Staff
	err := r.db.WithContext(ctx).
		Where("staff_id IN ?", ids).
		Order("sort_order ASC, employee_no ASC, staff_id ASC").
		Find(&list).Error
	return list, err
}
