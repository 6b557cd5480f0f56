package repository

import (
	"context"

	"gorm.io/gorm"

	"duty-roster/internal/model"
	pkgerrors "duty-roster/pkg/errors"
)

// FormulaRepository 倒班公式数据访问接口
type FormulaRepository interface {
	Create(ctx context.Context, formula *model.Formula) error
	GetByID(ctx context.Context, id string) (*model.Formula, error)
	GetByName(ctx context.Context, name string) (*model.Formula, error)
	List(ctx context.Context) ([]model.Formula, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Formula, error)
	Update(ctx context.Context, formula *model.Formula) error
	Delete(ctx context.Context, id, deletedBy string) error
}

// FormulaGroupRepository 公式班组数据访问接口。
// 只返回原始行，去重由 Pattern Store 完成。
type FormulaGroupRepository interface {
	ListRawByFormula(ctx context.Context, formulaID string) ([]model.FormulaGroup, error)
	ListRawByFormulas(ctx context.Context, formulaIDs []string) ([]model.FormulaGroup, error)
	BatchCreate(ctx context.Context, groups []model.FormulaGroup) error
	DeleteByFormula(ctx context.Context, formulaID string) error
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
}

// ── Formula Repository 实现 ──

type formulaRepo struct {
	db *gorm.DB
}

func NewFormulaRepo(db *gorm.DB) FormulaRepository {
	return &formulaRepo{db: db}
}

func (r *formulaRepo) Create(ctx context.Context, formula *model.Formula) error {
	return r.db.WithContext(ctx).Create(formula).Error
}

func (r *formulaRepo) GetByID(ctx context.Context, id string) (*model.Formula, error) {
	var formula model.Formula
	err := r.db.WithContext(ctx).
		Where("formula_id = ?", id).
		First(&formula).Error
	if err != nil {
		return nil, err
	}
	return &formula, nil
}

func (r *formulaRepo) GetByName(ctx context.Context, name string) (*model.Formula, error) {
	var formula model.Formula
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&formula).Error
	if err != nil {
		return nil, err
	}
	return &formula, nil
}

func (r *formulaRepo) List(ctx context.Context) ([]model.Formula, error) {
	var formulas []model.Formula
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&formulas).Error
	return formulas, err
}

func (r *formulaRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Formula, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var formulas []model.Formula
	err := r.db.WithContext(ctx).
		Where("formula_id IN ?", ids).
		Find(&formulas).Error
	return formulas, err
}

func (r *formulaRepo) Update(ctx context.Context, formula *model.Formula) error {
	oldRevision := formula.Revision
	result := r.db.WithContext(ctx).
		Model(formula).
		Where("formula_id = ? AND revision = ?", formula.FormulaID, oldRevision).
		Updates(map[string]interface{}{
			"name":        formula.Name,
			"description": formula.Description,
			"updated_by":  formula.UpdatedBy,
			"revision":    oldRevision + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	formula.Revision = oldRevision + 1
	return nil
}

func (r *formulaRepo) Delete(ctx context.Context, id, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Formula{}).
			Where("formula_id = ?", id).
			Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		return tx.Where("formula_id = ?", id).Delete(&model.Formula{}).Error
	})
}

// ── FormulaGroup Repository 实现 ──

type formulaGroupRepo struct {
	db *gorm.DB
}

func NewFormulaGroupRepo(db *gorm.DB) FormulaGroupRepository {
	return &formulaGroupRepo{db: db}
}

// ListRawByFormula 按 group_id 升序返回全部行（含重复班组）
func (r *formulaGroupRepo) ListRawByFormula(ctx context.Context, formulaID string) ([]model.FormulaGroup, error) {
	var groups []model.FormulaGroup
	err := r.db.WithContext(ctx).
		Where("formula_id = ?", formulaID).
		Order("group_id ASC").
		Find(&groups).Error
	return groups, err
}

func (r *formulaGroupRepo) ListRawByFormulas(ctx context.Context, formulaIDs []string) ([]model.FormulaGroup, error) {
	if len(formulaIDs) == 0 {
		return nil, nil
	}
	var groups []model.FormulaGroup
	err := r.db.WithContext(ctx).
		Where("formula_id IN ?", formulaIDs).
		Order("formula_id ASC, group_id ASC").
		Find(&groups).Error
	return groups, err
}

func (r *formulaGroupRepo) BatchCreate(ctx context.Context, groups []model.FormulaGroup) error {
	if len(groups) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&groups).Error
}

func (r *formulaGroupRepo) DeleteByFormula(ctx context.Context, formulaID string) error {
	return r.db.WithContext(ctx).
		Where("formula_id = ?", formulaID).
		Delete(&model.FormulaGroup{}).Error
}

func (r *formulaGroupRepo) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("group_id IN ?", ids).
		Delete(&model.FormulaGroup{})
	return result.RowsAffected, result.Error
}
