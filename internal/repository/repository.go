package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Formula      FormulaRepository
	FormulaGroup FormulaGroupRepository
	Staff        StaffRepository
	Version      RosterVersionRepository
	Assignment   DayAssignmentRepository
	Diff         VersionDiffRepository
	MonthLock    MonthLockRepository
	Tx           TxRunner
}

// TxRunner 在同一事务内执行 fn，fn 收到绑定到该事务的 Repository
type TxRunner interface {
	Transaction(ctx context.Context, fn func(repo *Repository) error) error
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Formula:      NewFormulaRepo(db),
		FormulaGroup: NewFormulaGroupRepo(db),
		Staff:        NewStaffRepo(db),
		Version:      NewRosterVersionRepo(db),
		Assignment:   NewDayAssignmentRepo(db),
		Diff:         NewVersionDiffRepo(db),
		MonthLock:    NewMonthLockRepo(db),
		Tx:           &gormTxRunner{db: db},
	}
}

type gormTxRunner struct {
	db *gorm.DB
}

// Transaction 已处于事务中时 GORM 会使用 SAVEPOINT 嵌套
func (t *gormTxRunner) Transaction(ctx context.Context, fn func(repo *Repository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
