package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"duty-roster/pkg/database"
)

const monthLockNamespace = "roster_month"

// MonthLockRepository 月份级事务锁；需在事务内调用，提交或回滚时释放
type MonthLockRepository interface {
	Lock(ctx context.Context, year, month int) error
}

type monthLockRepo struct {
	db *gorm.DB
}

func NewMonthLockRepo(db *gorm.DB) MonthLockRepository {
	return &monthLockRepo{db: db}
}

func (r *monthLockRepo) Lock(ctx context.Context, year, month int) error {
	return database.AdvisoryXactLock(r.db.WithContext(ctx), monthLockNamespace, MonthKey(year, month))
}

// MonthKey 形如 2026-03，用于各类月份锁
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
