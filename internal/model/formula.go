package model

import (
	"time"

	"gorm.io/gorm"
)

// Formula 倒班公式（表 formulas）
type Formula struct {
	FormulaID   string `gorm:"type:uuid;primaryKey"          json:"formula_id"`
	Name        string `gorm:"type:varchar(100);not null"    json:"name"`
	Description string `gorm:"type:varchar(500);not null"    json:"description"`
	VersionedModel
}

func (Formula) TableName() string { return "formulas" }

func (f *Formula) BeforeCreate(_ *gorm.DB) error {
	ensureID(&f.FormulaID)
	return nil
}

// FormulaGroup 公式班组（表 formula_groups）
// (formula_id, group_number) 没有唯一约束，重复时以 group_id 最小者为准
type FormulaGroup struct {
	GroupID     int64     `gorm:"primaryKey;autoIncrement"           json:"group_id"`
	FormulaID   string    `gorm:"type:uuid;not null;index"           json:"formula_id"`
	GroupNumber int       `gorm:"not null"                           json:"group_number"`
	Pattern     string    `gorm:"type:varchar(7);not null"           json:"pattern"` // 下标 0 为周一
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (FormulaGroup) TableName() string { return "formula_groups" }
