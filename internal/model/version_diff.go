package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VersionDiff 版本差异缓存（表 version_diffs）
// 可随时重算，任一版本重新生成后即失效
type VersionDiff struct {
	DiffID        string         `gorm:"type:uuid;primaryKey"                                  json:"diff_id"`
	VersionID     string         `gorm:"type:uuid;not null;uniqueIndex:uk_version_diffs_pair,priority:1" json:"version_id"`
	BaseVersionID string         `gorm:"type:uuid;not null;uniqueIndex:uk_version_diffs_pair,priority:2" json:"base_version_id"`
	Payload       datatypes.JSON `gorm:"not null"                                              json:"payload"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"                    json:"created_at"`
}

func (VersionDiff) TableName() string { return "version_diffs" }

func (d *VersionDiff) BeforeCreate(_ *gorm.DB) error {
	ensureID(&d.DiffID)
	return nil
}
