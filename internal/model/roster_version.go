package model

import (
	"time"

	"gorm.io/gorm"
)

// RosterVersion 月度排班版本（表 roster_versions）
// 同一月份可有多个版本，created_at 最新者为当前版本
type RosterVersion struct {
	VersionID     string     `gorm:"type:uuid;primaryKey"                                  json:"version_id"`
	TargetYear    int        `gorm:"not null;uniqueIndex:uk_roster_versions_month_no,priority:1" json:"target_year"`
	TargetMonth   int        `gorm:"not null;uniqueIndex:uk_roster_versions_month_no,priority:2" json:"target_month"`
	VersionNo     int        `gorm:"not null;uniqueIndex:uk_roster_versions_month_no,priority:3" json:"version_no"`
	Note          string     `gorm:"type:varchar(500);not null"                            json:"note"`
	IsPublished   bool       `gorm:"not null"                                              json:"is_published"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	PublishedBy   *string    `gorm:"type:uuid"                                             json:"published_by,omitempty"`
	IsBaseVersion bool       `gorm:"not null"                                              json:"is_base_version"`
	Revision      int        `gorm:"not null;default:1"                                    json:"revision"`
	BaseModel
}

func (RosterVersion) TableName() string { return "roster_versions" }

func (v *RosterVersion) BeforeCreate(_ *gorm.DB) error {
	ensureID(&v.VersionID)
	return nil
}

// Status 草稿或已发布
func (v *RosterVersion) Status() string {
	if v.IsPublished {
		return "published"
	}
	return "draft"
}
