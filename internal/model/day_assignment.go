package model

import (
	"time"

	"gorm.io/gorm"
)

// DayAssignment 每人每天的排班（表 day_assignments）
// (staff_id, duty_date, version_id) 唯一
type DayAssignment struct {
	AssignmentID string    `gorm:"type:uuid;primaryKey"                                            json:"assignment_id"`
	VersionID    string    `gorm:"type:uuid;not null;index;uniqueIndex:uk_day_assignments_staff_date_version,priority:3" json:"version_id"`
	StaffID      string    `gorm:"type:uuid;not null;uniqueIndex:uk_day_assignments_staff_date_version,priority:1"       json:"staff_id"`
	DutyDate     time.Time `gorm:"type:date;not null;uniqueIndex:uk_day_assignments_staff_date_version,priority:2"       json:"duty_date"`
	DutyCode     string    `gorm:"type:varchar(4);not null"                                        json:"duty_code"`
	AreaCode     string    `gorm:"type:varchar(20);not null"                                       json:"area_code"`
	WorkTime     string    `gorm:"type:varchar(30);not null"                                       json:"work_time"`
	SpecialType  string    `gorm:"type:varchar(20);not null"                                       json:"special_type"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                              json:"created_at"`
}

func (DayAssignment) TableName() string { return "day_assignments" }

func (a *DayAssignment) BeforeCreate(_ *gorm.DB) error {
	ensureID(&a.AssignmentID)
	return nil
}
