package model

import "gorm.io/gorm"

// 人员角色
const (
	StaffRoleHead   = "head" // 管理岗，不参与公式轮转
	StaffRoleMember = "member"
)

// Staff 人员（表 staff）
type Staff struct {
	StaffID         string  `gorm:"type:uuid;primaryKey"                    json:"staff_id"`
	EmployeeNo      string  `gorm:"type:varchar(30);not null"               json:"employee_no"`
	Name            string  `gorm:"type:varchar(100);not null"              json:"name"`
	Role            string  `gorm:"type:varchar(20);not null"               json:"role"`
	IsActive        bool    `gorm:"not null"                                json:"is_active"`
	DefaultAreaCode string  `gorm:"type:varchar(20);not null"               json:"default_area_code"`
	SortOrder       int     `gorm:"not null"                                json:"sort_order"`
	FormulaID       *string `gorm:"type:uuid"                               json:"formula_id,omitempty"`
	StartGroup      int     `gorm:"not null"                                json:"start_group"`
	StartCycle      int     `gorm:"not null"                                json:"start_cycle"` // 仅用于展示排序
	ProtectedNight  bool    `gorm:"not null"                                json:"protected_night"`
	BaseModel
}

func (Staff) TableName() string { return "staff" }

func (s *Staff) BeforeCreate(_ *gorm.DB) error {
	ensureID(&s.StaffID)
	return nil
}
