package dto

// 生成模式
const (
	ModePreview = "preview"
	ModePersist = "persist"
)

// GenerateMonthRequest 生成月度排班请求
type GenerateMonthRequest struct {
	Year          int    `json:"year"            binding:"required"`
	Month         int    `json:"month"           binding:"required"`
	Mode          string `json:"mode"            binding:"omitempty,oneof=preview persist"` // 缺省为 preview
	AsBaseVersion bool   `json:"as_base_version"`
	Note          string `json:"note"            binding:"max=500"`
}

// StaffDuty 单个人员的整月班次，每天一个字符
type StaffDuty struct {
	StaffID    string `json:"staff_id"    yaml:"staff_id"`
	EmployeeNo string `json:"employee_no" yaml:"employee_no"`
	Name       string `json:"name"        yaml:"name"`
	Rule       string `json:"rule"        yaml:"rule"`
	Duties     string `json:"duties"      yaml:"duties"`
}

// GenerationWarning 单人解析失败，已按整月休息处理
type GenerationWarning struct {
	StaffID string `json:"staff_id" yaml:"staff_id"`
	Message string `json:"message"  yaml:"message"`
}

// GenerationResult 生成结果
type GenerationResult struct {
	Mode       string              `json:"mode"                 yaml:"mode"`
	VersionID  *string             `json:"version_id,omitempty" yaml:"version_id,omitempty"`
	VersionNo  *int                `json:"version_no,omitempty" yaml:"version_no,omitempty"`
	Year       int                 `json:"year"                 yaml:"year"`
	Month      int                 `json:"month"                yaml:"month"`
	Days       int                 `json:"days"                 yaml:"days"`
	EntryCount int                 `json:"entry_count"          yaml:"entry_count"`
	Staff      []StaffDuty         `json:"staff"                yaml:"staff"`
	Warnings   []GenerationWarning `json:"warnings"             yaml:"warnings"`
}
