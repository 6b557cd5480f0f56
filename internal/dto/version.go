package dto

// ── 排班版本模块 DTO ──

// MonthQuery 按月份查询
type MonthQuery struct {
	Year  int `form:"year"  binding:"required"`
	Month int `form:"month" binding:"required"`
}

// PublishVersionRequest 发布请求；force 为 true 时刷新发布时间与发布人
type PublishVersionRequest struct {
	Force bool `json:"force"`
}

// SetBaseVersionRequest 设置/取消基准版本
type SetBaseVersionRequest struct {
	IsBase *bool `json:"is_base" binding:"required"`
}

// DiffQuery 版本比较参数，a 为基准，b 为目标
type DiffQuery struct {
	A       string `form:"a"       binding:"required"`
	B       string `form:"b"       binding:"required"`
	Refresh bool   `form:"refresh"`
}

// ── 响应 ──

// VersionResponse 版本概要
type VersionResponse struct {
	ID            string  `json:"id"                     yaml:"id"`
	Year          int     `json:"year"                   yaml:"year"`
	Month         int     `json:"month"                  yaml:"month"`
	VersionNo     int     `json:"version_no"             yaml:"version_no"`
	Note          string  `json:"note"                   yaml:"note"`
	Status        string  `json:"status"                 yaml:"status"` // draft | published
	IsBaseVersion bool    `json:"is_base_version"        yaml:"is_base_version"`
	PublishedAt   *string `json:"published_at,omitempty" yaml:"published_at,omitempty"`
	PublishedBy   *string `json:"published_by,omitempty" yaml:"published_by,omitempty"`
	EntryCount    int64   `json:"entry_count"            yaml:"entry_count"`
	Revision      int     `json:"revision"               yaml:"revision"`
	CreatedAt     string  `json:"created_at"             yaml:"created_at"`
}

// EntryCell 某人某天的排班
type EntryCell struct {
	Day         int    `json:"day"`
	DutyCode    string `json:"duty_code"`
	AreaCode    string `json:"area_code,omitempty"`
	WorkTime    string `json:"work_time,omitempty"`
	SpecialType string `json:"special_type,omitempty"`
}

// StaffRow 某人整月排班
type StaffRow struct {
	StaffID    string      `json:"staff_id"`
	EmployeeNo string      `json:"employee_no"`
	Name       string      `json:"name"`
	Duties     string      `json:"duties"` // 每天一字节，无记录为 "-"，多字节代码为 "*"
	Cells      []EntryCell `json:"cells"`
}

// VersionEntriesResponse 版本完整排班表
type VersionEntriesResponse struct {
	Version VersionResponse `json:"version"`
	Days    int             `json:"days"`
	Rows    []StaffRow      `json:"rows"`
}

// DutyCell 参与比较的字段
type DutyCell struct {
	DutyCode string `json:"duty_code" yaml:"duty_code"`
	AreaCode string `json:"area_code" yaml:"area_code"`
	WorkTime string `json:"work_time" yaml:"work_time"`
}

// DiffEntry 单条差异；Added 仅有 After，Deleted 仅有 Before
type DiffEntry struct {
	StaffID string    `json:"staff_id"         yaml:"staff_id"`
	Date    string    `json:"date"             yaml:"date"`
	Before  *DutyCell `json:"before,omitempty" yaml:"before,omitempty"`
	After   *DutyCell `json:"after,omitempty"  yaml:"after,omitempty"`
}

// DiffResponse 两个版本的差异
type DiffResponse struct {
	BaseVersionID string      `json:"base_version_id" yaml:"base_version_id"`
	VersionID     string      `json:"version_id"      yaml:"version_id"`
	Year          int         `json:"year"            yaml:"year"`
	Month         int         `json:"month"           yaml:"month"`
	Added         []DiffEntry `json:"added"           yaml:"added"`
	Modified      []DiffEntry `json:"modified"        yaml:"modified"`
	Deleted       []DiffEntry `json:"deleted"         yaml:"deleted"`
	Cached        bool        `json:"cached"          yaml:"cached"`
}
