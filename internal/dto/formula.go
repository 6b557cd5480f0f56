package dto

// ── 倒班公式模块 DTO ──

// FormulaGroupRequest 班组定义
type FormulaGroupRequest struct {
	GroupNumber int    `json:"group_number" binding:"required,gt=0"`
	Pattern     string `json:"pattern"      binding:"required,duty_pattern"`
}

// CreateFormulaRequest 创建公式请求
type CreateFormulaRequest struct {
	Name        string                `json:"name"        binding:"required,min=1,max=100"`
	Description string                `json:"description" binding:"max=500"`
	Groups      []FormulaGroupRequest `json:"groups"      binding:"required,min=1,dive"`
}

// UpdateFormulaRequest 更新公式请求（班组整体替换）
type UpdateFormulaRequest struct {
	Name        string                `json:"name"        binding:"required,min=1,max=100"`
	Description string                `json:"description" binding:"max=500"`
	Groups      []FormulaGroupRequest `json:"groups"      binding:"required,min=1,dive"`
	Revision    int                   `json:"revision"    binding:"required,gte=1"`
}

// ── 响应 ──

// FormulaGroupResponse 去重后的班组
type FormulaGroupResponse struct {
	GroupID     int64  `json:"group_id"`
	GroupNumber int    `json:"group_number"`
	Pattern     string `json:"pattern"`
}

// FormulaResponse 公式详情
type FormulaResponse struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	MaxGroup    int                    `json:"max_group"`
	Groups      []FormulaGroupResponse `json:"groups"`
	Revision    int                    `json:"revision"`
	CreatedAt   string                 `json:"created_at"`
	UpdatedAt   string                 `json:"updated_at"`
}

// CleanDuplicatesResponse 清理重复班组结果
type CleanDuplicatesResponse struct {
	FormulaID string `json:"formula_id"`
	Removed   int    `json:"removed"`
}
