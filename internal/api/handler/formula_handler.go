package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"duty-roster/internal/dto"
	"duty-roster/internal/service"
	"duty-roster/pkg/response"
)

// FormulaHandler 倒班公式 HTTP 处理器
type FormulaHandler struct {
	patternSvc service.PatternService
}

// NewFormulaHandler 创建 FormulaHandler
func NewFormulaHandler(patternSvc service.PatternService) *FormulaHandler {
	return &FormulaHandler{patternSvc: patternSvc}
}

// ListFormulas 获取公式列表
// GET /api/v1/formulas
func (h *FormulaHandler) ListFormulas(c *gin.Context) {
	list, err := h.patternSvc.ListFormulas(c.Request.Context())
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetFormula 获取公式详情（含去重后的班组）
// GET /api/v1/formulas/:id
func (h *FormulaHandler) GetFormula(c *gin.Context) {
	formula, err := h.patternSvc.GetFormula(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, formula)
}

// CreateFormula 创建公式
// POST /api/v1/formulas
func (h *FormulaHandler) CreateFormula(c *gin.Context) {
	var req dto.CreateFormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	formula, err := h.patternSvc.CreateFormula(c.Request.Context(), &req, callerID)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Created(c, formula)
}

// UpdateFormula 更新公式并整体替换班组
// PUT /api/v1/formulas/:id
func (h *FormulaHandler) UpdateFormula(c *gin.Context) {
	var req dto.UpdateFormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	formula, err := h.patternSvc.UpdateFormula(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, formula)
}

// DeleteFormula 删除公式
// DELETE /api/v1/formulas/:id
func (h *FormulaHandler) DeleteFormula(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.patternSvc.DeleteFormula(c.Request.Context(), c.Param("id"), callerID); err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, nil)
}

// CleanDuplicates 清理重复班组
// POST /api/v1/formulas/:id/clean-duplicates
func (h *FormulaHandler) CleanDuplicates(c *gin.Context) {
	id := c.Param("id")
	removed, err := h.patternSvc.CleanDuplicates(c.Request.Context(), id)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, dto.CleanDuplicatesResponse{FormulaID: id, Removed: removed})
}
