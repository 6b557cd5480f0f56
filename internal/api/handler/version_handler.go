package handler

import (
	"github.com/gin-gonic/gin"

	"duty-roster/internal/dto"
	"duty-roster/internal/service"
	"duty-roster/pkg/response"
)

// VersionHandler 排班版本 HTTP 处理器
type VersionHandler struct {
	snapshotSvc service.SnapshotService
	diffSvc     service.DiffService
}

// NewVersionHandler 创建 VersionHandler
func NewVersionHandler(snapshotSvc service.SnapshotService, diffSvc service.DiffService) *VersionHandler {
	return &VersionHandler{snapshotSvc: snapshotSvc, diffSvc: diffSvc}
}

// GetCurrent 获取某月当前版本
// GET /api/v1/versions/current?year=2026&month=3
func (h *VersionHandler) GetCurrent(c *gin.Context) {
	var q dto.MonthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "year 与 month 不能为空")
		return
	}

	v, err := h.snapshotSvc.GetCurrent(c.Request.Context(), q.Year, q.Month)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, v)
}

// ListVersions 获取某月全部版本
// GET /api/v1/versions?year=2026&month=3
func (h *VersionHandler) ListVersions(c *gin.Context) {
	var q dto.MonthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "year 与 month 不能为空")
		return
	}

	list, err := h.snapshotSvc.ListByMonth(c.Request.Context(), q.Year, q.Month)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetVersion 获取版本概要
// GET /api/v1/versions/:id
func (h *VersionHandler) GetVersion(c *gin.Context) {
	v, err := h.snapshotSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, v)
}

// GetEntries 获取版本完整排班表
// GET /api/v1/versions/:id/entries
func (h *VersionHandler) GetEntries(c *gin.Context) {
	grid, err := h.snapshotSvc.Entries(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, grid)
}

// Publish 发布版本
// POST /api/v1/versions/:id/publish
func (h *VersionHandler) Publish(c *gin.Context) {
	var req dto.PublishVersionRequest
	// 请求体可省略
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	v, err := h.snapshotSvc.Publish(c.Request.Context(), c.Param("id"), callerID, req.Force)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, v)
}

// SetBase 设置或取消基准版本
// PUT /api/v1/versions/:id/base
func (h *VersionHandler) SetBase(c *gin.Context) {
	var req dto.SetBaseVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "is_base 不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	v, err := h.snapshotSvc.SetBase(c.Request.Context(), c.Param("id"), *req.IsBase, callerID)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, v)
}

// Diff 比较两个版本，a 为基准
// GET /api/v1/versions/diff?a=xxx&b=yyy
func (h *VersionHandler) Diff(c *gin.Context) {
	var q dto.DiffQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "a 与 b 不能为空")
		return
	}

	diff, err := h.diffSvc.Diff(c.Request.Context(), q.A, q.B, q.Refresh)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, diff)
}
