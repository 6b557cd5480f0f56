package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"duty-roster/internal/dto"
	"duty-roster/internal/service"
	"duty-roster/pkg/response"
)

// GenerationHandler 月度排班生成 HTTP 处理器
type GenerationHandler struct {
	generationSvc service.GenerationService
}

// NewGenerationHandler 创建 GenerationHandler
func NewGenerationHandler(generationSvc service.GenerationService) *GenerationHandler {
	return &GenerationHandler{generationSvc: generationSvc}
}

// GenerateMonth 生成月度排班
// POST /api/v1/generations
func (h *GenerationHandler) GenerateMonth(c *gin.Context) {
	var req dto.GenerateMonthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.generationSvc.GenerateMonth(c.Request.Context(), &req, callerID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	if result.Mode == dto.ModePersist {
		response.Created(c, result)
		return
	}
	response.OK(c, result)
}
