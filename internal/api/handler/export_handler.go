package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"duty-roster/internal/service"
	"duty-roster/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportVersion 导出版本排班表
// GET /api/v1/versions/:id/export
func (h *ExportHandler) ExportVersion(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportVersion(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.AppError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.PathEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
