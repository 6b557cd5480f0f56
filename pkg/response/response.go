package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "duty-roster/pkg/errors"
)

// Response 统一响应结构（与 API 文档约定一致）
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Kind    string      `json:"kind,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Details string      `json:"details,omitempty"`
}

// ── 成功响应 ──

// OK 200 成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 201 创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// ── 错误响应 ──

// Error 通用错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorWithDetails 带详情的错误响应
func ErrorWithDetails(c *gin.Context, httpStatus int, code int, message, details string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// ── 业务错误映射 ──

type kindMapping struct {
	status int
	code   int
}

// 业务类别 → HTTP 状态码与业务码
var kindTable = map[pkgerrors.Kind]kindMapping{
	pkgerrors.KindInvalidMonth:           {http.StatusBadRequest, 14001},
	pkgerrors.KindInvalidPattern:         {http.StatusBadRequest, 14002},
	pkgerrors.KindNotFound:               {http.StatusNotFound, 14101},
	pkgerrors.KindConcurrentRegeneration: {http.StatusConflict, 14201},
	pkgerrors.KindOptimisticLock:         {http.StatusConflict, 14202},
	pkgerrors.KindFormulaInUse:           {http.StatusConflict, 14203},
	pkgerrors.KindFormulaNameTaken:       {http.StatusConflict, 14204},
	pkgerrors.KindMonthMismatch:          {http.StatusUnprocessableEntity, 14301},
	pkgerrors.KindNoPatterns:             {http.StatusUnprocessableEntity, 14302},
	pkgerrors.KindEmptyRoster:            {http.StatusUnprocessableEntity, 14303},
}

// AppError 按业务类别写出错误响应；非业务错误统一返回 500
func AppError(c *gin.Context, err error) {
	kind := pkgerrors.KindOf(err)
	m, ok := kindTable[kind]
	if !ok {
		InternalError(c)
		return
	}
	c.JSON(m.status, Response{
		Code:    m.code,
		Message: pkgerrors.ReasonOf(err),
		Kind:    string(kind),
	})
}

// ── 常见快捷方式 ──

// BadRequest 400
func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, code int, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

// Forbidden 403
func Forbidden(c *gin.Context, code int, message string) {
	Error(c, http.StatusForbidden, code, message)
}

// NotFound 404
func NotFound(c *gin.Context, code int, message string) {
	Error(c, http.StatusNotFound, code, message)
}

// InternalError 500
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, 50000, "服务器内部错误")
}
