package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"duty-roster/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// 声明了 Content-Length 且超限时直接拒绝；其余情况由 MaxBytesReader 在读取时截断
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
