package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"duty-roster/pkg/jwt"
	"duty-roster/pkg/response"
)

// 可操作排班的角色
const (
	RoleAdmin     = "admin"
	RoleScheduler = "scheduler"
)

// 上下文键，handler 通过它们取操作人写入版本的 created_by / published_by
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// JWTAuth 校验 Authorization: Bearer <access token>
// 版本写操作要记录操作人，缺少 user_id 的令牌一律拒绝
func JWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || token == "" {
			response.Unauthorized(c, 10002, "缺少或无效的认证头")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(token)
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}
		if claims.TokenType != "access" {
			response.Unauthorized(c, 10002, "Token 类型无效")
			c.Abort()
			return
		}
		if claims.UserID == "" {
			response.Unauthorized(c, 10002, "Token 缺少操作人")
			c.Abort()
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)

		c.Next()
	}
}

// RosterAccess 排班接口的准入：admin 与 scheduler
func RosterAccess() gin.HandlerFunc {
	return RoleAuth(RoleAdmin, RoleScheduler)
}

// FormulaAdmin 倒班公式的写操作仅 admin
func FormulaAdmin() gin.HandlerFunc {
	return RoleAuth(RoleAdmin)
}

// RoleAuth 检查当前用户是否具有指定角色之一
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString(CtxRole)
		if userRole == "" {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "无权限访问")
		c.Abort()
	}
}
