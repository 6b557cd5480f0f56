package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"duty-roster/config"
	"duty-roster/internal/api/handler"
	"duty-roster/internal/api/middleware"
	"duty-roster/internal/dto"
	"duty-roster/pkg/jwt"
	"duty-roster/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎。rdb 为 nil 时不启用限流。
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := dto.RegisterValidators(v); err != nil {
			return nil, err
		}
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if cfg.Trace.Enabled {
		r.Use(otelgin.Middleware(cfg.Trace.ServiceName))
	}
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitKB << 10))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	v1.Use(middleware.RosterAccess())
	{
		// 排班生成（按 IP 限流）
		v1.POST("/generations",
			middleware.RateLimit(rdb, cfg.Server.GenerateLimit, time.Minute, logger),
			h.Generation.GenerateMonth,
		)

		// 排班版本
		versions := v1.Group("/versions")
		{
			versions.GET("", h.Version.ListVersions)
			versions.GET("/current", h.Version.GetCurrent)
			versions.GET("/diff", h.Version.Diff)
			versions.GET("/:id", h.Version.GetVersion)
			versions.GET("/:id/entries", h.Version.GetEntries)
			versions.GET("/:id/export", h.Export.ExportVersion)
			versions.POST("/:id/publish", h.Version.Publish)
			versions.PUT("/:id/base", h.Version.SetBase)
		}

		// 倒班公式（写操作仅 admin）
		formulas := v1.Group("/formulas")
		{
			formulas.GET("", h.Formula.ListFormulas)
			formulas.GET("/:id", h.Formula.GetFormula)
			formulas.POST("", middleware.FormulaAdmin(), h.Formula.CreateFormula)
			formulas.PUT("/:id", middleware.FormulaAdmin(), h.Formula.UpdateFormula)
			formulas.DELETE("/:id", middleware.FormulaAdmin(), h.Formula.DeleteFormula)
			formulas.POST("/:id/clean-duplicates", middleware.FormulaAdmin(), h.Formula.CleanDuplicates)
		}
	}

	return r, nil
}
