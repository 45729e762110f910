package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/longbo188/workshop-sub000/config"
	"github.com/longbo188/workshop-sub000/internal/api/handler"
	"github.com/longbo188/workshop-sub000/internal/api/middleware"
	"github.com/longbo188/workshop-sub000/pkg/jwt"
	"github.com/longbo188/workshop-sub000/pkg/redis"
	"github.com/longbo188/workshop-sub000/pkg/response"
)

const (
	maxBodyBytes  = 64 << 10
	runRateLimit  = 10
	runRateWindow = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil，此时不做速率限制
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok"})
	})

	var limiter middleware.RateLimiter
	if rdb != nil {
		limiter = rdb
	}

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		// 效率核算模块
		eff := v1.Group("/efficiency")
		{
			eff.GET("/tasks/:task_id/phases/:phase_key", h.Efficiency.GetPhaseEfficiency)
			eff.POST("/runs", middleware.RateLimit(limiter, runRateLimit, runRateWindow, logger), h.Efficiency.RunEfficiency)
			eff.POST("/confirmations", middleware.RoleAuth(middleware.RoleAdmin), h.Efficiency.ConfirmOldPhases)
			eff.DELETE("/confirmations", middleware.RoleAuth(middleware.RoleAdmin), h.Efficiency.ClearConfirmations)
		}

		// 班次配置模块
		v1.GET("/shift-schedule", h.ShiftSchedule.GetSchedule)
		v1.PUT("/shift-schedule", middleware.RoleAuth(middleware.RoleAdmin), h.ShiftSchedule.UpdateSchedule)
	}

	return r
}
