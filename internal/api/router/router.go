package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/O-B-I-s/TimeTracker/config"
	"github.com/O-B-I-s/TimeTracker/internal/api/handler"
	"github.com/O-B-I-s/TimeTracker/internal/api/middleware"
	"github.com/O-B-I-s/TimeTracker/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时导出接口不限流
func Setup(cfg *config.Config, h *handler.Handler, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	var limiter middleware.RateLimiter
	if rdb != nil {
		limiter = rdb
	}
	exportLimit := middleware.RateLimit(limiter, cfg.Export.RateLimit, cfg.Export.RateWindow)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 工时记录模块
		entries := v1.Group("/entries")
		{
			entries.GET("", h.Timesheet.ListEntries)
			entries.POST("", h.Timesheet.CreateEntry)
			entries.GET("/week/:weekStart", h.Timesheet.ListWeek)
			entries.GET("/:id", h.Timesheet.GetEntry)
			entries.PUT("/:id", h.Timesheet.UpdateEntry)
			entries.DELETE("/:id", h.Timesheet.DeleteEntry)

			// 导出
			entries.GET("/export/current-week", exportLimit, h.Export.ExportCurrentWeek)
			entries.GET("/export/week/:weekStart", exportLimit, h.Export.ExportWeek)
		}

		// 员工模块
		employees := v1.Group("/employees")
		{
			employees.GET("", h.Employee.ListEmployees)
			employees.POST("", h.Employee.CreateEmployee)
			employees.GET("/:id", h.Employee.GetEmployee)
			employees.GET("/:id/entries", h.Timesheet.ListEmployeeEntries)
		}
	}

	return r
}
