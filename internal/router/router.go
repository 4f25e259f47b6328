package router

import (
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tally/internal/handler"
	"github.com/tally/internal/logger"
	"github.com/tally/internal/metrics"
)

const (
	sessionName     = "tally_session"
	requestIDHeader = "X-Request-ID"
	sessionMaxAge   = 30 * 24 * 60 * 60
)

// SetupRouter 配置 Gin 引擎和路由，m 为 nil 时不暴露 /metrics
func SetupRouter(api *handler.API, sessionSecret string, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	if m != nil {
		r.Use(m.Middleware())
	}

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(handler.LocaleMiddleware())

	r.GET("/ping", handler.Ping)
	r.GET("/healthz", api.HealthCheck)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", api.Register)
		auth.POST("/login", api.Login)
		auth.POST("/logout", api.Logout)
		auth.GET("/me", handler.AuthRequired(), api.Me)
	}

	apiGroup := r.Group("/api")
	apiGroup.Use(handler.AuthRequired())
	{
		apiGroup.GET("/activities", api.ListActivities)
		apiGroup.GET("/activities/due", api.DueActivities)
		apiGroup.PUT("/activities/reorder", api.ReorderActivities)
		apiGroup.GET("/activities/:id", api.GetActivity)
		apiGroup.POST("/activities", api.CreateActivity)
		apiGroup.PUT("/activities/:id", api.UpdateActivity)
		apiGroup.DELETE("/activities/:id", api.DeleteActivity)

		apiGroup.GET("/categories", api.ListCategories)
		apiGroup.POST("/categories", api.CreateCategory)
		apiGroup.PUT("/categories/:id", api.UpdateCategory)
		apiGroup.DELETE("/categories/:id", api.DeleteCategory)

		apiGroup.GET("/logs", api.ListLogs)
		apiGroup.GET("/logs/heatmap", api.GetHeatmap)
		apiGroup.POST("/logs", api.CreateLog)
		apiGroup.PUT("/logs/:id", api.UpdateLog)
		apiGroup.DELETE("/logs/:id", api.DeleteLog)

		apiGroup.GET("/scores/daily", api.DailyScore)
		apiGroup.GET("/scores/weekly", api.WeeklyScore)
		apiGroup.GET("/scores/monthly", api.MonthlyScore)
		apiGroup.GET("/scores/history", api.ScoreHistory)

		apiGroup.GET("/skips/:date", api.GetSkips)
		apiGroup.PUT("/skips/:date", api.SetSkips)
		apiGroup.POST("/skips/:date/toggle/:activityId", api.ToggleSkip)
		apiGroup.DELETE("/skips/:date", api.ClearSkips)

		apiGroup.GET("/special-days", api.ListSpecialDays)
		apiGroup.POST("/special-days", api.CreateSpecialDay)
		apiGroup.PUT("/special-days/:date", api.UpdateSpecialDay)
		apiGroup.DELETE("/special-days/:date", api.DeleteSpecialDay)

		apiGroup.GET("/todos", api.ListTodos)
		apiGroup.POST("/todos", api.CreateTodo)
		apiGroup.PUT("/todos/reorder", api.ReorderTodos)
		apiGroup.DELETE("/todos/completed/all", api.ClearCompletedTodos)
		apiGroup.PUT("/todos/:id", api.UpdateTodo)
		apiGroup.DELETE("/todos/:id", api.DeleteTodo)

		apiGroup.GET("/analytics/streaks", api.Streaks)
		apiGroup.GET("/analytics/statistics", api.Statistics)
		apiGroup.GET("/analytics/categories", api.CategoryProgress)
		apiGroup.GET("/analytics/weekly-summary", api.WeeklySummary)

		apiGroup.GET("/export", api.ExportData)
		apiGroup.POST("/import", api.ImportData)
	}

	return r
}

// requestLogger 为每个请求分配 X-Request-ID 并输出访问日志
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		entry := logger.WithRequestID(requestID).WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Warn("request completed with errors")
			return
		}
		entry.Debug("request completed")
	}
}
