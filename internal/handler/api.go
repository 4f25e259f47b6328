package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tally/internal/metrics"
	"github.com/tally/internal/schedule"
	"github.com/tally/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db          *gorm.DB
	users       *service.UserService
	activities  *service.ActivityService
	categories  *service.CategoryService
	logs        *service.LogService
	scores      *service.ScoreService
	skips       *service.SkipService
	analytics   *service.AnalyticsService
	specialDays *service.SpecialDayService
	todos       *service.TodoService
	exports     *service.ExportService
	metrics     *metrics.Metrics
	location    *time.Location
	now         func() time.Time
}

// NewAPI constructs a handler set with shared services.
// loc 决定“今天”对应的日历日期，m 为 nil 时不记录业务指标。
func NewAPI(db *gorm.DB, m *metrics.Metrics, loc *time.Location) *API {
	registerValidators()

	if loc == nil {
		loc = time.Local
	}

	return &API{
		db:          db,
		users:       service.NewUserService(db),
		activities:  service.NewActivityService(db),
		categories:  service.NewCategoryService(db),
		logs:        service.NewLogService(db),
		scores:      service.NewScoreService(db),
		skips:       service.NewSkipService(db),
		analytics:   service.NewAnalyticsService(db),
		specialDays: service.NewSpecialDayService(db),
		todos:       service.NewTodoService(db),
		exports:     service.NewExportService(db),
		metrics:     m,
		location:    loc,
		now:         time.Now,
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}

// SetClock 替换当前时间来源，便于测试固定“今天”。
func (a *API) SetClock(now func() time.Time) {
	a.now = now
}

func (a *API) today() schedule.Date {
	return schedule.DateOf(a.now().In(a.location))
}

// Ping 用于存活探测。
func Ping(c *gin.Context) {
	c.JSON(200, gin.H{"message": "pong"})
}
