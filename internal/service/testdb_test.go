package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/tally/internal/db"
	"github.com/tally/internal/schedule"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupServiceTestDB 为每个测试创建独立的内存数据库
func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func createTestUser(t *testing.T, gdb *gorm.DB, username string) uint {
	t.Helper()

	user, err := NewUserService(gdb).Register(username, "secret123")
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	return user.ID
}

func createTestActivity(t *testing.T, gdb *gorm.DB, userID uint, input ActivityInput) uint {
	t.Helper()

	activity, err := NewActivityService(gdb).Create(userID, input)
	if err != nil {
		t.Fatalf("failed to create activity %q: %v", input.Name, err)
	}
	return activity.ID
}

func logOn(t *testing.T, gdb *gorm.DB, userID, activityID uint, date string) {
	t.Helper()

	if _, err := NewLogService(gdb).Create(userID, LogInput{ActivityID: activityID, Date: schedule.MustParseDate(date)}); err != nil {
		t.Fatalf("failed to log activity %d on %s: %v", activityID, date, err)
	}
}

func intPtr(v int) *int {
	return &v
}

func dbActivity(days, frequency string) db.Activity {
	return db.Activity{DaysOfWeek: days, ScheduleFrequency: frequency, IsActive: true}
}
