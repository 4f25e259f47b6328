package db

import (
	"time"

	"gorm.io/gorm"
)

const (
	DayTypeRest     = "rest"
	DayTypeRecovery = "recovery"
	DayTypeVacation = "vacation"
)

// SpecialDay 标记休息/恢复/假期等特殊日期，每个用户每天至多一条。
type SpecialDay struct {
	gorm.Model
	UserID  uint      `gorm:"not null;uniqueIndex:idx_special_day_user_date"`
	Date    time.Time `gorm:"not null;uniqueIndex:idx_special_day_user_date"`
	DayType string    `gorm:"size:16;not null"`
	Notes   string
}
