package db

import (
	"time"

	"gorm.io/gorm"
)

const (
	CompletionTypeCheckbox      = "checkbox"
	CompletionTypeRating        = "rating"
	CompletionTypeEnergyQuality = "energy_quality"
)

// Activity 定义了可重复打卡的活动
// DaysOfWeek 为逗号分隔的星期标记（mon..sun），空串表示每天
// ScheduleFrequency 为 weekly/biweekly，biweekly 时 BiweeklyStartDate 作为隔周锚点
// 删除活动只会将 IsActive 置为 false，历史打卡记录保持可查
type Activity struct {
	gorm.Model
	UserID            uint   `gorm:"index;not null"`
	Name              string `gorm:"not null"`
	Description       string
	Points            int `gorm:"not null"`
	DaysOfWeek        string
	CategoryID        *uint     `gorm:"index"`
	Category          *Category `gorm:"constraint:OnDelete:SET NULL"`
	CompletionType    string    `gorm:"size:32;not null"`
	RatingScale       int
	ScheduleFrequency string `gorm:"size:16;not null"`
	BiweeklyStartDate *time.Time
	IsActive          bool `gorm:"index;not null"`
	SortOrder         int
}

// ActivityLog 记录活动在某一天的完成情况
// ActivityID + CompletedAt 采用唯一索引，CompletedAt 只保存日期（UTC 零点）
// EnergyLevel/QualityRating（1-5）仅用于 energy_quality 类型，RatingValue 仅用于 rating 类型
type ActivityLog struct {
	gorm.Model
	UserID        uint      `gorm:"index;not null"`
	ActivityID    uint      `gorm:"index:idx_activity_log_unique,unique"`
	Activity      Activity  `gorm:"constraint:OnDelete:CASCADE"`
	CompletedAt   time.Time `gorm:"index:idx_activity_log_unique,unique"`
	EnergyLevel   *int
	QualityRating *int
	RatingValue   *int
	Notes         string `gorm:"type:text"`
}

// TableName 重写确保唯一索引作用到 activity_id + completed_at
func (ActivityLog) TableName() string {
	return "activity_logs"
}
