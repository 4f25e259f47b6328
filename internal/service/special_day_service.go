package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tally/internal/db"
	"github.com/tally/internal/schedule"
	"gorm.io/gorm"
)

var (
	// ErrSpecialDayNotFound 在指定日期没有特殊日标记时返回
	ErrSpecialDayNotFound = errors.New("special day not found")
	// ErrSpecialDayExists 在同一天重复标记时返回
	ErrSpecialDayExists = errors.New("special day already exists for this date")
	// ErrSpecialDayInvalid 当类型非法时返回
	ErrSpecialDayInvalid = errors.New("invalid special day")
)

// SpecialDayService 管理休息日/恢复日/假期标记
type SpecialDayService struct {
	db *gorm.DB
}

// SpecialDayInput 定义特殊日字段
type SpecialDayInput struct {
	Date    schedule.Date
	DayType string
	Notes   string
}

// NewSpecialDayService 构造 SpecialDayService
func NewSpecialDayService(gdb *gorm.DB) *SpecialDayService {
	return &SpecialDayService{db: gdb}
}

// List 返回闭区间内的特殊日，按日期升序
func (s *SpecialDayService) List(userID uint, start, end schedule.Date) ([]db.SpecialDay, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end before start", ErrInvalidRange)
	}

	var days []db.SpecialDay
	if err := s.db.Where("user_id = ? AND date BETWEEN ? AND ?", userID, dbDate(start), dbDate(end)).
		Order("date ASC").
		Find(&days).Error; err != nil {
		return nil, fmt.Errorf("list special days: %w", err)
	}
	return days, nil
}

// ByDate 返回区间内特殊日的类型映射
func (s *SpecialDayService) ByDate(userID uint, start, end schedule.Date) (map[schedule.Date]string, error) {
	days, err := s.List(userID, start, end)
	if err != nil {
		return nil, err
	}

	result := make(map[schedule.Date]string, len(days))
	for _, day := range days {
		result[fromDBDate(day.Date)] = day.DayType
	}
	return result, nil
}

// Create 标记特殊日
func (s *SpecialDayService) Create(userID uint, input SpecialDayInput) (*db.SpecialDay, error) {
	dayType, err := normalizeDayType(input.DayType)
	if err != nil {
		return nil, err
	}
	if input.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrSpecialDayInvalid)
	}

	var count int64
	if err := s.db.Model(&db.SpecialDay{}).
		Where("user_id = ? AND date = ?", userID, dbDate(input.Date)).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check special day: %w", err)
	}
	if count > 0 {
		return nil, ErrSpecialDayExists
	}

	day := db.SpecialDay{
		UserID:  userID,
		Date:    dbDate(input.Date),
		DayType: dayType,
		Notes:   strings.TrimSpace(input.Notes),
	}
	if err := s.db.Create(&day).Error; err != nil {
		return nil, fmt.Errorf("create special day: %w", err)
	}
	return &day, nil
}

// Update 按日期修改特殊日类型与备注
func (s *SpecialDayService) Update(userID uint, date schedule.Date, dayType, notes string) (*db.SpecialDay, error) {
	normalized, err := normalizeDayType(dayType)
	if err != nil {
		return nil, err
	}

	day, err := s.get(userID, date)
	if err != nil {
		return nil, err
	}

	day.DayType = normalized
	day.Notes = strings.TrimSpace(notes)
	if err := s.db.Save(day).Error; err != nil {
		return nil, fmt.Errorf("update special day: %w", err)
	}
	return day, nil
}

// Delete 按日期删除特殊日
func (s *SpecialDayService) Delete(userID uint, date schedule.Date) error {
	result := s.db.Unscoped().
		Where("user_id = ? AND date = ?", userID, dbDate(date)).
		Delete(&db.SpecialDay{})
	if result.Error != nil {
		return fmt.Errorf("delete special day: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSpecialDayNotFound
	}
	return nil
}

func (s *SpecialDayService) get(userID uint, date schedule.Date) (*db.SpecialDay, error) {
	var day db.SpecialDay
	if err := s.db.Where("user_id = ? AND date = ?", userID, dbDate(date)).First(&day).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSpecialDayNotFound
		}
		return nil, fmt.Errorf("get special day: %w", err)
	}
	return &day, nil
}

func normalizeDayType(value string) (string, error) {
	dayType := strings.ToLower(strings.TrimSpace(value))
	switch dayType {
	case db.DayTypeRest, db.DayTypeRecovery, db.DayTypeVacation:
		return dayType, nil
	default:
		return "", fmt.Errorf("%w: unsupported day type %q", ErrSpecialDayInvalid, value)
	}
}
