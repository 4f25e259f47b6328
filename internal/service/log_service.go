package service

import (
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/tally/internal/db"
	"github.com/tally/internal/schedule"
	"github.com/tally/internal/scoring"
	"gorm.io/gorm"
)

var (
	// ErrLogNotFound 在打卡记录不存在时返回
	ErrLogNotFound = errors.New("activity log not found")
	// ErrLogExists 在同一活动同一天重复打卡时返回
	ErrLogExists = errors.New("activity already logged for this date")
	// ErrLogInvalid 当打卡附加字段与活动完成方式不匹配时返回
	ErrLogInvalid = errors.New("invalid activity log")
	// ErrActivityInactive 在为已停用活动打卡时返回
	ErrActivityInactive = errors.New("activity is inactive")
)

// LogService 负责打卡记录
// 每个活动每天最多一条记录，取消打卡会物理删除记录以便重新打卡
type LogService struct {
	db *gorm.DB
}

// LogInput 定义打卡时的输入对象
type LogInput struct {
	ActivityID    uint
	Date          schedule.Date
	EnergyLevel   *int
	QualityRating *int
	RatingValue   *int
	Notes         string
}

// LogUpdate 定义可修改的打卡字段
type LogUpdate struct {
	EnergyLevel   *int
	QualityRating *int
	RatingValue   *int
	Notes         *string
}

// HeatmapDay 表示热力图中的单日汇总
type HeatmapDay struct {
	Date   schedule.Date `json:"date"`
	Count  int           `json:"count"`
	Points int           `json:"points"`
}

// NewLogService 构造 LogService
func NewLogService(gdb *gorm.DB) *LogService {
	return &LogService{db: gdb}
}

// Create 为活动在指定日期打卡
func (s *LogService) Create(userID uint, input LogInput) (*db.ActivityLog, error) {
	if input.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrLogInvalid)
	}

	var activity db.Activity
	if err := s.db.Where("user_id = ?", userID).First(&activity, input.ActivityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("find activity: %w", err)
	}
	if !activity.IsActive {
		return nil, ErrActivityInactive
	}

	if err := validateLogMetadata(activity, input.EnergyLevel, input.QualityRating, input.RatingValue); err != nil {
		return nil, err
	}

	logDate := dbDate(input.Date)

	var count int64
	if err := s.db.Model(&db.ActivityLog{}).
		Where("activity_id = ? AND completed_at = ?", activity.ID, logDate).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check activity log: %w", err)
	}
	if count > 0 {
		return nil, ErrLogExists
	}

	record := db.ActivityLog{
		UserID:        userID,
		ActivityID:    activity.ID,
		CompletedAt:   logDate,
		EnergyLevel:   input.EnergyLevel,
		QualityRating: input.QualityRating,
		RatingValue:   input.RatingValue,
		Notes:         strings.TrimSpace(input.Notes),
	}

	if err := s.db.Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrLogExists
		}
		return nil, fmt.Errorf("create activity log: %w", err)
	}

	record.Activity = activity
	return &record, nil
}

// Update 修改备注或附加评分
func (s *LogService) Update(userID, id uint, input LogUpdate) (*db.ActivityLog, error) {
	record, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}

	energy := record.EnergyLevel
	if input.EnergyLevel != nil {
		energy = input.EnergyLevel
	}
	quality := record.QualityRating
	if input.QualityRating != nil {
		quality = input.QualityRating
	}
	rating := record.RatingValue
	if input.RatingValue != nil {
		rating = input.RatingValue
	}

	if err := validateLogMetadata(record.Activity, energy, quality, rating); err != nil {
		return nil, err
	}

	record.EnergyLevel = energy
	record.QualityRating = quality
	record.RatingValue = rating
	if input.Notes != nil {
		record.Notes = strings.TrimSpace(*input.Notes)
	}

	if err := s.db.Omit("Activity").Save(record).Error; err != nil {
		return nil, fmt.Errorf("update activity log: %w", err)
	}
	return record, nil
}

// Get 返回单条打卡记录，附带活动信息
func (s *LogService) Get(userID, id uint) (*db.ActivityLog, error) {
	var record db.ActivityLog
	if err := s.db.Preload("Activity").Where("user_id = ?", userID).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, fmt.Errorf("get activity log: %w", err)
	}
	return &record, nil
}

// Delete 取消打卡
func (s *LogService) Delete(userID, id uint) error {
	result := s.db.Unscoped().Where("user_id = ? AND id = ?", userID, id).Delete(&db.ActivityLog{})
	if result.Error != nil {
		return fmt.Errorf("delete activity log: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrLogNotFound
	}
	return nil
}

// ListByDate 返回某天的全部打卡
func (s *LogService) ListByDate(userID uint, date schedule.Date) ([]db.ActivityLog, error) {
	return s.ListBetween(userID, date, date)
}

// ListBetween 返回闭区间内的打卡记录，按日期升序
func (s *LogService) ListBetween(userID uint, start, end schedule.Date) ([]db.ActivityLog, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end before start", ErrInvalidRange)
	}

	var logs []db.ActivityLog
	if err := s.db.Preload("Activity").
		Where("user_id = ?", userID).
		Where("completed_at BETWEEN ? AND ?", dbDate(start), dbDate(end)).
		Order("completed_at ASC, activity_id ASC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	return logs, nil
}

// Completions 返回区间内的完成记录，供积分计算使用
func (s *LogService) Completions(userID uint, start, end schedule.Date) ([]scoring.Completion, error) {
	logs, err := s.ListBetween(userID, start, end)
	if err != nil {
		return nil, err
	}

	completions := make([]scoring.Completion, 0, len(logs))
	for _, record := range logs {
		completions = append(completions, scoring.Completion{
			ActivityID: record.ActivityID,
			Date:       fromDBDate(record.CompletedAt),
			Points:     record.Activity.Points,
		})
	}
	return completions, nil
}

// Heatmap 返回区间内每天的打卡数量与得分，没有打卡的日期计数为 0
func (s *LogService) Heatmap(userID uint, start, end schedule.Date) ([]HeatmapDay, error) {
	if err := checkSpan(start, end, MaxRangeDays); err != nil {
		return nil, err
	}

	completions, err := s.Completions(userID, start, end)
	if err != nil {
		return nil, err
	}

	byDate := make(map[schedule.Date]*HeatmapDay)
	days := schedule.Range(start, end)
	result := make([]HeatmapDay, len(days))
	for i, day := range days {
		result[i].Date = day
		byDate[day] = &result[i]
	}

	for _, completion := range completions {
		if entry, ok := byDate[completion.Date]; ok {
			entry.Count++
			entry.Points += completion.Points
		}
	}
	return result, nil
}

// NotesHTML 渲染打卡备注
func (s *LogService) NotesHTML(record db.ActivityLog) (template.HTML, error) {
	return RenderMarkdown(record.Notes)
}

func validateLogMetadata(activity db.Activity, energy, quality, rating *int) error {
	switch activity.CompletionType {
	case db.CompletionTypeEnergyQuality:
		if rating != nil {
			return fmt.Errorf("%w: rating is not allowed for this activity", ErrLogInvalid)
		}
		if energy != nil && (*energy < 1 || *energy > 5) {
			return fmt.Errorf("%w: energy level must be between 1 and 5", ErrLogInvalid)
		}
		if quality != nil && (*quality < 1 || *quality > 5) {
			return fmt.Errorf("%w: quality rating must be between 1 and 5", ErrLogInvalid)
		}
	case db.CompletionTypeRating:
		if energy != nil || quality != nil {
			return fmt.Errorf("%w: energy and quality are not allowed for this activity", ErrLogInvalid)
		}
		if rating != nil && (*rating < 1 || *rating > activity.RatingScale) {
			return fmt.Errorf("%w: rating must be between 1 and %d", ErrLogInvalid, activity.RatingScale)
		}
	default:
		if energy != nil || quality != nil || rating != nil {
			return fmt.Errorf("%w: checkbox activities take no rating", ErrLogInvalid)
		}
	}
	return nil
}
