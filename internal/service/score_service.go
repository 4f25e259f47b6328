package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/tally/internal/schedule"
	"github.com/tally/internal/scoring"
	"gorm.io/gorm"
)

const (
	// MaxHistoryDays 是积分历史允许查询的最大天数
	MaxHistoryDays = 90
	// MaxRangeDays 是热力图与分类进度接口允许的最大区间天数（含首尾）
	MaxRangeDays = 366
)

var (
	// ErrInvalidRange 在日期区间或天数参数非法时返回
	ErrInvalidRange = errors.New("invalid date range")
)

// ScoreReport 汇总某个区间的原始积分与扣除跳过活动后的积分
type ScoreReport struct {
	Start    schedule.Date `json:"start"`
	End      schedule.Date `json:"end"`
	Raw      scoring.Score `json:"raw"`
	Adjusted scoring.Score `json:"adjusted"`
}

// DailyScore 是单日积分，附带跳过的活动与特殊日类型
type DailyScore struct {
	Date       schedule.Date `json:"date"`
	Raw        scoring.Score `json:"raw"`
	Adjusted   scoring.Score `json:"adjusted"`
	SkippedIDs []uint        `json:"skipped_activity_ids"`
	SpecialDay string        `json:"special_day,omitempty"`
}

// ScoreService 计算日/周/月积分
type ScoreService struct {
	activities  *ActivityService
	logs        *LogService
	skips       *SkipService
	specialDays *SpecialDayService
}

// NewScoreService 构造 ScoreService
func NewScoreService(gdb *gorm.DB) *ScoreService {
	return &ScoreService{
		activities:  NewActivityService(gdb),
		logs:        NewLogService(gdb),
		skips:       NewSkipService(gdb),
		specialDays: NewSpecialDayService(gdb),
	}
}

// Daily 返回某天的积分
func (s *ScoreService) Daily(userID uint, date schedule.Date) (*DailyScore, error) {
	days, err := s.days(userID, date, date)
	if err != nil {
		return nil, err
	}
	return &days[0], nil
}

// Weekly 返回 date 所在周（周一开始）的积分
func (s *ScoreService) Weekly(userID uint, date schedule.Date) (*ScoreReport, error) {
	start := date.StartOfWeek()
	return s.Range(userID, start, start.AddDays(6))
}

// Monthly 返回指定月份的积分
func (s *ScoreService) Monthly(userID uint, year int, month time.Month) (*ScoreReport, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month must be between 1 and 12", ErrInvalidRange)
	}
	start := schedule.NewDate(year, month, 1)
	return s.Range(userID, start, start.EndOfMonth())
}

// Range 返回闭区间内的积分，调整后积分逐日扣除当天跳过的活动
func (s *ScoreService) Range(userID uint, start, end schedule.Date) (*ScoreReport, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end before start", ErrInvalidRange)
	}

	activities, completions, err := s.load(userID, start, end)
	if err != nil {
		return nil, err
	}

	report := &ScoreReport{Start: start, End: end}
	report.Raw = scoring.Compute(activities, completions, start, end)
	report.Adjusted = report.Raw

	store := s.skips.Store(userID)
	for _, day := range schedule.Range(start, end) {
		report.Adjusted = scoring.AdjustScore(report.Adjusted, activities, store.GetSkipped(day), day)
	}
	return report, nil
}

// History 返回截至 today 的最近 days 天每日积分，按日期升序
func (s *ScoreService) History(userID uint, today schedule.Date, days int) ([]DailyScore, error) {
	if days < 1 || days > MaxHistoryDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidRange, MaxHistoryDays)
	}
	return s.days(userID, today.AddDays(-(days - 1)), today)
}

func (s *ScoreService) days(userID uint, start, end schedule.Date) ([]DailyScore, error) {
	activities, completions, err := s.load(userID, start, end)
	if err != nil {
		return nil, err
	}

	special, err := s.specialDays.ByDate(userID, start, end)
	if err != nil {
		return nil, err
	}

	byDate := make(map[schedule.Date][]scoring.Completion)
	for _, completion := range completions {
		byDate[completion.Date] = append(byDate[completion.Date], completion)
	}

	store := s.skips.Store(userID)
	dates := schedule.Range(start, end)
	result := make([]DailyScore, 0, len(dates))
	for _, day := range dates {
		skipped := store.GetSkipped(day)
		raw := scoring.Compute(activities, byDate[day], day, day)
		result = append(result, DailyScore{
			Date:       day,
			Raw:        raw,
			Adjusted:   scoring.AdjustScore(raw, activities, skipped, day),
			SkippedIDs: skipped.IDs(),
			SpecialDay: special[day],
		})
	}
	return result, nil
}

func (s *ScoreService) load(userID uint, start, end schedule.Date) ([]scoring.Activity, []scoring.Completion, error) {
	records, err := s.activities.List(userID, ActivityFilter{})
	if err != nil {
		return nil, nil, err
	}

	completions, err := s.logs.Completions(userID, start, end)
	if err != nil {
		return nil, nil, err
	}

	return ToScoringActivities(records), completions, nil
}
