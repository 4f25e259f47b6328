package service

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/tally/internal/db"
	"github.com/tally/internal/schedule"
	"github.com/tally/internal/scoring"
	"gorm.io/gorm"
)

const (
	// MaxStatisticsDays 是统计接口允许的最大天数
	MaxStatisticsDays = 365
	rankingSize       = 5
)

const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"

	TrendUp     = "up"
	TrendDown   = "down"
	TrendSteady = "steady"
)

// ActivityStreak 描述单个活动的连续完成情况
// 连续天数只在活动安排的日子上计算，未安排的日子不会打断连续
type ActivityStreak struct {
	ActivityID    uint           `json:"activity_id"`
	Name          string         `json:"name"`
	CurrentStreak int            `json:"current_streak"`
	LongestStreak int            `json:"longest_streak"`
	LastCompleted *schedule.Date `json:"last_completed,omitempty"`
}

// StreakSummary 汇总全部活动的连续情况
type StreakSummary struct {
	Activities    []ActivityStreak `json:"activities"`
	ActiveStreaks int              `json:"active_streaks"`
	LongestStreak int              `json:"longest_streak"`
	BestActivity  string           `json:"best_activity,omitempty"`
}

// CompletionStat 是一组安排次数与完成次数
type CompletionStat struct {
	Scheduled int `json:"scheduled"`
	Completed int `json:"completed"`
	Rate      int `json:"rate"`
}

// ActivityStat 是单个活动在统计区间内的完成率
type ActivityStat struct {
	ActivityID uint   `json:"activity_id"`
	Name       string `json:"name"`
	CompletionStat
}

// Statistics 汇总统计区间内的完成情况
type Statistics struct {
	Start           schedule.Date             `json:"start"`
	End             schedule.Date             `json:"end"`
	Days            int                       `json:"days"`
	OverallRate     int                       `json:"overall_rate"`
	TotalPoints     int                       `json:"total_points"`
	ByWeekday       map[string]CompletionStat `json:"by_weekday"`
	BestActivities  []ActivityStat            `json:"best_activities"`
	WorstActivities []ActivityStat            `json:"worst_activities"`
	FirstHalfRate   int                       `json:"first_half_rate"`
	SecondHalfRate  int                       `json:"second_half_rate"`
	Trend           string                    `json:"trend"`
}

// CategoryProgress 是某个分类在区间内的完成情况，CategoryID 为空表示未分类
type CategoryProgress struct {
	CategoryID *uint  `json:"category_id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Activities int    `json:"activities"`
	Points     int    `json:"points"`
	CompletionStat
}

// SummaryDay 是周总结中的单日完成度，特殊日视为 100%
type SummaryDay struct {
	Date       schedule.Date `json:"date"`
	Percentage int           `json:"percentage"`
	Completed  int           `json:"completed"`
	Total      int           `json:"total"`
	SpecialDay string        `json:"special_day,omitempty"`
}

// WeeklySummary 汇总截至某天的最近 7 天
type WeeklySummary struct {
	Start         schedule.Date  `json:"start"`
	End           schedule.Date  `json:"end"`
	Days          []SummaryDay   `json:"days"`
	AvgCompletion int            `json:"avg_completion"`
	TotalPoints   int            `json:"total_points"`
	BestDay       string         `json:"best_day"`
	BestDate      *schedule.Date `json:"best_date,omitempty"`
	Trend         string         `json:"trend"`
	OpenTodos     int            `json:"open_todos"`
}

// AnalyticsService 负责连续天数与完成率统计
type AnalyticsService struct {
	db          *gorm.DB
	activities  *ActivityService
	categories  *CategoryService
	logs        *LogService
	specialDays *SpecialDayService
}

// NewAnalyticsService 构造 AnalyticsService
func NewAnalyticsService(gdb *gorm.DB) *AnalyticsService {
	return &AnalyticsService{
		db:          gdb,
		activities:  NewActivityService(gdb),
		categories:  NewCategoryService(gdb),
		logs:        NewLogService(gdb),
		specialDays: NewSpecialDayService(gdb),
	}
}

// Streaks 计算每个启用活动截至 today 的当前与最长连续天数
// today 当天尚未完成不会打断当前连续
func (s *AnalyticsService) Streaks(userID uint, today schedule.Date) (*StreakSummary, error) {
	activities, err := s.activities.List(userID, ActivityFilter{})
	if err != nil {
		return nil, err
	}

	var logs []db.ActivityLog
	if err := s.db.Where("user_id = ? AND completed_at <= ?", userID, dbDate(today)).
		Order("completed_at ASC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list streak logs: %w", err)
	}

	completed := make(map[uint]map[schedule.Date]bool)
	for _, record := range logs {
		if completed[record.ActivityID] == nil {
			completed[record.ActivityID] = make(map[schedule.Date]bool)
		}
		completed[record.ActivityID][fromDBDate(record.CompletedAt)] = true
	}

	summary := &StreakSummary{Activities: make([]ActivityStreak, 0, len(activities))}
	for _, activity := range activities {
		streak := calculateStreak(ActivityRule(activity), completed[activity.ID], today)
		streak.ActivityID = activity.ID
		streak.Name = activity.Name
		summary.Activities = append(summary.Activities, streak)

		if streak.CurrentStreak > 0 {
			summary.ActiveStreaks++
		}
		if streak.LongestStreak > summary.LongestStreak {
			summary.LongestStreak = streak.LongestStreak
			summary.BestActivity = activity.Name
		}
	}
	return summary, nil
}

func calculateStreak(rule schedule.Rule, done map[schedule.Date]bool, today schedule.Date) ActivityStreak {
	var streak ActivityStreak
	if len(done) == 0 {
		return streak
	}

	earliest := today
	for day := range done {
		if day.Before(earliest) {
			earliest = day
		}
	}

	run := 0
	for _, day := range schedule.Range(earliest, today) {
		switch {
		case done[day]:
			run++
			last := day
			streak.LastCompleted = &last
		case day.Equal(today):
			// 当天尚未完成，不打断
		case schedule.IsScheduledForDay(rule, day):
			run = 0
		}
		if run > streak.LongestStreak {
			streak.LongestStreak = run
		}
	}
	streak.CurrentStreak = run
	return streak
}

// Statistics 统计截至 today 的最近 days 天
func (s *AnalyticsService) Statistics(userID uint, today schedule.Date, days int) (*Statistics, error) {
	if days < 1 || days > MaxStatisticsDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidRange, MaxStatisticsDays)
	}

	start := today.AddDays(-(days - 1))
	activities, err := s.activities.List(userID, ActivityFilter{})
	if err != nil {
		return nil, err
	}
	completions, err := s.logs.Completions(userID, start, today)
	if err != nil {
		return nil, err
	}

	done := completionIndex(completions)
	scoringActivities := ToScoringActivities(activities)
	raw := scoring.Compute(scoringActivities, completions, start, today)

	stats := &Statistics{
		Start:       start,
		End:         today,
		Days:        days,
		OverallRate: raw.Percentage,
		TotalPoints: raw.TotalPoints,
		ByWeekday:   make(map[string]CompletionStat, 7),
	}

	perActivity := make(map[uint]*ActivityStat, len(activities))
	for _, activity := range activities {
		perActivity[activity.ID] = &ActivityStat{ActivityID: activity.ID, Name: activity.Name}
	}

	mid := start.AddDays(days / 2)
	var firstHalf, secondHalf CompletionStat
	for _, day := range schedule.Range(start, today) {
		token := schedule.TokenOf(day)
		weekday := stats.ByWeekday[token]
		for _, activity := range scoring.Due(scoringActivities, day) {
			hit := done[completionKey{activity.ID, day}]
			weekday.add(hit)
			perActivity[activity.ID].add(hit)
			if day.Before(mid) {
				firstHalf.add(hit)
			} else {
				secondHalf.add(hit)
			}
		}
		stats.ByWeekday[token] = weekday
	}
	for token, weekday := range stats.ByWeekday {
		weekday.Rate = scoring.Percentage(weekday.Completed, weekday.Scheduled)
		stats.ByWeekday[token] = weekday
	}

	ranked := make([]ActivityStat, 0, len(perActivity))
	for _, activity := range activities {
		stat := perActivity[activity.ID]
		if stat.Scheduled == 0 {
			continue
		}
		stat.Rate = scoring.Percentage(stat.Completed, stat.Scheduled)
		ranked = append(ranked, *stat)
	}
	slices.SortStableFunc(ranked, func(a, b ActivityStat) int {
		return cmp.Compare(b.Rate, a.Rate)
	})
	stats.BestActivities = ranked[:min(rankingSize, len(ranked))]

	worst := slices.Clone(ranked)
	slices.Reverse(worst)
	stats.WorstActivities = worst[:min(rankingSize, len(worst))]

	stats.FirstHalfRate = scoring.Percentage(firstHalf.Completed, firstHalf.Scheduled)
	stats.SecondHalfRate = scoring.Percentage(secondHalf.Completed, secondHalf.Scheduled)
	stats.Trend = rateTrend(stats.FirstHalfRate, stats.SecondHalfRate)
	return stats, nil
}

// CategoryBreakdown 按分类汇总区间内的完成情况，按完成率降序
func (s *AnalyticsService) CategoryBreakdown(userID uint, start, end schedule.Date) ([]CategoryProgress, error) {
	if err := checkSpan(start, end, MaxRangeDays); err != nil {
		return nil, err
	}

	categories, err := s.categories.List(userID)
	if err != nil {
		return nil, err
	}
	activities, err := s.activities.List(userID, ActivityFilter{})
	if err != nil {
		return nil, err
	}
	completions, err := s.logs.Completions(userID, start, end)
	if err != nil {
		return nil, err
	}
	done := completionIndex(completions)

	progress := make(map[uint]*CategoryProgress, len(categories))
	for _, category := range categories {
		id := category.ID
		progress[id] = &CategoryProgress{CategoryID: &id, Name: category.Name, Color: category.Color}
	}
	uncategorized := &CategoryProgress{Name: "Uncategorized", Color: db.DefaultCategoryColor}

	days := schedule.Range(start, end)
	for _, activity := range activities {
		target := uncategorized
		if activity.CategoryID != nil {
			if found, ok := progress[*activity.CategoryID]; ok {
				target = found
			}
		}
		target.Activities++

		rule := ActivityRule(activity)
		for _, day := range days {
			if !schedule.IsScheduledForDay(rule, day) {
				continue
			}
			hit := done[completionKey{activity.ID, day}]
			target.add(hit)
			if hit {
				target.Points += activity.Points
			}
		}
	}

	result := make([]CategoryProgress, 0, len(progress)+1)
	for _, category := range categories {
		if item := progress[category.ID]; item.Activities > 0 {
			item.Rate = scoring.Percentage(item.Completed, item.Scheduled)
			result = append(result, *item)
		}
	}
	if uncategorized.Activities > 0 {
		uncategorized.Rate = scoring.Percentage(uncategorized.Completed, uncategorized.Scheduled)
		result = append(result, *uncategorized)
	}

	slices.SortStableFunc(result, func(a, b CategoryProgress) int {
		return cmp.Compare(b.Rate, a.Rate)
	})
	return result, nil
}

// WeeklySummary 汇总截至 end 的最近 7 天，特殊日按 100% 计
func (s *AnalyticsService) WeeklySummary(userID uint, end schedule.Date) (*WeeklySummary, error) {
	start := end.AddDays(-6)

	activities, err := s.activities.List(userID, ActivityFilter{})
	if err != nil {
		return nil, err
	}
	completions, err := s.logs.Completions(userID, start, end)
	if err != nil {
		return nil, err
	}
	special, err := s.specialDays.ByDate(userID, start, end)
	if err != nil {
		return nil, err
	}

	scoringActivities := ToScoringActivities(activities)
	byDate := make(map[schedule.Date][]scoring.Completion)
	for _, completion := range completions {
		byDate[completion.Date] = append(byDate[completion.Date], completion)
	}

	summary := &WeeklySummary{Start: start, End: end}
	best := -1
	sum := 0
	for _, day := range schedule.Range(start, end) {
		entry := SummaryDay{Date: day}
		raw := scoring.Compute(scoringActivities, byDate[day], day, day)
		summary.TotalPoints += raw.TotalPoints

		if dayType, ok := special[day]; ok {
			entry.Percentage = 100
			entry.SpecialDay = dayType
		} else {
			entry.Percentage = raw.Percentage
			entry.Completed = raw.CompletedCount
			entry.Total = raw.TotalActivities
		}

		if entry.Percentage > best {
			best = entry.Percentage
			summary.BestDay = day.Weekday().String()
			bestDate := day
			summary.BestDate = &bestDate
		}
		sum += entry.Percentage
		summary.Days = append(summary.Days, entry)
	}

	summary.AvgCompletion = (sum*2 + len(summary.Days)) / (2 * len(summary.Days))

	mid := len(summary.Days) / 2
	summary.Trend = summaryTrend(averagePercentage(summary.Days[:mid]), averagePercentage(summary.Days[mid:]))

	var openTodos int64
	if err := s.db.Model(&db.Todo{}).
		Where("user_id = ? AND is_completed = ?", userID, false).
		Count(&openTodos).Error; err != nil {
		return nil, fmt.Errorf("count open todos: %w", err)
	}
	summary.OpenTodos = int(openTodos)

	return summary, nil
}

type completionKey struct {
	activityID uint
	date       schedule.Date
}

func completionIndex(completions []scoring.Completion) map[completionKey]bool {
	index := make(map[completionKey]bool, len(completions))
	for _, completion := range completions {
		index[completionKey{completion.ActivityID, completion.Date}] = true
	}
	return index
}

func (c *CompletionStat) add(completed bool) {
	c.Scheduled++
	if completed {
		c.Completed++
	}
}

func rateTrend(first, second int) string {
	// 后半段比前半段高 10% 以上视为上升，低 10% 以上视为下降
	switch {
	case second*10 > first*11:
		return TrendImproving
	case second*10 < first*9:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func summaryTrend(first, second float64) string {
	switch {
	case second > first+5:
		return TrendUp
	case second < first-5:
		return TrendDown
	default:
		return TrendSteady
	}
}

func averagePercentage(days []SummaryDay) float64 {
	if len(days) == 0 {
		return 0
	}
	total := 0
	for _, day := range days {
		total += day.Percentage
	}
	return float64(total) / float64(len(days))
}
