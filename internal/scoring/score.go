package scoring

import (
	"github.com/tally/internal/schedule"
	"github.com/tally/internal/skips"
)

// Score 是某个日期区间的得分汇总，不落库，按需从活动与完成记录计算。
type Score struct {
	TotalPoints       int `json:"total_points"`
	MaxPossiblePoints int `json:"max_possible_points"`
	CompletedCount    int `json:"completed_count"`
	TotalActivities   int `json:"total_activities"`
	Percentage        int `json:"percentage"`
}

// Activity 是计分所需的活动视图。
type Activity struct {
	ID     uint
	Points int
	Rule   schedule.Rule
	Active bool
}

// ScheduledOn 判断活动在 date 是否安排。
func (a Activity) ScheduledOn(date schedule.Date) bool {
	return schedule.IsScheduledForDay(a.Rule, date)
}

// Completion 是一条完成记录的计分视图。
type Completion struct {
	ActivityID uint
	Date       schedule.Date
	Points     int
}

// Percentage 返回 completed/total 的百分比，四舍五入（半数进位）到整数并限制在 [0, 100]。
// total 不大于 0 时返回 0。
func Percentage(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	pct := (completed*200 + total) / (2 * total)
	if pct > 100 {
		return 100
	}
	return pct
}

// Due 返回在 date 安排且处于启用状态的活动。
func Due(activities []Activity, date schedule.Date) []Activity {
	due := make([]Activity, 0, len(activities))
	for _, activity := range activities {
		if activity.Active && activity.ScheduledOn(date) {
			due = append(due, activity)
		}
	}
	return due
}

// Compute 计算 [start, end] 区间内的原始得分。
// 每个启用活动在其安排的每一天计入一次总数，正分计入满分；
// 区间内的每条完成记录计入一次完成数与其分值。
func Compute(activities []Activity, completions []Completion, start, end schedule.Date) Score {
	var score Score

	for _, day := range schedule.Range(start, end) {
		for _, activity := range Due(activities, day) {
			score.TotalActivities++
			if activity.Points > 0 {
				score.MaxPossiblePoints += activity.Points
			}
		}
	}

	for _, completion := range completions {
		if completion.Date.Before(start) || completion.Date.After(end) {
			continue
		}
		score.CompletedCount++
		score.TotalPoints += completion.Points
	}

	score.Percentage = Percentage(score.CompletedCount, score.TotalActivities)
	return score
}

// AdjustScore 将 date 当天被跳过且确实安排在当天的活动从分母中扣除。
//
// 跳过集合为空时原样返回 raw。否则扣除这些活动的正分与数量，
// 以不变的完成数重新计算百分比；TotalPoints 与 CompletedCount 保持不变。
func AdjustScore(raw Score, activities []Activity, skipped skips.IDSet, date schedule.Date) Score {
	if skipped.IsEmpty() {
		return raw
	}

	var skippedPositivePoints, skippedCount int
	for _, activity := range activities {
		if !skipped.Contains(activity.ID) || !activity.ScheduledOn(date) {
			continue
		}
		skippedCount++
		if activity.Points > 0 {
			skippedPositivePoints += activity.Points
		}
	}

	adjusted := raw
	adjusted.MaxPossiblePoints = raw.MaxPossiblePoints - skippedPositivePoints
	adjusted.TotalActivities = raw.TotalActivities - skippedCount
	adjusted.Percentage = Percentage(raw.CompletedCount, adjusted.TotalActivities)
	return adjusted
}
