package schedule

import (
	"errors"
	"fmt"
	"strings"
)

// Frequency 描述活动的重复周期。
type Frequency string

const (
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
)

var (
	// ErrInvalidFrequency 表示未知的重复周期。
	ErrInvalidFrequency = errors.New("invalid schedule frequency")
	// ErrMissingBiweeklyStart 表示双周活动缺少锚定日期。
	ErrMissingBiweeklyStart = errors.New("biweekly schedule requires a start date")
)

// ParseFrequency 解析重复周期，空值视为 weekly。
func ParseFrequency(value string) (Frequency, error) {
	switch Frequency(strings.ToLower(strings.TrimSpace(value))) {
	case "", Weekly:
		return Weekly, nil
	case Biweekly:
		return Biweekly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, value)
	}
}

// Rule 是一条活动的排期规则。
type Rule struct {
	Days          Days
	Frequency     Frequency
	BiweeklyStart *Date
}

// Validate 在写入活动时检查规则完整性。IsScheduledForDay 本身从不报错。
func (r Rule) Validate() error {
	switch r.Frequency {
	case "", Weekly:
	case Biweekly:
		if r.BiweeklyStart == nil || r.BiweeklyStart.IsZero() {
			return ErrMissingBiweeklyStart
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, r.Frequency)
	}

	for _, token := range r.Days {
		if !IsWeekdayToken(token) {
			return fmt.Errorf("%w: %q", ErrInvalidWeekday, token)
		}
	}
	return nil
}

// IsScheduledForDay 判断规则在指定日期是否安排。
//
// 双周规则先过周期门：锚定日期缺失或目标日期早于锚定日期时不安排；
// 以锚定日期起经过的整日数除以 7 得到周偏移，只有偶数周偏移可以安排。
// 随后再过星期门：Days 为 nil 时每天都通过，否则按星期标记判断。
func IsScheduledForDay(rule Rule, date Date) bool {
	if rule.Frequency == Biweekly {
		if rule.BiweeklyStart == nil || rule.BiweeklyStart.IsZero() {
			return false
		}
		daysDiff := date.DaysSince(*rule.BiweeklyStart)
		if daysDiff < 0 {
			return false
		}
		if (daysDiff/7)%2 != 0 {
			return false
		}
	}

	if rule.Days == nil {
		return true
	}
	return rule.Days.Contains(TokenOf(date))
}

// ScheduledOn 是 IsScheduledForDay 的方法形式。
func (r Rule) ScheduledOn(date Date) bool {
	return IsScheduledForDay(r, date)
}
