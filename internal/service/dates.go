package service

import (
	"fmt"
	"time"

	"github.com/tally/internal/schedule"
)

// 日期列统一保存为 UTC 零点，避免时区导致跨日
func dbDate(d schedule.Date) time.Time {
	return d.Time(time.UTC)
}

func fromDBDate(t time.Time) schedule.Date {
	return schedule.DateOf(t.UTC())
}

func dbDatePtr(d *schedule.Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := dbDate(*d)
	return &t
}

func fromDBDatePtr(t *time.Time) *schedule.Date {
	if t == nil {
		return nil
	}
	d := fromDBDate(*t)
	return &d
}

// checkSpan 校验闭区间 [start, end] 有序且不超过 maxDays 天
func checkSpan(start, end schedule.Date, maxDays int) error {
	if end.Before(start) {
		return fmt.Errorf("%w: end before start", ErrInvalidRange)
	}
	if end.DaysSince(start)+1 > maxDays {
		return fmt.Errorf("%w: span exceeds %d days", ErrInvalidRange, maxDays)
	}
	return nil
}
