package schedule

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout 是日期在 API、存储键和导出文件中的统一格式。
const DateLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// Date 表示一个日历日期（年/月/日），不携带时区与时刻。
// 所有日差与星期计算都基于 Date 完成，避免 UTC 与本地时间互转带来的前后一天偏移。
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate 构造日期，越界的月/日会按 time.Date 的规则归一化。
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf 取 t 在其自身时区下的年月日。
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today 返回 loc 时区下的今天，loc 为空时使用本地时区。
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(time.Now().In(loc))
}

// ParseDate 解析 YYYY-MM-DD。
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return DateOf(t), nil
}

// MustParseDate 用于测试与常量初始化。
func MustParseDate(value string) Date {
	d, err := ParseDate(value)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) midnightUTC() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Time 返回该日期在 loc 时区的零点。
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Weekday 按 Go 的编号返回星期（Sunday = 0）。
func (d Date) Weekday() time.Weekday {
	return d.midnightUTC().Weekday()
}

// AddDays 返回 n 天之后（n 为负数时为之前）的日期。
func (d Date) AddDays(n int) Date {
	return DateOf(d.midnightUTC().AddDate(0, 0, n))
}

// DaysSince 返回 d 与 other 之间相差的整日数，d 早于 other 时为负数。
func (d Date) DaysSince(other Date) int {
	return int((d.midnightUTC().Unix() - other.midnightUTC().Unix()) / secondsPerDay)
}

func (d Date) Before(other Date) bool {
	return d.DaysSince(other) < 0
}

func (d Date) After(other Date) bool {
	return d.DaysSince(other) > 0
}

func (d Date) Equal(other Date) bool {
	return d == other
}

// StartOfWeek 返回 d 所在周的周一。
func (d Date) StartOfWeek() Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// StartOfMonth 返回 d 所在月的第一天。
func (d Date) StartOfMonth() Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

// EndOfMonth 返回 d 所在月的最后一天。
func (d Date) EndOfMonth() Date {
	return NewDate(d.Year, d.Month+1, 0)
}

func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Range 返回 [start, end] 闭区间内的所有日期，end 早于 start 时返回空。
func Range(start, end Date) []Date {
	n := end.DaysSince(start)
	if n < 0 {
		return nil
	}
	days := make([]Date, 0, n+1)
	for i := 0; i <= n; i++ {
		days = append(days, start.AddDays(i))
	}
	return days
}
