package schedule

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidWeekday 表示出现了 mon..sun 之外的星期标记。
var ErrInvalidWeekday = errors.New("invalid weekday token")

// weekdayTokens 以周一为首，下标即 ISO 风格的星期序号减一。
var weekdayTokens = [7]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// WeekdayTokens 返回全部合法的星期标记（周一在前）。
func WeekdayTokens() []string {
	return weekdayTokens[:]
}

// TokenOf 返回日期对应的星期标记。Go 的 Sunday = 0 需先换算为周一为首的下标。
func TokenOf(d Date) string {
	return weekdayTokens[(int(d.Weekday())+6)%7]
}

// IsWeekdayToken 判断字符串是否为合法星期标记（忽略大小写与空白）。
func IsWeekdayToken(value string) bool {
	return tokenIndex(value) >= 0
}

func tokenIndex(value string) int {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for i, token := range weekdayTokens {
		if token == normalized {
			return i
		}
	}
	return -1
}

// Days 是活动安排的星期集合。nil 表示每天都安排。
// 由 ParseDays 构造的值总是按周一到周日排序且不含重复。
type Days []string

// ParseDays 校验并归一化星期标记。nil 或空列表都表示每天。
func ParseDays(values []string) (Days, error) {
	if len(values) == 0 {
		return nil, nil
	}

	indexes := make([]int, 0, len(values))
	for _, value := range values {
		idx := tokenIndex(value)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidWeekday, value)
		}
		indexes = append(indexes, idx)
	}

	slices.Sort(indexes)
	indexes = slices.Compact(indexes)

	days := make(Days, 0, len(indexes))
	for _, idx := range indexes {
		days = append(days, weekdayTokens[idx])
	}
	return days, nil
}

// ParseDaysString 解析逗号分隔的存储格式，空串表示每天。
func ParseDaysString(value string) (Days, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	return ParseDays(strings.Split(value, ","))
}

// EveryDay 报告集合是否表示每天都安排。
func (d Days) EveryDay() bool {
	return d == nil
}

// Contains 判断星期标记是否在集合中。
func (d Days) Contains(token string) bool {
	idx := tokenIndex(token)
	if idx < 0 {
		return false
	}
	return slices.Contains(d, weekdayTokens[idx])
}

// String 返回逗号分隔的存储格式，每天安排时为空串。
func (d Days) String() string {
	return strings.Join(d, ",")
}
