package locale

import "time"

// Pick returns the text matching the request language, defaulting to Chinese.
func Pick(language, english, chinese string) string {
	if NormalizeLanguage(language) == LanguageEnglish {
		if english != "" {
			return english
		}
		return chinese
	}
	if chinese != "" {
		return chinese
	}
	return english
}

// Catalog 以中文原文为键保存英文译文
type Catalog map[string]string

// Translate 返回 language 对应的文本，未收录的原文原样返回。
func (c Catalog) Translate(language, chinese string) string {
	if NormalizeLanguage(language) != LanguageEnglish {
		return chinese
	}
	return Pick(language, c[chinese], chinese)
}

var chineseWeekdays = [7]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

// WeekdayName 返回星期的本地化名称
func WeekdayName(language string, day time.Weekday) string {
	return Pick(language, day.String(), chineseWeekdays[day])
}
