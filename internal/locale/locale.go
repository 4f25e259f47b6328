package locale

import (
	"strconv"
	"strings"
)

const (
	LanguageChinese = "zh"
	LanguageEnglish = "en"
)

// Preference 是一次请求解析出的语言偏好
type Preference struct {
	Language string
	// ContentLanguage 用于响应头 Content-Language
	ContentLanguage string
}

func NormalizeLanguage(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "zh") || trimmed == "cn" {
		return LanguageChinese
	}
	if strings.HasPrefix(trimmed, "en") {
		return LanguageEnglish
	}
	return ""
}

// LanguageFromAcceptLanguage 按出现顺序返回第一个受支持的语言，q=0 的项被忽略。
func LanguageFromAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if zeroWeight(params) {
			continue
		}
		if language := NormalizeLanguage(tag); language != "" {
			return language
		}
	}
	return ""
}

func PreferenceForLanguage(language string) Preference {
	if NormalizeLanguage(language) == LanguageEnglish {
		return Preference{Language: LanguageEnglish, ContentLanguage: "en-US"}
	}
	return Preference{Language: LanguageChinese, ContentLanguage: "zh-CN"}
}

// zeroWeight 报告参数中的 q 值是否为 0（如 q=0、q=0.000），无法解析的 q 按默认权重处理
func zeroWeight(params string) bool {
	for _, param := range strings.Split(params, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "q") {
			continue
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return false
		}
		return q <= 0
	}
	return false
}
