package extract

import "strings"

// extractDate 返回第一条命中规则的原始文本；不做日历校验（2025.13.45 原样返回）。
func extractDate(text string, r Rules) string {
	for _, re := range r.DatePatterns {
		if m := re.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}
