package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractTitle 先按模式优先级匹配文本，再回退到 DOM 选择器。
// 每条模式只看最左侧的一次命中；命中太短或含样板词时换下一条模式。
func extractTitle(doc *goquery.Document, text string, r Rules) string {
	for _, re := range r.TitlePatterns {
		m := re.FindString(text)
		if m == "" {
			continue
		}
		if t := strings.TrimSpace(m); acceptTitle(t, r) {
			return t
		}
	}

	if doc != nil {
		for _, sel := range r.TitleSelectors {
			el := doc.Find(sel).First()
			if el.Length() == 0 {
				continue
			}
			if t := strings.TrimSpace(el.Text()); acceptTitle(t, r) {
				return t
			}
		}
	}
	return r.TitleSentinel
}

func acceptTitle(t string, r Rules) bool {
	if runeLen(t) <= r.TitleMinLen {
		return false
	}
	return !containsAnyFold(t, r.TitleBoilerplate)
}
