package extract

import (
	"fmt"
	"regexp"
	"strings"
)

type venueMatcher struct {
	name    string
	context *regexp.Regexp // nil：只返回场馆名
}

func compileVenues(names []string, contextLen int) []venueMatcher {
	out := make([]venueMatcher, 0, len(names))
	for _, n := range names {
		vm := venueMatcher{name: n}
		if contextLen > 0 {
			vm.context = regexp.MustCompile(fmt.Sprintf(`%s[^\n]{0,%d}`, regexp.QuoteMeta(n), contextLen))
		}
		out = append(out, vm)
	}
	return out
}

// extractVenue 按词表顺序（不是出现位置）返回第一个出现在文本中的场馆。
func extractVenue(text string, venues []venueMatcher) string {
	for _, v := range venues {
		if !strings.Contains(text, v.name) {
			continue
		}
		if v.context != nil {
			if m := v.context.FindString(text); m != "" {
				return strings.TrimSpace(m)
			}
		}
		return v.name
	}
	return ""
}
