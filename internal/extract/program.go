package extract

import (
	"fmt"
	"regexp"
	"strings"
)

func compileComposers(names []string, spanMin, spanMax int) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(names))
	for _, n := range names {
		out = append(out, regexp.MustCompile(fmt.Sprintf(`(?i)%s[^\n]{%d,%d}`, regexp.QuoteMeta(n), spanMin, spanMax)))
	}
	return out
}

// extractProgram 先收集固定曲目模式（无条件保留），再按作曲家词表收集候选行。
// 候选行需满足长度开区间，且不含票价类关键词。
func extractProgram(text string, composers []*regexp.Regexp, r Rules) []string {
	out := make([]string, 0, 4)

	for _, re := range r.RepertoirePatterns {
		for _, m := range re.FindAllString(text, -1) {
			if p := strings.TrimSpace(m); p != "" {
				out = appendUnique(out, p)
			}
		}
	}

	for _, re := range composers {
		for _, m := range re.FindAllString(text, -1) {
			p := strings.TrimSpace(m)
			n := runeLen(p)
			if n <= r.ProgramMinLen || n >= r.ProgramMaxLen {
				continue
			}
			if containsAnyFold(p, r.ProgramStopWords) {
				continue
			}
			out = appendUnique(out, p)
		}
	}

	return capList(out, r.MaxProgram)
}
