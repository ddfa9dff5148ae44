package extract

import (
	"regexp"
	"strings"
)

// 姓名拆分：先取一段 한글（允许空格），后面可选一段拉丁字母拼写。
var nameSplitRE = regexp.MustCompile(`([가-힣\s]+)\s*([A-Za-z\s\-]+)?`)

// extractPerformers 两轮抽取：
//  1. 角色表：“지휘 | 정명훈 Myung-Whun Chung” -> “정명훈 (Myung-Whun Chung) - 지휘”，按整条去重
//  2. 通用“출연/연주자”行：逗号拆分，按姓名部分（" - " 之前）去重
//
// 上限在最后统一截断。
func extractPerformers(text string, r Rules) []string {
	out := make([]string, 0, 8)

	for _, rr := range r.Roles {
		for _, m := range rr.Pattern.FindAllStringSubmatch(text, -1) {
			name := strings.TrimSpace(m[1])
			if runeLen(name) <= 1 {
				continue
			}
			out = appendUnique(out, formatName(name)+" - "+rr.Role)
		}
	}

	for _, re := range r.CastPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			for _, name := range strings.Split(m[1], ",") {
				name = strings.TrimSpace(name)
				if runeLen(name) <= 1 || hasPerformerName(out, name) {
					continue
				}
				out = append(out, name)
			}
		}
	}

	return capList(out, r.MaxPerformers)
}

// formatName 把原始姓名整理为“한글 (Latin)”或“한글”。
// 没有 한글 段（例如纯拉丁字母姓名）时原样返回。
func formatName(raw string) string {
	m := nameSplitRE.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	kor := strings.TrimSpace(m[1])
	lat := strings.TrimSpace(m[2])
	switch {
	case kor == "":
		return raw
	case lat != "":
		return kor + " (" + lat + ")"
	default:
		return kor
	}
}

func hasPerformerName(list []string, name string) bool {
	for _, p := range list {
		if n, _, _ := strings.Cut(p, " - "); n == name {
			return true
		}
	}
	return false
}
