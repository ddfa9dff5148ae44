package extract

import (
	"regexp"
	"testing"
)

func int64Ptr(v int64) *int64 { return &v }

func TestRules_ProfilesDoNotShareTables(t *testing.T) {
	want := FullRules().RepertoirePatterns[3].String()

	compact := CompactRules()
	compact.RepertoirePatterns = append(compact.RepertoirePatterns, regexp.MustCompile(`(?i)말러\s*교향곡[^\n]{0,50}`))
	compact.DatePatterns = append(compact.DatePatterns, regexp.MustCompile(`\d{2}/\d{2}`))
	compact.DatePatterns[0] = regexp.MustCompile(`x`)
	compact.CastPatterns[0] = regexp.MustCompile(`y`)
	compact.Roles = append(compact.Roles, RoleRule{Role: "첼로", Pattern: rolePattern(`첼로`)})

	full := FullRules()
	if got := full.RepertoirePatterns[3].String(); got != want {
		t.Fatalf("compact 追加曲目规则后 full 的第 4 条被改写：%q", got)
	}
	if len(full.DatePatterns) != 4 || full.DatePatterns[0].String() == "x" {
		t.Fatalf("修改 compact 的日期规则不应影响 full：%v", full.DatePatterns)
	}
	if full.CastPatterns[0].String() == "y" {
		t.Fatalf("修改 compact 的出演规则不应影响 full")
	}
	if full.Roles[7].Role != "피아노" {
		t.Fatalf("compact 追加角色后 full 的角色表被改写：%q", full.Roles[7].Role)
	}
	if n := len(CompactRules().RepertoirePatterns); n != 3 {
		t.Fatalf("compact 曲目规则应为 3 条，实际 %d", n)
	}
}

func TestRules_WithPriceRangeAcceptsZero(t *testing.T) {
	r := FullRules().With(Overrides{PriceMin: int64Ptr(0)})
	if r.PriceMin != 0 || r.PriceMax != 1000000 {
		t.Fatalf("price_min=0 应生效：[%d,%d]", r.PriceMin, r.PriceMax)
	}
	if got := extractPrice("무료 0원", r); len(got) != 1 || got[0] != "0원" {
		t.Fatalf("下界为 0 时 0원 应保留：%q", got)
	}

	r = FullRules().With(Overrides{})
	if r.PriceMin != 1000 || r.PriceMax != 1000000 {
		t.Fatalf("未设置时应沿用默认区间：[%d,%d]", r.PriceMin, r.PriceMax)
	}
}
