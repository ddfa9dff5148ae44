package extract

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

const (
	ProfileFull    = "full"
	ProfileCompact = "compact"
)

// RoleRule 是“역할 | 이름”形式的一条角色规则：Pattern 的第 1 个捕获组是姓名。
type RoleRule struct {
	Role    string
	Pattern *regexp.Regexp
}

// Rules 是抽取器使用的全部有序词表与阈值。
//
// 约束：
// - 所有列表都是有序的：同一字段多条规则命中时，靠前的规则优先（不看命中位置）
// - Rules 构造后只读；Extractor 可以被多个 goroutine 共享
type Rules struct {
	Profile string

	TitlePatterns    []*regexp.Regexp
	TitleSelectors   []string
	TitleBoilerplate []string // 小写比较
	TitleMinLen      int      // 候选标题长度必须 > TitleMinLen（按 rune 计）
	TitleSentinel    string

	DatePatterns []*regexp.Regexp

	Venues       []string
	VenueContext int // >0 时附带场馆名后同一行最多 N 个字符

	Roles         []RoleRule
	CastPatterns  []*regexp.Regexp // 通用“출연/연주자”行，捕获组 1 为逗号分隔的姓名
	MaxPerformers int

	RepertoirePatterns []*regexp.Regexp
	Composers          []string
	ComposerSpanMin    int
	ComposerSpanMax    int
	ProgramMinLen      int // 开区间下界
	ProgramMaxLen      int // 开区间上界
	ProgramStopWords   []string
	MaxProgram         int

	SeatPricePatterns []*regexp.Regexp
	PriceFallback     bool
	PriceMin          int64
	PriceMax          int64
	MaxPrices         int

	StripScripts bool
}

var (
	defaultVenues = []string{
		"롯데콘서트홀", "예술의전당", "SAC", "세종문화회관", "통영국제음악당",
		"LG아트센터", "금호아트홀", "블루스퀘어", "IBK챔버홀", "리사이틀홀",
	}

	defaultComposers = []string{
		"Bach", "Mozart", "Beethoven", "Brahms", "Chopin", "Schubert",
		"Rachmaninoff", "Tchaikovsky", "Mahler", "Debussy", "Ravel",
		"바흐", "모차르트", "베토벤", "브람스", "쇼팽", "슈베르트", "차이콥스키", "라흐마니노프",
	}

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}[-.]\d{1,2}[-.]\d{1,2}\s*\([월화수목금토일]\)\s*\d{1,2}:\d{2}`),
		regexp.MustCompile(`\d{4}년\s*\d{1,2}월\s*\d{1,2}일\s*\([월화수목금토일]\)\s*\d{1,2}:\d{2}`),
		regexp.MustCompile(`\d{4}[-.]\d{1,2}[-.]\d{1,2}`),
		regexp.MustCompile(`\d{4}년\s*\d{1,2}월\s*\d{1,2}일`),
	}

	castPatterns = []*regexp.Regexp{
		regexp.MustCompile(`출연\s*[:\s]*([^\n]+)`),
		regexp.MustCompile(`연주자\s*[:\s]*([^\n]+)`),
	}

	repertoirePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)베토벤\s*교향곡\s*제\s*9번[^\n]{0,50}`),
		regexp.MustCompile(`(?i)Beethoven\s*Symphony\s*No\.?\s*9[^\n]{0,50}`),
		regexp.MustCompile(`(?i)교향곡\s*제\s*9번[^\n]*(?:합창|Choral)`),
		regexp.MustCompile(`(?i)베토벤[^\n]{0,30}(?:d단조|D\s*minor)[^\n]{0,30}(?:op\.?\s*125|Op\.?\s*125)`),
	}

	seatGradePrice    = regexp.MustCompile(`[RSABCVIP]+석\s*[:\s]*[\d,]+원`)
	seatCodePrice     = regexp.MustCompile(`[RSABCVIP]+\s*[:\s]*[\d,]+원`)
	flatRatePrice     = regexp.MustCompile(`(?:전석|일반|학생)\s*[:\s]*[\d,]+원`)
	obstructedPrice   = regexp.MustCompile(`시야방해[RSAB]*\s*[:\s]*[\d,]+원`)
	bareAmountPattern = regexp.MustCompile(`[\d,]+원`)
)

func rolePattern(label string) *regexp.Regexp {
	return regexp.MustCompile(label + `\s*[|│]\s*([^\n,]+)`)
}

func fullRoles() []RoleRule {
	return []RoleRule{
		{Role: "지휘", Pattern: rolePattern(`지휘`)},
		{Role: "소프라노", Pattern: rolePattern(`소프라노`)},
		{Role: "메조소프라노", Pattern: rolePattern(`메조\s*소프라노`)},
		{Role: "테너", Pattern: rolePattern(`테너`)},
		{Role: "바리톤", Pattern: rolePattern(`바리톤`)},
		{Role: "연주", Pattern: rolePattern(`연주`)},
		{Role: "합창", Pattern: rolePattern(`합창`)},
		{Role: "피아노", Pattern: rolePattern(`피아노`)},
		{Role: "바이올린", Pattern: rolePattern(`바이올린`)},
	}
}

// FullRules 返回默认规则集：上限较宽，场馆带上下文，启用裸金额兜底。
//
// 每次调用都返回独立的切片；调用方追加规则不会影响包级词表和其他规则集。
func FullRules() Rules {
	return Rules{
		Profile: ProfileFull,

		TitlePatterns: []*regexp.Regexp{
			regexp.MustCompile(`정명훈\s*&\s*원\s*코리아\s*오케스트라\s*<[^>]+>`),
			regexp.MustCompile(`[^<>\n]{5,100}<[^<>\n]+>`),
			regexp.MustCompile(`[가-힣\s\w&,.]{5,100}`),
		},
		TitleSelectors:   []string{"h1", "title", ".concert_title", ".performance_title"},
		TitleBoilerplate: []string{"공연정보", "lotte", "sac", "예매"},
		TitleMinLen:      5,
		TitleSentinel:    "제목 없음",

		DatePatterns: slices.Clone(datePatterns),

		Venues:       append([]string(nil), defaultVenues...),
		VenueContext: 30,

		Roles:         fullRoles(),
		CastPatterns:  slices.Clone(castPatterns),
		MaxPerformers: 15,

		RepertoirePatterns: slices.Clone(repertoirePatterns),
		Composers:          append([]string(nil), defaultComposers...),
		ComposerSpanMin:    5,
		ComposerSpanMax:    100,
		ProgramMinLen:      10,
		ProgramMaxLen:      150,
		ProgramStopWords:   []string{"가격", "price", "티켓", "ticket"},
		MaxProgram:         10,

		SeatPricePatterns: []*regexp.Regexp{seatGradePrice, seatCodePrice, flatRatePrice, obstructedPrice},
		PriceFallback:     true,
		PriceMin:          1000,
		PriceMax:          1000000,
		MaxPrices:         8,

		StripScripts: true,
	}
}

// CompactRules 返回精简规则集：上限更紧，只保留最常见的角色与座位格式，不做裸金额兜底。
func CompactRules() Rules {
	r := FullRules()
	r.Profile = ProfileCompact
	r.TitlePatterns = []*regexp.Regexp{
		r.TitlePatterns[0],
		r.TitlePatterns[1],
		regexp.MustCompile(`[가-힣\s\w&,.]{10,100}`),
	}
	r.TitleSentinel = "제목 추출 실패"
	r.VenueContext = 0
	r.Roles = slices.Clone(r.Roles[:7])
	r.MaxPerformers = 12
	r.RepertoirePatterns = slices.Clone(repertoirePatterns[:3])
	r.ComposerSpanMin = 10
	r.ComposerSpanMax = 80
	r.ProgramMaxLen = 120
	r.MaxProgram = 8
	r.SeatPricePatterns = []*regexp.Regexp{seatGradePrice, seatCodePrice, obstructedPrice}
	r.PriceFallback = false
	r.MaxPrices = 6
	return r
}

// RulesFor 按名称返回内置规则集（大小写不敏感；空串视为 full）。
func RulesFor(profile string) (Rules, error) {
	switch strings.ToLower(strings.TrimSpace(profile)) {
	case "", ProfileFull:
		return FullRules(), nil
	case ProfileCompact:
		return CompactRules(), nil
	default:
		return Rules{}, fmt.Errorf("未知 profile：%q（只能是 full 或 compact）", profile)
	}
}

// Validate 检查阈值是否自洽。
func (r Rules) Validate() error {
	switch {
	case r.TitleSentinel == "":
		return fmt.Errorf("title_sentinel 不能为空")
	case r.MaxPerformers < 1 || r.MaxProgram < 1 || r.MaxPrices < 1:
		return fmt.Errorf("列表上限必须 >= 1（performers=%d program=%d price=%d）", r.MaxPerformers, r.MaxProgram, r.MaxPrices)
	case r.ComposerSpanMin < 0 || r.ComposerSpanMax < r.ComposerSpanMin || r.ComposerSpanMax > 1000:
		return fmt.Errorf("composer span 无效：{%d,%d}", r.ComposerSpanMin, r.ComposerSpanMax)
	case r.ProgramMaxLen <= r.ProgramMinLen:
		return fmt.Errorf("program 长度区间无效：(%d,%d)", r.ProgramMinLen, r.ProgramMaxLen)
	case r.PriceFallback && (r.PriceMin < 0 || r.PriceMax < r.PriceMin):
		return fmt.Errorf("price 区间无效：[%d,%d]", r.PriceMin, r.PriceMax)
	case r.VenueContext < 0 || r.VenueContext > 1000:
		return fmt.Errorf("venue_context 无效：%d", r.VenueContext)
	}
	for i, v := range r.Venues {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("venues[%d] 不能为空", i)
		}
	}
	for i, c := range r.Composers {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("composers[%d] 不能为空", i)
		}
	}
	return nil
}

// Overrides 是配置层可以调整的部分；零值（或 nil）表示沿用规则集自带的值。
//
// 价格区间用指针：0 是合法的下界，不能拿零值当“未设置”。
type Overrides struct {
	MaxPerformers  int
	MaxProgram     int
	MaxPrices      int
	PriceMin       *int64
	PriceMax       *int64
	ExtraVenues    []string
	ExtraComposers []string
}

// With 返回应用了 o 的新规则集；追加的场馆/作曲家排在内置词表之后。
func (r Rules) With(o Overrides) Rules {
	if o.MaxPerformers > 0 {
		r.MaxPerformers = o.MaxPerformers
	}
	if o.MaxProgram > 0 {
		r.MaxProgram = o.MaxProgram
	}
	if o.MaxPrices > 0 {
		r.MaxPrices = o.MaxPrices
	}
	if o.PriceMin != nil {
		r.PriceMin = *o.PriceMin
	}
	if o.PriceMax != nil {
		r.PriceMax = *o.PriceMax
	}
	r.Venues = appendNew(append([]string(nil), r.Venues...), o.ExtraVenues)
	r.Composers = appendNew(append([]string(nil), r.Composers...), o.ExtraComposers)
	return r
}

func appendNew(list, extra []string) []string {
	for _, s := range extra {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		list = appendUnique(list, s)
	}
	return list
}
