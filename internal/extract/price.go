package extract

import (
	"strconv"
	"strings"
)

// extractPrice 优先收集带座位等级的票价；全部为空时才（可选地）回退到裸金额。
// 裸金额只保留数值落在 [PriceMin, PriceMax] 内的项，用来过滤“500원 수수료”之类噪声。
func extractPrice(text string, r Rules) []string {
	out := make([]string, 0, 4)

	for _, re := range r.SeatPricePatterns {
		for _, m := range re.FindAllString(text, -1) {
			if p := strings.TrimSpace(m); p != "" {
				out = appendUnique(out, p)
			}
		}
	}

	if len(out) == 0 && r.PriceFallback {
		for _, m := range bareAmountPattern.FindAllString(text, -1) {
			p := strings.TrimSpace(m)
			v, ok := amountOf(p)
			if !ok || v < r.PriceMin || v > r.PriceMax {
				continue
			}
			out = appendUnique(out, p)
		}
	}

	return capList(out, r.MaxPrices)
}

// amountOf 去掉非数字字符后解析金额；没有数字（例如 ",원"）返回 false。
func amountOf(s string) (int64, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
