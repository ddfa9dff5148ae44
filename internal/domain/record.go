package domain

import "time"

// ConcertRecord 是一次页面抽取的结构化结果（对外 JSON 契约）。
//
// 约束：
// - 每次抽取新建一条，构造后不再修改
// - 缺失字段使用默认值（空串 / 空数组），JSON 中不出现 null
// - Title 未命中时为规则集配置的占位文本
type ConcertRecord struct {
	SourceURL  string    `json:"sourceUrl"`
	ScrapedAt  time.Time `json:"scrapedAt"`
	Title      string    `json:"title"`
	Date       string    `json:"date"`
	Venue      string    `json:"venue"`
	Performers []string  `json:"performers"`
	Program    []string  `json:"program"`
	Price      []string  `json:"price"`
}

// Normalize 把 nil 切片替换为空切片，保证 JSON 输出稳定。
func (r *ConcertRecord) Normalize() {
	if r.Performers == nil {
		r.Performers = []string{}
	}
	if r.Program == nil {
		r.Program = []string{}
	}
	if r.Price == nil {
		r.Price = []string{}
	}
}
