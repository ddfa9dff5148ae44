// Package extract 把演出详情页的 HTML 变成结构化的 ConcertRecord。
//
// 约束：
// - 纯函数：不做网络、不写文件、不打日志；相同输入 + 相同时钟 => 相同输出
// - 字段之间互不依赖；某个字段没命中只会得到默认值，不会让整条记录失败
// - 规则表（Rules）都是有序的，优先级由表内顺序决定
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/John-Robertt/culturelog/internal/domain"
)

// ErrNoContent 表示没有可抽取的内容（空响应、非 HTML、抓取失败）。
var ErrNoContent = errors.New("no content")

// Extractor 持有编译好的规则表；构造后只读，可并发使用。
type Extractor struct {
	rules     Rules
	venues    []venueMatcher
	composers []*regexp.Regexp
	now       func() time.Time
}

// Option 调整 Extractor 的可选行为。
type Option func(*Extractor)

// WithClock 替换 scrapedAt 使用的时钟（测试用）。
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// New 校验并编译规则表。
func New(rules Rules, opts ...Option) (*Extractor, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	e := &Extractor{
		rules:     rules,
		venues:    compileVenues(rules.Venues, rules.VenueContext),
		composers: compileComposers(rules.Composers, rules.ComposerSpanMin, rules.ComposerSpanMax),
		now:       time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Default 返回使用 FullRules 的 Extractor。
func Default() *Extractor {
	e, err := New(FullRules())
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Extractor) Rules() Rules { return e.rules }

// Extract 从一页 HTML 中抽取全部字段。
//
// 空白或不含任何标签的输入返回 ErrNoContent；其余情况总是返回完整记录。
func (e *Extractor) Extract(pageURL string, html []byte) (domain.ConcertRecord, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return domain.ConcertRecord{}, fmt.Errorf("pageURL 不能为空")
	}
	trimmed := bytes.TrimSpace(html)
	if len(trimmed) == 0 || !bytes.ContainsRune(trimmed, '<') {
		return domain.ConcertRecord{}, ErrNoContent
	}

	doc, err := parseDocument(trimmed)
	if err != nil {
		return domain.ConcertRecord{}, fmt.Errorf("%w: %v", ErrNoContent, err)
	}
	text := flattenText(doc, e.rules.StripScripts)

	rec := domain.ConcertRecord{
		SourceURL:  pageURL,
		ScrapedAt:  e.now(),
		Title:      extractTitle(doc, text, e.rules),
		Date:       extractDate(text, e.rules),
		Venue:      extractVenue(text, e.venues),
		Performers: extractPerformers(text, e.rules),
		Program:    extractProgram(text, e.composers, e.rules),
		Price:      extractPrice(text, e.rules),
	}
	rec.Normalize()
	return rec, nil
}

// Extract 使用默认规则集抽取。
func Extract(pageURL string, html []byte) (domain.ConcertRecord, error) {
	return defaultExtractor.Extract(pageURL, html)
}

var defaultExtractor = Default()
