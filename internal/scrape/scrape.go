// Package scrape 把抓取（fetch）与抽取（extract）串成一次完整的页面处理。
package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/culturelog/internal/domain"
	"github.com/John-Robertt/culturelog/internal/extract"
	"github.com/John-Robertt/culturelog/internal/fetch"
	"github.com/John-Robertt/culturelog/internal/infra/cache"
	"github.com/John-Robertt/culturelog/internal/metrics"
)

// ErrInvalidURL 表示输入不是 http(s) 绝对地址。
var ErrInvalidURL = errors.New("invalid url")

// RetrievalError 表示页面没有拿到（网络失败、超时、缓存未命中等）。
//
// 对调用方而言它与 extract.ErrNoContent 是同一种情况：errors.Is(err, extract.ErrNoContent) 为真。
type RetrievalError struct {
	URL string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("抓取失败 url=%s: %v", e.URL, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

func (e *RetrievalError) Is(target error) bool { return target == extract.ErrNoContent }

// Result 是一次成功抓取的完整产物。
type Result struct {
	Record       domain.ConcertRecord
	FetcherUsed  string
	Attempts     []fetch.Attempt
	CachedRecord bool // 页面来自缓存且直接复用了缓存中的抽取结果
}

// cachedRecord 是记录缓存的文件格式；规则集不同的记录不复用。
type cachedRecord struct {
	Profile string               `json:"profile"`
	Record  domain.ConcertRecord `json:"record"`
}

// Service 持有一次抓取需要的全部依赖；构造后只读，可并发使用。
type Service struct {
	Registry  fetch.Registry
	Order     []string
	Extractor *extract.Extractor
	Cache     *cache.Store // nil 表示不写缓存
	Timeout   time.Duration
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics // 可为 nil
}

// Scrape 抓取并抽取一个页面。
//
// 抓取阶段受 Timeout 约束；抽取阶段是纯计算，不受影响。
func (s *Service) Scrape(ctx context.Context, rawURL string) (Result, error) {
	start := time.Now()
	pageURL, err := ValidateURL(rawURL)
	if err != nil {
		s.observe("", err, start)
		return Result{}, err
	}

	fctx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	html, used, attempts, err := fetch.Chain(fctx, s.Registry, s.Order, pageURL)
	if err != nil {
		if fctx.Err() != nil && !errors.Is(err, fctx.Err()) {
			err = fmt.Errorf("%w: %w", fctx.Err(), err)
		}
		rerr := &RetrievalError{URL: pageURL, Err: err}
		s.Logger.Warn().Str("url", pageURL).Err(err).Int("attempts", len(attempts)).Msg("页面抓取失败")
		s.observe(used, rerr, start)
		return Result{Attempts: attempts}, rerr
	}

	if used == fetch.CacheName {
		if rec, ok := s.readCachedRecord(pageURL); ok {
			s.observe(used, nil, start)
			s.Logger.Info().Str("url", pageURL).Str("title", rec.Title).Msg("复用缓存记录")
			return Result{Record: rec, FetcherUsed: used, Attempts: attempts, CachedRecord: true}, nil
		}
	}

	if s.Cache != nil && used != fetch.CacheName {
		if werr := s.Cache.WritePage(pageURL, html); werr != nil {
			s.Logger.Debug().Str("url", pageURL).Err(werr).Msg("写入页面缓存失败")
		}
	}

	rec, err := s.Extractor.Extract(pageURL, html)
	if err != nil {
		s.Logger.Warn().Str("url", pageURL).Str("fetcher", used).Err(err).Msg("页面无可抽取内容")
		s.observe(used, err, start)
		return Result{FetcherUsed: used, Attempts: attempts}, err
	}

	if s.Cache != nil {
		cr := cachedRecord{Profile: s.Extractor.Rules().Profile, Record: rec}
		if b, merr := json.Marshal(cr); merr == nil {
			if werr := s.Cache.WriteRecord(pageURL, b); werr != nil {
				s.Logger.Debug().Str("url", pageURL).Err(werr).Msg("写入记录缓存失败")
			}
		}
	}

	s.countMisses(rec)
	s.observe(used, nil, start)
	s.Logger.Info().
		Str("url", pageURL).
		Str("fetcher", used).
		Str("title", rec.Title).
		Int("performers", len(rec.Performers)).
		Int("program", len(rec.Program)).
		Int("price", len(rec.Price)).
		Dur("elapsed", time.Since(start)).
		Msg("抓取完成")
	return Result{Record: rec, FetcherUsed: used, Attempts: attempts}, nil
}

// readCachedRecord 只在页面本身也来自缓存时调用：同一份 HTML、同一规则集的结果可以直接复用。
func (s *Service) readCachedRecord(pageURL string) (domain.ConcertRecord, bool) {
	if s.Cache == nil {
		return domain.ConcertRecord{}, false
	}
	b, ok, err := s.Cache.ReadRecord(pageURL)
	if err != nil || !ok {
		return domain.ConcertRecord{}, false
	}
	var cr cachedRecord
	if err := json.Unmarshal(b, &cr); err != nil {
		s.Logger.Debug().Str("url", pageURL).Err(err).Msg("记录缓存损坏，重新抽取")
		return domain.ConcertRecord{}, false
	}
	if cr.Profile != s.Extractor.Rules().Profile || cr.Record.SourceURL != pageURL {
		return domain.ConcertRecord{}, false
	}
	cr.Record.Normalize()
	return cr.Record, true
}

// ValidateURL 只接受带 host 的 http(s) 地址，返回去掉首尾空白后的 URL。
func ValidateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: url 不能为空", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", fmt.Errorf("%w: 只支持 http/https，实际是 %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: 缺少 host", ErrInvalidURL)
	}
	return raw, nil
}

// Code 把 Scrape 返回的错误映射为报告中的稳定错误码。
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidURL):
		return domain.ErrCodeInvalidURL
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrCodeTimeout
	}
	var re *RetrievalError
	if errors.As(err, &re) {
		return domain.ErrCodeFetchFailed
	}
	if errors.Is(err, extract.ErrNoContent) {
		return domain.ErrCodeNoContent
	}
	return domain.ErrCodeFetchFailed
}

func (s *Service) observe(fetcher string, err error, start time.Time) {
	if s.Metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = Code(err)
	}
	s.Metrics.ScrapeTotal.WithLabelValues(result).Inc()
	if fetcher != "" {
		s.Metrics.ScrapeDuration.WithLabelValues(fetcher).Observe(time.Since(start).Seconds())
	}
}

func (s *Service) countMisses(rec domain.ConcertRecord) {
	if s.Metrics == nil {
		return
	}
	miss := func(field string, missed bool) {
		if missed {
			s.Metrics.FieldMisses.WithLabelValues(field).Inc()
		}
	}
	miss("title", rec.Title == s.Extractor.Rules().TitleSentinel)
	miss("date", rec.Date == "")
	miss("venue", rec.Venue == "")
	miss("performers", len(rec.Performers) == 0)
	miss("program", len(rec.Program) == 0)
	miss("price", len(rec.Price) == 0)
}
