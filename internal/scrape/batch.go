package scrape

import (
	"context"
	"sync"
	"time"

	"github.com/John-Robertt/culturelog/internal/domain"
	"github.com/John-Robertt/culturelog/internal/fetch"
)

// MaxWorkers 是批量抓取并发度的上限。
const MaxWorkers = 32

// Observer 把批量抓取的进度从执行流程中解耦出来。
//
// 约束：
// - scrape 包只发事件，不做任何输出（避免污染 stdout 的 JSON 契约）
// - 实现必须并发安全
type Observer interface {
	OnStart(total, workers int)
	OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration)
}

// Batch 用固定大小的 worker 池处理 urls，返回已 Finalize 的报告。
func Batch(ctx context.Context, svc *Service, urls []string, workers int, obs Observer) domain.BatchReport {
	rr := domain.BatchReport{
		Profile:   svc.Extractor.Rules().Profile,
		StartedAt: time.Now().UTC(),
		Items:     make([]domain.ItemResult, 0, len(urls)),
	}

	if workers < 1 {
		workers = 1
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	if workers > len(urls) && len(urls) > 0 {
		workers = len(urls)
	}
	if obs != nil {
		obs.OnStart(len(urls), workers)
	}

	type execResult struct {
		res domain.ItemResult
		dur time.Duration
	}

	jobs := make(chan string)
	results := make(chan execResult, len(urls))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				started := time.Now()
				r := execOne(ctx, svc, u)
				results <- execResult{res: r, dur: time.Since(started)}
			}
		}()
	}

	go func() {
		for _, u := range urls {
			jobs <- u
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	done := 0
	for it := range results {
		done++
		rr.Items = append(rr.Items, it.res)
		if obs != nil {
			obs.OnItemDone(done, len(urls), it.res, it.dur)
		}
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

func execOne(ctx context.Context, svc *Service, u string) domain.ItemResult {
	res, err := svc.Scrape(ctx, u)
	item := domain.ItemResult{
		URL:         u,
		FetcherUsed: res.FetcherUsed,
		Attempts:    reportAttempts(res.Attempts),
	}
	if err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = Code(err)
		item.ErrorMsg = err.Error()
		return item
	}
	rec := res.Record
	item.Status = domain.StatusOK
	item.Record = &rec
	return item
}

func reportAttempts(in []fetch.Attempt) []domain.FetchAttempt {
	out := make([]domain.FetchAttempt, 0, len(in))
	for _, a := range in {
		fa := domain.FetchAttempt{Fetcher: a.Fetcher, Stage: a.Stage}
		if a.Err != nil {
			fa.Error = a.Err.Error()
		}
		out = append(out, fa)
	}
	return out
}
