package tasks

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/culturelog/internal/domain"
	"github.com/John-Robertt/culturelog/internal/metrics"
	"github.com/John-Robertt/culturelog/internal/scrape"
)

// Scraper 是 Runner 需要的最小能力（scrape.Service 满足它）。
type Scraper interface {
	Scrape(ctx context.Context, url string) (scrape.Result, error)
}

// Runner 在后台 goroutine 中执行抓取，并把状态写回 Tracker。
type Runner struct {
	base    context.Context
	tracker Tracker
	scraper Scraper
	logger  zerolog.Logger
	metrics *metrics.Metrics

	wg sync.WaitGroup
}

// NewRunner 的 ctx 决定后台任务的生命周期（与单个 HTTP 请求无关）。
func NewRunner(ctx context.Context, tr Tracker, sc Scraper, logger zerolog.Logger, m *metrics.Metrics) *Runner {
	return &Runner{base: ctx, tracker: tr, scraper: sc, logger: logger, metrics: m}
}

func (r *Runner) Tracker() Tracker { return r.tracker }

// Submit 创建任务并立即返回；抓取在后台进行。
func (r *Runner) Submit(ctx context.Context, url string) (domain.Task, error) {
	t, err := r.tracker.Create(ctx, url)
	if err != nil {
		return domain.Task{}, err
	}

	r.wg.Add(1)
	if r.metrics != nil {
		r.metrics.TasksInFlight.Inc()
	}
	go func(t domain.Task) {
		defer r.wg.Done()
		if r.metrics != nil {
			defer r.metrics.TasksInFlight.Dec()
		}
		r.run(t)
	}(t)
	return t, nil
}

// Wait 阻塞到所有已提交任务结束（用于优雅退出）。
func (r *Runner) Wait() { r.wg.Wait() }

func (r *Runner) run(t domain.Task) {
	log := r.logger.With().Str("task_id", t.ID).Str("url", t.URL).Logger()
	// 状态写回不随 base 取消，否则任务会永远停在中间态。
	uctx := context.WithoutCancel(r.base)

	t.Status = domain.TaskInProgress
	if err := r.tracker.Update(uctx, t); err != nil {
		log.Error().Err(err).Msg("更新任务状态失败")
		return
	}

	res, err := r.scraper.Scrape(r.base, t.URL)
	if err != nil {
		t.Status = domain.TaskError
		t.Error = err.Error()
		log.Warn().Err(err).Msg("抓取任务失败")
	} else {
		rec := res.Record
		t.Status = domain.TaskDone
		t.Result = &rec
		log.Debug().Msg("抓取任务完成")
	}

	if err := r.tracker.Update(uctx, t); err != nil {
		log.Error().Err(err).Msg("写回任务结果失败")
	}
}
