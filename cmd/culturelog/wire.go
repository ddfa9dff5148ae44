package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/culturelog/internal/config"
	"github.com/John-Robertt/culturelog/internal/extract"
	"github.com/John-Robertt/culturelog/internal/fetch"
	"github.com/John-Robertt/culturelog/internal/infra/cache"
	"github.com/John-Robertt/culturelog/internal/infra/httpx"
	"github.com/John-Robertt/culturelog/internal/metrics"
	"github.com/John-Robertt/culturelog/internal/scrape"
	"github.com/John-Robertt/culturelog/internal/tasks"
)

func newScrapeService(eff config.EffectiveConfig, log zerolog.Logger, m *metrics.Metrics) (*scrape.Service, error) {
	client, err := httpx.NewPageClient(httpx.Options{ProxyURL: eff.ProxyURL, Timeout: eff.FetchTimeout, UserAgent: eff.UserAgent})
	if err != nil {
		return nil, err
	}
	ex, err := extract.New(eff.Rules)
	if err != nil {
		return nil, err
	}

	fetchers := []fetch.Fetcher{fetch.HTTPFetcher{Client: client}}
	var store *cache.Store
	if eff.CacheEnabled {
		s := cache.New(eff.CacheDir, false)
		store = &s
		fetchers = append(fetchers, fetch.CacheFetcher{Store: s})
	}
	reg, err := fetch.NewRegistry(fetchers...)
	if err != nil {
		return nil, err
	}

	order := make([]string, 0, len(eff.FetchOrder))
	for _, name := range eff.FetchOrder {
		if _, ok := reg.Get(name); ok {
			order = append(order, name)
		}
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("fetch.order 中没有可用的 fetcher：%v", eff.FetchOrder)
	}

	return &scrape.Service{
		Registry:  reg,
		Order:     order,
		Extractor: ex,
		Cache:     store,
		Timeout:   eff.FetchTimeout,
		Logger:    log,
		Metrics:   m,
	}, nil
}

// newTracker 按配置选择任务状态后端；返回的 close 用于退出时释放连接。
func newTracker(ctx context.Context, eff config.EffectiveConfig) (tasks.Tracker, func() error, error) {
	switch eff.TaskBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: eff.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("连接 redis 失败 addr=%s: %w", eff.RedisAddr, err)
		}
		return tasks.NewRedisTracker(client, eff.TaskTTL), client.Close, nil
	default:
		return tasks.NewMemoryTracker(eff.TaskTTL), func() error { return nil }, nil
	}
}
