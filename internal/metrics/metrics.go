// Package metrics 定义抓取与 API 的 prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 持有全部 collector；通过 Registry 暴露给 /metrics。
type Metrics struct {
	Registry *prometheus.Registry

	ScrapeTotal    *prometheus.CounterVec   // label: result=ok 或错误码
	ScrapeDuration *prometheus.HistogramVec // label: fetcher
	FieldMisses    *prometheus.CounterVec   // label: field
	TasksInFlight  prometheus.Gauge
	HTTPRequests   *prometheus.CounterVec // label: method, route, status
}

// New 在独立的 Registry 上注册全部指标（避免测试之间互相污染全局默认 Registry）。
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		ScrapeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "culturelog",
			Name:      "scrape_total",
			Help:      "Scrape attempts by result.",
		}, []string{"result"}),
		ScrapeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "culturelog",
			Name:      "scrape_duration_seconds",
			Help:      "Time spent fetching and extracting one page.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"fetcher"}),
		FieldMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "culturelog",
			Name:      "extract_field_miss_total",
			Help:      "Extracted records whose field fell back to its default.",
		}, []string{"field"}),
		TasksInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "culturelog",
			Name:      "scrape_tasks_in_flight",
			Help:      "Background scrape tasks currently running.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "culturelog",
			Name:      "http_requests_total",
			Help:      "API requests by route and status.",
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.ScrapeTotal, m.ScrapeDuration, m.FieldMisses, m.TasksInFlight, m.HTTPRequests)
	return m
}
