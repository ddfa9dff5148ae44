package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const (
	ErrCodeInvalidURL    = "invalid_url"
	ErrCodeFetchFailed   = "fetch_failed"
	ErrCodeNoContent     = "no_content"
	ErrCodeTimeout       = "timeout"
	ErrCodeConfigInvalid = "config_invalid"
)

// BatchReport 是批量抓取的对外稳定输出（stdout JSON / --save 文件）。
type BatchReport struct {
	Profile string `json:"profile"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	OK     int `json:"ok"`
	Failed int `json:"failed"`
}

type ItemResult struct {
	URL         string `json:"url"`
	FetcherUsed string `json:"fetcher_used"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Attempts []FetchAttempt `json:"attempts"`
	Record   *ConcertRecord `json:"record,omitempty"`
}

// FetchAttempt 是 fetcher 尝试链路在报告中的呈现形式。
type FetchAttempt struct {
	Fetcher string `json:"fetcher"`
	Stage   string `json:"stage"`
	Error   string `json:"error,omitempty"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) items 按 url 稳定排序；url=="" 的合成条目排在最后
// 3) summary 由 items 计算得出
func (r *BatchReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].URL
		b := r.Items[j].URL
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})

	var s ReportSummary
	for i := range r.Items {
		if r.Items[i].Attempts == nil {
			r.Items[i].Attempts = []FetchAttempt{}
		}
		switch r.Items[i].Status {
		case StatusOK:
			s.OK++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性；当前透传 encoding/json 的默认行为。
func (r BatchReport) MarshalJSON() ([]byte, error) {
	type Alias BatchReport
	return json.Marshal(Alias(r))
}
