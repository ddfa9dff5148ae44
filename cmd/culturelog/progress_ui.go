package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/culturelog/internal/config"
	"github.com/John-Robertt/culturelog/internal/domain"
	"github.com/John-Robertt/culturelog/internal/scrape"
)

var _ scrape.Observer = (*progressUI)(nil)

// progressUI 是批量抓取的交互终端进度输出。
//
// - 只写 stderr，不污染 stdout 的 JSON 输出
// - 长时间没有条目完成时定期输出一行 keepalive
type progressUI struct {
	w   io.Writer
	eff config.EffectiveConfig

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	workers int
	total   int
	done    int
	ok      int
	fail    int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh chan struct{}
	once   sync.Once
}

func newProgressUI(w io.Writer, eff config.EffectiveConfig) *progressUI {
	return &progressUI{
		w:                  w,
		eff:                eff,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
		stopCh:             make(chan struct{}),
	}
}

func (p *progressUI) OnStart(total, workers int) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.startedAt = now
	p.total = total
	p.workers = workers

	fmt.Fprintf(p.w, "[%s] culturelog scrape\n", now.Format("15:04:05"))
	fmt.Fprintf(p.w, "  profile: %s\n", p.eff.Rules.Profile)
	fmt.Fprintf(p.w, "  fetch: %s (timeout %s)\n", strings.Join(p.eff.FetchOrder, " -> "), p.eff.FetchTimeout)
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(p.eff.ProxyURL))
	fmt.Fprintf(p.w, "  workers=%d urls=%d\n\n", workers, total)
	p.lastPrinted = now

	if total > 0 {
		go p.keepalive()
	}
}

func (p *progressUI) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = idx
	switch res.Status {
	case domain.StatusOK:
		p.ok++
		title := ""
		if res.Record != nil {
			title = res.Record.Title
		}
		fmt.Fprintf(p.w, "[%d/%d] OK %s via=%s %q (%s)\n",
			idx, total, res.URL, res.FetcherUsed, truncate(title, 60), formatShortDuration(dur))
	default:
		p.fail++
		chain := formatAttemptChain(res.Attempts, -1)
		if chain != "" {
			chain = " attempts=" + chain
		}
		fmt.Fprintf(p.w, "[%d/%d] FAIL %s %s: %s%s (%s)\n",
			idx, total, res.URL, res.ErrorCode, truncate(res.ErrorMsg, 160), chain, formatShortDuration(dur))
	}
	p.lastPrinted = time.Now()
}

// Stop 结束 keepalive；可重复调用。
func (p *progressUI) Stop() {
	p.once.Do(func() { close(p.stopCh) })
}

func (p *progressUI) keepalive() {
	t := time.NewTicker(p.tickerInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			p.mu.Lock()
			if p.done >= p.total {
				p.mu.Unlock()
				return
			}
			if time.Since(p.lastPrinted) > p.keepaliveThreshold {
				active := p.workers
				if remain := p.total - p.done; remain < active {
					active = remain
				}
				fmt.Fprintf(p.w, "进度: done=%d/%d ok=%d fail=%d active=%d elapsed=%s\n",
					p.done, p.total, p.ok, p.fail, active, formatElapsed(time.Since(p.startedAt)))
				p.lastPrinted = time.Now()
			}
			p.mu.Unlock()
		case <-p.stopCh:
			return
		}
	}
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	i := strings.Index(raw, "://")
	if i < 0 {
		return "on"
	}
	rest := raw[i+3:]
	if at := strings.LastIndexByte(rest, '@'); at >= 0 {
		return "on (" + raw[:i+3] + rest[at+1:] + ", auth=on)"
	}
	return "on (" + raw + ")"
}

func formatAttemptChain(attempts []domain.FetchAttempt, max int) string {
	if len(attempts) == 0 || max == 0 {
		return ""
	}
	if max < 0 {
		max = len(attempts)
	}
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		s := a.Fetcher + ":" + a.Stage
		if em := strings.TrimSpace(a.Error); em != "" {
			s += ":" + truncate(em, 80)
		}
		parts = append(parts, s)
		if len(parts) >= max {
			break
		}
	}
	return strings.Join(parts, ";")
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}
