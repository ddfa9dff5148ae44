// Package fetch 负责把页面 URL 变成 HTML 字节；抽取逻辑不在这里。
package fetch

import (
	"context"
	"fmt"
	"strings"
)

// Fetcher 把“页面从哪里来”限制在 fetch 包内部；上层只关心字节。
//
// 约束：
// - Fetch 不做解析，只保证返回的是 UTF-8 的 HTML
// - 超时由调用方通过 ctx 控制
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, pageURL string) ([]byte, error)
}

// Registry 是 fetcher 的只读注册表（按 name 索引）。
type Registry struct {
	byName map[string]Fetcher
}

func NewRegistry(fetchers ...Fetcher) (Registry, error) {
	byName := make(map[string]Fetcher, len(fetchers))
	for _, f := range fetchers {
		if f == nil {
			return Registry{}, fmt.Errorf("fetcher 不能为空")
		}
		name := strings.ToLower(strings.TrimSpace(f.Name()))
		if name == "" {
			return Registry{}, fmt.Errorf("fetcher.Name 不能为空")
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的 fetcher：%q", name)
		}
		byName[name] = f
	}
	return Registry{byName: byName}, nil
}

func (r Registry) Get(name string) (Fetcher, bool) {
	if r.byName == nil {
		return nil, false
	}
	f, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// Attempt 记录一次 fetcher 尝试（用于解释回退原因）。
type Attempt struct {
	Fetcher string // fetcher name（小写）
	Stage   string // "fetch" / "ok"
	Err     error  // nil when Stage=="ok"
}

// Error 是 fetch 阶段的可追溯错误。
type Error struct {
	Fetcher string
	URL     string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetcher=%s url=%s: %v", e.Fetcher, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Chain 按 order 依次尝试 fetcher，返回第一个成功的结果与完整尝试链路。
// 全部失败时返回最后一个错误。
func Chain(ctx context.Context, reg Registry, order []string, pageURL string) (html []byte, used string, attempts []Attempt, err error) {
	if strings.TrimSpace(pageURL) == "" {
		return nil, "", nil, fmt.Errorf("url 不能为空")
	}
	if len(order) == 0 {
		return nil, "", nil, fmt.Errorf("fetch order 不能为空")
	}

	var lastErr error
	for _, name := range order {
		name = strings.ToLower(strings.TrimSpace(name))
		f, ok := reg.Get(name)
		if !ok {
			lastErr = fmt.Errorf("fetcher 未注册：%q", name)
			attempts = append(attempts, Attempt{Fetcher: name, Stage: "fetch", Err: lastErr})
			continue
		}

		b, ferr := f.Fetch(ctx, pageURL)
		if ferr != nil {
			lastErr = &Error{Fetcher: name, URL: pageURL, Err: ferr}
			attempts = append(attempts, Attempt{Fetcher: name, Stage: "fetch", Err: ferr})
			if ctx.Err() != nil {
				// 超时/取消后继续尝试没有意义。
				break
			}
			continue
		}

		attempts = append(attempts, Attempt{Fetcher: name, Stage: "ok"})
		return b, name, attempts, nil
	}
	return nil, "", attempts, lastErr
}
