package fetch

import (
	"context"
	"errors"

	"github.com/John-Robertt/culturelog/internal/infra/cache"
)

// CacheName 是缓存 fetcher 在 fetch.order 中的名字。
const CacheName = "cache"

// ErrCacheMiss 表示页面缓存中没有该 URL。
var ErrCacheMiss = errors.New("cache miss")

// CacheFetcher 从页面缓存读取之前抓到的 HTML（常用作网络失败时的回退）。
type CacheFetcher struct {
	Store cache.Store
}

func (CacheFetcher) Name() string { return CacheName }

func (f CacheFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, ok, err := f.Store.ReadPage(pageURL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCacheMiss
	}
	return b, nil
}
