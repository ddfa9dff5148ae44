package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// DefaultMaxBytes 是单页正文的读取上限。
const DefaultMaxBytes = 8 << 20

// HTTPFetcher 直接请求页面。Client 应来自 httpx.NewPageClient（UA/重试/代理策略在那里）。
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
}

func (HTTPFetcher) Name() string { return "http" }

func (f HTTPFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	c := f.Client
	if c == nil {
		c = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &HTTPStatusError{URL: pageURL, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}

	ct := resp.Header.Get("Content-Type")
	if !isHTMLContentType(ct) {
		return nil, &ContentTypeError{URL: pageURL, ContentType: ct}
	}

	max := f.MaxBytes
	if max <= 0 {
		max = DefaultMaxBytes
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, max))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyBody
	}
	return toUTF8(raw, ct)
}

// toUTF8 把正文统一为 UTF-8。韩国站点仍有 EUC-KR 页面；
// 没有声明字符集且本身是合法 UTF-8 时原样返回（只看前 1024 字节的探测会误判为 windows-1252）。
func toUTF8(raw []byte, contentType string) ([]byte, error) {
	if _, params, err := mime.ParseMediaType(contentType); err != nil || params["charset"] == "" {
		if utf8.Valid(raw) {
			return raw, nil
		}
	}
	enc, name, _ := charset.DetermineEncoding(raw, contentType)
	if name == "utf-8" {
		return raw, nil
	}
	b, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("字符集 %s 解码失败：%w", name, err)
	}
	return b, nil
}

// isHTMLContentType 缺省 Content-Type 时按 HTML 处理。
func isHTMLContentType(ct string) bool {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	switch mt {
	case "text/html", "application/xhtml+xml":
		return true
	default:
		return false
	}
}
