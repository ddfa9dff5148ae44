package fetch

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyBody 表示响应成功但正文为空。
var ErrEmptyBody = errors.New("empty body")

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// ContentTypeError 表示响应不是 HTML（例如 PDF、图片、JSON）。
type ContentTypeError struct {
	URL         string
	ContentType string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("不是 HTML 页面：content-type=%q", e.ContentType)
}
