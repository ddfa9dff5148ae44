package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/John-Robertt/culturelog/internal/infra/fsx"
)

// Store 提供 <root>/pages 与 <root>/records 下的文件缓存读写。
//
// 约束：
// - 以页面 URL 为键（host 分目录 + URL 的 sha256 前缀做文件名）
// - ReadOnly=true 时只允许读
type Store struct {
	Root     string
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// PagePath 返回页面 HTML 缓存的绝对路径。
func (s Store) PagePath(pageURL string) (string, error) {
	dir, name, err := s.locate("pages", pageURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".html"), nil
}

// RecordPath 返回抽取结果 JSON 缓存的绝对路径。
func (s Store) RecordPath(pageURL string) (string, error) {
	dir, name, err := s.locate("records", pageURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".json"), nil
}

func (s Store) ReadPage(pageURL string) ([]byte, bool, error) {
	path, err := s.PagePath(pageURL)
	if err != nil {
		return nil, false, err
	}
	return readIfExists(path)
}

func (s Store) ReadRecord(pageURL string) ([]byte, bool, error) {
	path, err := s.RecordPath(pageURL)
	if err != nil {
		return nil, false, err
	}
	return readIfExists(path)
}

func (s Store) WritePage(pageURL string, html []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	dir, name, err := s.locate("pages", pageURL)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(dir, name+".html", html)
}

func (s Store) WriteRecord(pageURL string, json []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	dir, name, err := s.locate("records", pageURL)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(dir, name+".json", json)
}

func readIfExists(path string) ([]byte, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

var unsafeHostRE = regexp.MustCompile(`[^a-z0-9.\-]`)

func (s Store) locate(kind, pageURL string) (dir, name string, err error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return "", "", fmt.Errorf("url 不能为空")
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", "", fmt.Errorf("非法 url：%q：%w", pageURL, err)
	}
	// host 仅用作目录名：小写并替换危险字符，避免路径穿越。
	host := unsafeHostRE.ReplaceAllString(strings.ToLower(u.Hostname()), "_")
	host = strings.Trim(host, ".")
	if host == "" {
		host = "_"
	}
	sum := sha256.Sum256([]byte(pageURL))
	return filepath.Join(s.Root, kind, host), hex.EncodeToString(sum[:12]), nil
}
