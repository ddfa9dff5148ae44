package extract

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// parseDocument 只解析一次；所有抽取器共享同一个 document 与展开后的文本。
func parseDocument(html []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(html))
}

// flattenText 把 document 展开为纯文本（按文档顺序拼接所有文本节点）。
//
// 规范化：
// - NFC（部分站点输出分解形式的 한글 자모）
// - 除换行外的 Unicode 空白统一为 ASCII 空格（例如 &nbsp;），保证 `\s` 类规则行为一致
func flattenText(doc *goquery.Document, stripScripts bool) string {
	root := doc.Selection
	if stripScripts {
		root = root.Clone()
		root.Find("script, style, noscript").Remove()
	}
	return normalizeText(root.Text())
}

func normalizeText(s string) string {
	s = norm.NFC.String(s)
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII && unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// appendUnique 在保持顺序的前提下追加 s（已存在则忽略）。
func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func capList(list []string, n int) []string {
	if n >= 0 && len(list) > n {
		return list[:n]
	}
	return list
}

func containsAnyFold(s string, words []string) bool {
	low := strings.ToLower(s)
	for _, w := range words {
		if w == "" {
			continue
		}
		if strings.Contains(low, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
