package service

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

// NormalizeText 填空题与简答题比较前的归一化：
// 去除标签、反转义实体、全角转半角、大小写折叠、合并空白；含中日韩文字时去掉全部空白。
func NormalizeText(s string) string {
	s = stripMarkup(s)
	s = width.Fold.String(s)
	// cases.Caser 不能并发复用
	s = cases.Fold().String(s)

	if containsCJK(s) {
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, s)
	}
	return strings.Join(strings.Fields(s), " ")
}

// markupTag 只匹配完整的标签与注释；没有闭合 '>' 的 '<' 按普通文本保留，例如 "x<y"
var markupTag = regexp.MustCompile(`<!--[\s\S]*?-->|</?[A-Za-z][^<>]*>|<![^<>]*>`)

func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	return html.UnescapeString(markupTag.ReplaceAllString(s, ""))
}

func containsCJK(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
			return true
		}
	}
	return false
}
