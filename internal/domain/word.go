package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Word 是查询词的规范化主键（NFKC + 小写 + 单空格分隔）。
//
// 约束：原始 query 原样保留在 LookupResult.Query 中；Word 只用于
// 抓取 URL、缓存路径与去重，要么得到唯一 Word，要么失败。
type Word string

// ParseWord 规范化并校验查询词。
//
// 规则：
// - Unicode NFKC 规范化（词典页面里的 &nbsp; 等兼容字符统一折叠）
// - 去除首尾空白，内部连续空白合并为单个空格（允许多词名词，如 faux pas）
// - 统一小写（词典站点的词条 URL 均为小写）
// - 只允许字母、数字、空格、连字符与撇号
func ParseWord(s string) (Word, bool) {
	s = norm.NFKC.String(s)
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case ' ', '-', '\'':
			continue
		}
		return "", false
	}
	return Word(s), true
}
