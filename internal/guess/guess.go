// Package guess 提供启发式英文复数生成（兜底能力）。
//
// 约束：
// - Plural 是全函数：任何输入都返回一个结果，永不失败
// - 纯机械规则，不对“该词是否是名词/结果是否正确”做任何承诺
// - 词典查得到的词永远优先于这里的输出（仅 strict=forced 且查无词条时启用）
package guess

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// Plural 用通用英文后缀规则生成一个最可信的复数拼写。
//
// 规则由 inflection 库固化（辅音+y→ies、咝音结尾→es、默认→s，
// 以及常见不规则词表）；相同输入必得相同输出。
func Plural(word string) string {
	w := strings.TrimSpace(word)
	if w == "" {
		return ""
	}
	return inflection.Plural(w)
}

// Singular 是 Plural 的反向规则，供调用方做粗略的还原尝试。
// 同样不保证正确性。
func Singular(word string) string {
	w := strings.TrimSpace(word)
	if w == "" {
		return ""
	}
	return inflection.Singular(w)
}
