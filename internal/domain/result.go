package domain

import (
	"encoding/json"
	"fmt"
)

// StrictLevel 控制返回哪些层级的复数拼写，以及是否允许启发式兜底。
//
// 约束：内部一律使用枚举值，不允许裸字符串流转（避免拼写错误静默传播）。
type StrictLevel uint8

const (
	// StrictDictionary 只返回词典背书（sanctioned）的复数。
	StrictDictionary StrictLevel = iota + 1
	// StrictInclusive 同时返回 sanctioned 与 informal，sanctioned 在前。
	StrictInclusive
	// StrictForced 在查无词条时仍用启发式规则生成一个复数（不保证正确）。
	StrictForced
)

// ParseStrictLevel 解析对外字符串形式的 strict level。
func ParseStrictLevel(s string) (StrictLevel, bool) {
	switch s {
	case "dictionary":
		return StrictDictionary, true
	case "inclusive":
		return StrictInclusive, true
	case "forced":
		return StrictForced, true
	default:
		return 0, false
	}
}

func (l StrictLevel) Valid() bool {
	switch l {
	case StrictDictionary, StrictInclusive, StrictForced:
		return true
	default:
		return false
	}
}

func (l StrictLevel) String() string {
	switch l {
	case StrictDictionary:
		return "dictionary"
	case StrictInclusive:
		return "inclusive"
	case StrictForced:
		return "forced"
	default:
		return fmt.Sprintf("strict(%d)", uint8(l))
	}
}

func (l StrictLevel) MarshalJSON() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("非法 strict level：%d", uint8(l))
	}
	return json.Marshal(l.String())
}

func (l *StrictLevel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, ok := ParseStrictLevel(s)
	if !ok {
		return fmt.Errorf("非法 strict level：%q", s)
	}
	*l = v
	return nil
}

// Countability 是名词可数性的四值分类。
//
// either 表示不同义项下可数性不同（如 water：物质名词不可数，
// "waters" 义项可数）；unknown 保留给查无词条的兜底结果。
type Countability uint8

const (
	CountUnknown Countability = iota
	CountCountable
	CountUncountable
	CountEither
)

func (c Countability) String() string {
	switch c {
	case CountCountable:
		return "countable"
	case CountUncountable:
		return "uncountable"
	case CountEither:
		return "either"
	default:
		return "unknown"
	}
}

func (c Countability) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Countability) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "countable":
		*c = CountCountable
	case "uncountable":
		*c = CountUncountable
	case "either":
		*c = CountEither
	case "unknown":
		*c = CountUnknown
	default:
		return fmt.Errorf("非法 countability：%q", s)
	}
	return nil
}

// LookupResult 是一次查询的最终结果（不可变值，按字段比较，无身份）。
//
// 约束：
// - Query 原样保留调用方输入
// - Plurals 无重复拼写；sanctioned 层级整体排在 informal 之前
// - Base 为空表示兜底模式或查无词条
type LookupResult struct {
	Query  string      `json:"query"`
	Strict StrictLevel `json:"strict_level"`

	Base    string   `json:"base,omitempty"`
	Plurals []string `json:"plurals"`

	Countable Countability `json:"countable"`

	// PluralOnly 对应 WordHippo 的 "plural only" 标记（如 scissors）。
	PluralOnly bool `json:"plural_only,omitempty"`
	// SingularOrPlural 对应 Webster 的
	// "plural in form but singular or plural in construction"（如 means）。
	SingularOrPlural bool `json:"singular_or_plural,omitempty"`

	// Guessed 表示 Plurals 来自启发式兜底而非词典词条。
	Guessed bool `json:"guessed,omitempty"`

	// ProvidersUsed 记录实际产出词条的来源（与 Websites 对齐）。
	ProvidersUsed []string `json:"providers_used,omitempty"`
	// Websites 记录实际采用的词条页 URL（来源标记，便于追溯）。
	Websites []string `json:"websites,omitempty"`
}
