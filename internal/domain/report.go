package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	SanityStatusPassed = "passed"
	SanityStatusFailed = "failed"
	SanityStatusError  = "error"
)

const (
	ErrCodeFetchFailed      = "fetch_failed"
	ErrCodeParseFailed      = "parse_failed"
	ErrCodeInvalidStrict    = "invalid_strict_level"
	ErrCodeInvalidWord      = "invalid_word"
	ErrCodeConfigNotFound   = "config_not_found"
	ErrCodeConfigInvalid    = "config_invalid"
	ErrCodeConfigMissingKey = "config_missing_key"
)

// SanityReport 是 sanity 批跑对外稳定输出（stdout JSON / CSV 导出）的结构。
type SanityReport struct {
	Providers []string `json:"providers"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary SanitySummary `json:"summary"`
	Items   []SanityItem  `json:"items"`
}

type SanitySummary struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	Errors int `json:"errors"`
}

// SanityItem 是某个词在某个 strict level 下的一次校验结果。
type SanityItem struct {
	Word   string      `json:"word"`
	Strict StrictLevel `json:"strict_level"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`

	ExpectedBase    string   `json:"expected_base,omitempty"`
	ExpectedPlurals []string `json:"expected_plurals"`

	GotBase    string   `json:"got_base,omitempty"`
	GotPlurals []string `json:"got_plurals"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 word 字典序，同词按 strict level
// 3) summary 由 items 计算得出
func (r *SanityReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		if r.Items[i].Word != r.Items[j].Word {
			return r.Items[i].Word < r.Items[j].Word
		}
		return r.Items[i].Strict < r.Items[j].Strict
	})

	var s SanitySummary
	for _, it := range r.Items {
		switch it.Status {
		case SanityStatusPassed:
			s.Passed++
		case SanityStatusFailed:
			s.Failed++
		case SanityStatusError:
			s.Errors++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r SanityReport) MarshalJSON() ([]byte, error) {
	type Alias SanityReport
	return json.Marshal(Alias(r))
}
