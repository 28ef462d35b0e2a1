package provider

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dictionary-video/pluc/internal/domain"
)

// Error 是 provider 阶段的可追溯错误。
// 上层可以据此把失败归类为 fetch_failed / parse_failed，并写入 report。
type Error struct {
	Provider string // provider name（小写）
	Stage    string // "fetch" 或 "parse"
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider=%s stage=%s: %v", e.Provider, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
// 对上层而言这是可重试的瞬时失败（限流/反爬/临时不可达），不是“查无此词”。
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

// NotFoundError 表示该 provider 的参考数据里没有这个词。
//
// 约束：这是预期中的常见结果，不是故障；调用链上必须与瞬时失败
// 严格区分，绝不允许把网络错误静默降级成 NotFound（否则排障时
// 无从分辨“词不存在”与“站点被限流”）。
type NotFoundError struct {
	Provider string
	Word     domain.Word
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return "not found"
	}
	return fmt.Sprintf("%s：查无词条 %q", e.Provider, string(e.Word))
}

// IsNotFound 判断 err（或其包装链）是否为“查无此词”。
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}
