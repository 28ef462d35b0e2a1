package provider

import (
	"context"
	"io"
	"net/http"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dictionary-video/pluc/internal/domain"
)

// Provider 把“站点变化”限制在 provider 包内部；核心流程只依赖统一接口与稳定的 Entry。
//
// 约束：
// - Fetch 不做缓存、不做重试、不做限速（这些由核心 http/cache/ratelimit 层统一实现）
// - Fetch 负责解决站内跳转（例如 men 页面标注 "plural of man" 时改取 man 的词条页）
// - Parse 必须是纯函数：相同输入 => 相同输出
// - “查无此词”以 *NotFoundError 表达，与网络/站点故障严格区分
type Provider interface {
	Name() string
	// EntryURL 返回 word 对应词条页的规范 URL（缓存命中时作为来源标记）。
	EntryURL(word domain.Word) string
	Fetch(ctx context.Context, word domain.Word, c *http.Client) (html []byte, pageURL string, err error)
	Parse(word domain.Word, html []byte, pageURL string) (domain.Entry, error)
}

// FetchHTML 抓取 url 并返回 body；非 2xx 统一为 *HTTPStatusError。
func FetchHTML(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	return io.ReadAll(resp.Body)
}

// NormalizeHTML 做 NFKD 规范化并把所有空白（含换行、&nbsp; 折叠出的
// 兼容空格）合并为单个空格。
//
// 词条页里的复数标注是跨行的行内结构，折叠后才能用稳定的模式匹配。
func NormalizeHTML(b []byte) string {
	s := norm.NFKD.String(string(b))
	return strings.Join(strings.Fields(s), " ")
}
