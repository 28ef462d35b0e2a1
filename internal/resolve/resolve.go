// Package resolve 把 provider 词条合并为最终的 LookupResult。
package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dictionary-video/pluc/internal/domain"
	"github.com/dictionary-video/pluc/internal/guess"
	"github.com/dictionary-video/pluc/internal/infra/cache"
	"github.com/dictionary-video/pluc/internal/infra/ratelimit"
	"github.com/dictionary-video/pluc/internal/provider"
)

// ErrInvalidStrictLevel：调用方传入了未定义的 strict level。
// 必须在任何网络/缓存访问之前失败（非法参数不消耗配额）。
var ErrInvalidStrictLevel = errors.New("非法 strict level")

// ErrInvalidWord：查询词规范化后为空或含非法字符。
var ErrInvalidWord = errors.New("非法查询词")

// Engine 是查询的编排核心：缓存命中 → 收集词条 → 合并 → 按档过滤 → 兜底。
//
// 约束：
// - 查无此词不是错误：返回空 Plurals 的结果（forced 档除外，走启发式兜底）
// - 瞬时失败（网络/站点故障）原样上抛，绝不折叠成“查无此词”
// - 同一个 Engine 可被并发使用（全局限速由 Limiter 承担）
type Engine struct {
	Registry provider.Registry
	// Order 决定询问顺序与合并优先级（词典背书源排在前）。
	Order []string

	Client  *http.Client
	Store   cache.Store
	Limiter *ratelimit.Limiter

	// Guess 是启发式复数生成器；nil 时使用内置规则引擎。
	Guess func(string) string
}

// Lookup 解析 query 在 strict 档位下的复数与可数性。
func (e *Engine) Lookup(ctx context.Context, query string, strict domain.StrictLevel) (domain.LookupResult, error) {
	if !strict.Valid() {
		return domain.LookupResult{}, fmt.Errorf("%w：%d", ErrInvalidStrictLevel, uint8(strict))
	}
	word, ok := domain.ParseWord(query)
	if !ok {
		return domain.LookupResult{}, fmt.Errorf("%w：%q", ErrInvalidWord, query)
	}

	if res, ok := e.readCachedResult(word, strict); ok {
		// 缓存键是规范化后的词；Query 字段始终回填调用方原始输入。
		res.Query = query
		return res, nil
	}

	entries, used, _, err := provider.GatherEntries(ctx, e.Registry, e.Order, word, e.fetchPage)
	if err != nil {
		return domain.LookupResult{}, err
	}

	var res domain.LookupResult
	if len(entries) == 0 {
		res = e.notFoundResult(query, word, strict)
	} else {
		res = mergeEntries(query, strict, entries)
		res.ProvidersUsed = used
		if len(res.Plurals) == 0 && strict == domain.StrictForced {
			// 词条存在但没有可用拼写（极少见）：forced 档仍要给出结果。
			res.Plurals = []string{e.guessPlural(string(word))}
			res.Guessed = true
		}
	}

	e.writeCachedResult(word, strict, res)
	return res, nil
}

// fetchPage 是注入 GatherEntries 的取页函数：缓存命中优先，未命中时
// 经全局限速后抓取，并回写页面缓存。
func (e *Engine) fetchPage(ctx context.Context, p provider.Provider, word domain.Word) ([]byte, string, error) {
	if e.Store.Enabled() {
		if b, ok, err := e.Store.ReadPageHTML(p.Name(), word); err == nil && ok {
			// 缓存不保留原始 URL；用词条的规范 URL 作为来源标记。
			return b, p.EntryURL(word), nil
		}
	}

	if err := e.Limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	html, pageURL, err := p.Fetch(ctx, word, e.httpClient())
	if err != nil {
		return nil, "", err
	}

	if e.Store.Enabled() && !e.Store.ReadOnly {
		// 缓存回写失败不影响本次结果。
		_ = e.Store.WritePageHTML(p.Name(), word, html)
	}
	return html, pageURL, nil
}

func (e *Engine) httpClient() *http.Client {
	if e.Client != nil {
		return e.Client
	}
	return http.DefaultClient
}

func (e *Engine) guessPlural(w string) string {
	if e.Guess != nil {
		return e.Guess(w)
	}
	return guess.Plural(w)
}

// notFoundResult 构造“所有来源都查无此词”的结果。
// dictionary/inclusive 档返回空 Plurals（这是数据，不是错误）；
// forced 档用启发式规则生成一个复数，Base 留空以示不可靠。
func (e *Engine) notFoundResult(query string, word domain.Word, strict domain.StrictLevel) domain.LookupResult {
	res := domain.LookupResult{
		Query:     query,
		Strict:    strict,
		Plurals:   []string{},
		Countable: domain.CountUnknown,
	}
	if strict == domain.StrictForced {
		res.Plurals = []string{e.guessPlural(string(word))}
		res.Guessed = true
	}
	return res
}

// mergeEntries 把多个来源的词条合并为单个结果。
//
// 合并规则：
// - Base 取第一个非空 Headword（Order 里词典背书源在前）
// - sanctioned 按来源顺序汇总去重；inclusive/forced 档再追加 informal
//   （已是 sanctioned 的拼写不降档），dictionary 档不纳入 informal
// - 可数性取第一个非 unknown 的标注；词条存在但无标注时默认 countable
// - PluralOnly / SingularOrPlural 任一来源标注即生效
func mergeEntries(query string, strict domain.StrictLevel, entries []domain.Entry) domain.LookupResult {
	res := domain.LookupResult{
		Query:   query,
		Strict:  strict,
		Plurals: []string{},
	}

	seen := make(map[string]struct{})
	add := func(spellings []string) {
		for _, s := range spellings {
			s = strings.Join(strings.Fields(s), " ")
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			res.Plurals = append(res.Plurals, s)
		}
	}
	for _, en := range entries {
		add(en.SanctionedForms())
	}
	if strict != domain.StrictDictionary {
		for _, en := range entries {
			add(en.InformalForms())
		}
	}

	for _, en := range entries {
		if res.Base == "" && en.Headword != "" {
			res.Base = en.Headword
		}
		if res.Countable == domain.CountUnknown && en.Countability != domain.CountUnknown {
			res.Countable = en.Countability
		}
		res.PluralOnly = res.PluralOnly || en.PluralOnly
		res.SingularOrPlural = res.SingularOrPlural || en.SingularOrPlural
		if w := strings.TrimSpace(en.Website); w != "" {
			res.Websites = append(res.Websites, w)
		}
	}
	if res.Countable == domain.CountUnknown {
		// 有词条就默认可数；unknown 只保留给查无此词的兜底结果。
		res.Countable = domain.CountCountable
	}
	return res
}

func (e *Engine) readCachedResult(word domain.Word, strict domain.StrictLevel) (domain.LookupResult, bool) {
	if !e.Store.Enabled() {
		return domain.LookupResult{}, false
	}
	b, ok, err := e.Store.ReadLookupJSON(word, strict)
	if err != nil || !ok {
		return domain.LookupResult{}, false
	}
	var res domain.LookupResult
	if err := json.Unmarshal(b, &res); err != nil {
		// 缓存损坏按未命中处理，重新抓取后覆盖。
		return domain.LookupResult{}, false
	}
	return res, true
}

func (e *Engine) writeCachedResult(word domain.Word, strict domain.StrictLevel, res domain.LookupResult) {
	if !e.Store.Enabled() || e.Store.ReadOnly {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	_ = e.Store.WriteLookupJSON(word, strict, b)
}
