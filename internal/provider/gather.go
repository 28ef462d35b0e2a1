package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/dictionary-video/pluc/internal/domain"
)

// Attempt 记录一次 provider 尝试（用于解释缺词/失败原因）。
// 注意：这是内部执行轨迹，不直接写入对外结果（由上层决定如何呈现）。
type Attempt struct {
	Provider string // provider name（小写）
	Stage    string // "fetch" / "parse" / "not_found" / "ok"
	Err      error  // nil when Stage=="ok"
}

// FetchFunc 抽象“取词条页”的方式。上层（resolve）在这里插入缓存命中
// 与全局限速；测试可直接返回内存中的 HTML。
type FetchFunc func(ctx context.Context, p Provider, word domain.Word) (html []byte, pageURL string, err error)

// GatherEntries 按 order 依次询问各 provider，收集所有能给出词条的结果。
//
// 语义（与“首个成功即止”的降级链不同）：
// - 各 provider 的词条会在上层合并（词典背书 + 民间用法互补），因此要收齐
// - 某 provider 查无此词（NotFound）只记录轨迹，不影响其他 provider
// - 任何瞬时失败（网络/非 2xx/页面解析不出）立即中止并上抛：绝不把
//   故障静默当作“词不存在”
//
// 返回的 entries 与 used 按 order 对齐；entries 为空且 err==nil 表示
// 所有 provider 都查无此词。
func GatherEntries(ctx context.Context, reg Registry, order []string, word domain.Word, fetch FetchFunc) (entries []domain.Entry, used []string, attempts []Attempt, err error) {
	if len(order) == 0 {
		return nil, nil, nil, fmt.Errorf("provider 顺序不能为空")
	}
	if word == "" {
		return nil, nil, nil, fmt.Errorf("word 不能为空")
	}
	if fetch == nil {
		return nil, nil, nil, fmt.Errorf("fetch 不能为空")
	}

	for _, name := range order {
		name = strings.ToLower(strings.TrimSpace(name))
		p, ok := reg.Get(name)
		if !ok {
			return nil, nil, attempts, fmt.Errorf("provider 未注册：%q", name)
		}

		html, pageURL, ferr := fetch(ctx, p, word)
		if ferr != nil {
			if IsNotFound(ferr) {
				attempts = append(attempts, Attempt{Provider: name, Stage: "not_found", Err: ferr})
				continue
			}
			return nil, nil, append(attempts, Attempt{Provider: name, Stage: "fetch", Err: ferr}),
				&Error{Provider: name, Stage: "fetch", Err: ferr}
		}

		entry, perr := p.Parse(word, html, pageURL)
		if perr != nil {
			if IsNotFound(perr) {
				attempts = append(attempts, Attempt{Provider: name, Stage: "not_found", Err: perr})
				continue
			}
			return nil, nil, append(attempts, Attempt{Provider: name, Stage: "parse", Err: perr}),
				&Error{Provider: name, Stage: "parse", Err: perr}
		}

		if entry.Website == "" {
			entry.Website = pageURL
		}
		attempts = append(attempts, Attempt{Provider: name, Stage: "ok", Err: nil})
		entries = append(entries, entry)
		used = append(used, name)
	}
	return entries, used, attempts, nil
}
