// Package sanity 用一组不规则名词批跑查询引擎，输出可核对的通过/失败报告。
package sanity

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dictionary-video/pluc/internal/domain"
	"github.com/dictionary-video/pluc/internal/provider"
	"github.com/dictionary-video/pluc/internal/resolve"
)

// Case 是一条校验用例：词 + 期望的 base 与复数拼写。
// Plurals 为空表示只要求“能查到至少一个复数”（不校对具体拼写）。
type Case struct {
	Word    string
	Base    string
	Plurals []string
}

// BuiltinSuite 返回内置的不规则名词用例（常见变形 + 同形复数）。
func BuiltinSuite() []Case {
	return []Case{
		{Word: "foot", Base: "foot", Plurals: []string{"feet"}},
		{Word: "man", Base: "man", Plurals: []string{"men"}},
		{Word: "woman", Base: "woman", Plurals: []string{"women"}},
		{Word: "tooth", Base: "tooth", Plurals: []string{"teeth"}},
		{Word: "goose", Base: "goose", Plurals: []string{"geese"}},
		{Word: "mouse", Base: "mouse", Plurals: []string{"mice"}},
		{Word: "child", Base: "child", Plurals: []string{"children"}},
		{Word: "person", Base: "person", Plurals: []string{"people"}},
		{Word: "ox", Base: "ox", Plurals: []string{"oxen"}},
		{Word: "octopus", Base: "octopus", Plurals: []string{"octopuses", "octopi"}},
		{Word: "cactus", Base: "cactus", Plurals: []string{"cacti"}},
		{Word: "deer", Base: "deer", Plurals: []string{"deer"}},
		{Word: "sheep", Base: "sheep", Plurals: []string{"sheep"}},
		{Word: "crisis", Base: "crisis", Plurals: []string{"crises"}},
		{Word: "analysis", Base: "analysis", Plurals: []string{"analyses"}},
	}
}

// LoadSuiteCSV 从 CSV 载入用例。
//
// 格式：首行表头，必需列 singular，可选列 base 与 plural_1..plural_3。
func LoadSuiteCSV(path string) ([]Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败：%w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	si, ok := col["singular"]
	if !ok {
		return nil, fmt.Errorf("CSV 缺少 singular 列：%s", path)
	}

	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var suite []Case
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		word := strings.TrimSpace(rec[si])
		if word == "" {
			continue
		}
		c := Case{Word: word, Base: get(rec, "base")}
		for _, name := range []string{"plural_1", "plural_2", "plural_3"} {
			if p := get(rec, name); p != "" {
				c.Plurals = append(c.Plurals, p)
			}
		}
		suite = append(suite, c)
	}
	if len(suite) == 0 {
		return nil, fmt.Errorf("CSV 没有任何用例：%s", path)
	}
	return suite, nil
}

// Observer 把批跑进度从核心流程解耦出来（stdout 的 JSON 契约不被进度输出污染）。
// nil Observer 表示不需要进度。
type Observer interface {
	OnStart(total int)
	OnItemDone(idx, total int, item domain.SanityItem, dur time.Duration)
}

// Run 按 suite × levels 逐项跑查询引擎并核对结果。
//
// 约束：
// - 逐词串行（与引擎共享限速器，保护上游站点）
// - 单项的瞬时失败记为 error 项，不中断整个批跑
// - ctx 取消时停止追加新项，已有项照常汇总
func Run(ctx context.Context, eng *resolve.Engine, suite []Case, levels []domain.StrictLevel, obs Observer) domain.SanityReport {
	report := domain.SanityReport{
		Providers: append([]string(nil), eng.Order...),
		StartedAt: time.Now(),
	}

	total := len(suite) * len(levels)
	if obs != nil {
		obs.OnStart(total)
	}

	idx := 0
	for _, c := range suite {
		for _, level := range levels {
			if ctx.Err() != nil {
				report.FinishedAt = time.Now()
				report.Finalize()
				return report
			}
			start := time.Now()
			item := runOne(ctx, eng, c, level)
			idx++
			if obs != nil {
				obs.OnItemDone(idx, total, item, time.Since(start))
			}
			report.Items = append(report.Items, item)
		}
	}

	report.FinishedAt = time.Now()
	report.Finalize()
	return report
}

func runOne(ctx context.Context, eng *resolve.Engine, c Case, level domain.StrictLevel) domain.SanityItem {
	item := domain.SanityItem{
		Word:            c.Word,
		Strict:          level,
		ExpectedBase:    c.Base,
		ExpectedPlurals: append([]string{}, c.Plurals...),
		GotPlurals:      []string{},
	}

	res, err := eng.Lookup(ctx, c.Word, level)
	if err != nil {
		item.Status = domain.SanityStatusError
		item.ErrorCode = classify(err)
		item.ErrorMsg = err.Error()
		return item
	}

	item.GotBase = res.Base
	item.GotPlurals = append([]string{}, res.Plurals...)

	if verify(c, res) {
		item.Status = domain.SanityStatusPassed
	} else {
		item.Status = domain.SanityStatusFailed
	}
	return item
}

// verify 采用包含式核对：期望的拼写都出现即通过（词典可能给出更多变体）。
// 未给出期望拼写的用例只要求查到至少一个复数。
func verify(c Case, res domain.LookupResult) bool {
	if c.Base != "" && res.Base != c.Base {
		return false
	}
	if len(c.Plurals) == 0 {
		return len(res.Plurals) > 0
	}
	got := make(map[string]struct{}, len(res.Plurals))
	for _, p := range res.Plurals {
		got[p] = struct{}{}
	}
	for _, want := range c.Plurals {
		if _, ok := got[want]; !ok {
			return false
		}
	}
	return true
}

func classify(err error) string {
	switch {
	case errors.Is(err, resolve.ErrInvalidStrictLevel):
		return domain.ErrCodeInvalidStrict
	case errors.Is(err, resolve.ErrInvalidWord):
		return domain.ErrCodeInvalidWord
	}
	var pe *provider.Error
	if errors.As(err, &pe) && pe.Stage == "parse" {
		return domain.ErrCodeParseFailed
	}
	return domain.ErrCodeFetchFailed
}

// WriteCSV 以原始批跑结果表的列布局导出 report（word + 前三个复数形）。
func WriteCSV(w io.Writer, report domain.SanityReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"word", "strict_level", "status", "error_code", "base", "plural_1", "plural_2", "plural_3"}); err != nil {
		return err
	}
	for _, it := range report.Items {
		rec := []string{it.Word, it.Strict.String(), it.Status, it.ErrorCode, it.GotBase, "", "", ""}
		for i := 0; i < 3 && i < len(it.GotPlurals); i++ {
			rec[5+i] = it.GotPlurals[i]
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
