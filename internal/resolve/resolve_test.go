package resolve

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/dictionary-video/pluc/internal/domain"
	"github.com/dictionary-video/pluc/internal/infra/cache"
	"github.com/dictionary-video/pluc/internal/provider"
)

type stubProvider struct {
	name string

	fetchErr error
	entry    domain.Entry

	fetchCalls int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) EntryURL(word domain.Word) string {
	return "https://example.test/" + p.name + "/" + string(word)
}

func (p *stubProvider) Fetch(_ context.Context, word domain.Word, _ *http.Client) ([]byte, string, error) {
	p.fetchCalls++
	if p.fetchErr != nil {
		return nil, "", p.fetchErr
	}
	return []byte("<html/>"), p.EntryURL(word), nil
}

func (p *stubProvider) Parse(word domain.Word, _ []byte, pageURL string) (domain.Entry, error) {
	e := p.entry
	if e.Headword == "" {
		e.Headword = string(word)
	}
	e.Website = pageURL
	return e, nil
}

func newEngine(t *testing.T, providers ...provider.Provider) *Engine {
	t.Helper()
	reg, err := provider.NewRegistry(providers...)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	order := make([]string, 0, len(providers))
	for _, p := range providers {
		order = append(order, p.Name())
	}
	return &Engine{Registry: reg, Order: order}
}

func websterStub(forms ...string) *stubProvider {
	pf := make([]domain.PluralForm, 0, len(forms))
	for _, f := range forms {
		pf = append(pf, domain.PluralForm{Spelling: f, Tier: domain.TierSanctioned})
	}
	return &stubProvider{name: "webster", entry: domain.Entry{Forms: pf}}
}

func TestLookup_MergesProvidersInOrder(t *testing.T) {
	webster := websterStub("octopuses", "octopi", "octopodes")
	webster.entry.Headword = "octopus"
	hippo := &stubProvider{name: "wordhippo", entry: domain.Entry{
		Headword: "octopus",
		Forms: []domain.PluralForm{
			{Spelling: "octopuses", Tier: domain.TierSanctioned},
			{Spelling: "octopi", Tier: domain.TierSanctioned},
		},
		Countability: domain.CountCountable,
	}}

	res, err := newEngine(t, webster, hippo).Lookup(context.Background(), "octopus", domain.StrictDictionary)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := []string{"octopuses", "octopi", "octopodes"}
	if !reflect.DeepEqual(res.Plurals, want) {
		t.Fatalf("期望 %v，实际 %v", want, res.Plurals)
	}
	if res.Base != "octopus" {
		t.Fatalf("期望 Base=octopus，实际 %q", res.Base)
	}
	if res.Countable != domain.CountCountable {
		t.Fatalf("期望 countable，实际 %v", res.Countable)
	}
	if len(res.Websites) != 2 {
		t.Fatalf("期望记录两个来源页，实际 %v", res.Websites)
	}
	if !reflect.DeepEqual(res.ProvidersUsed, []string{"webster", "wordhippo"}) {
		t.Fatalf("期望 providers_used=[webster wordhippo]，实际 %v", res.ProvidersUsed)
	}
	if res.Guessed {
		t.Fatalf("词典结果不应标记 Guessed")
	}
}

func TestLookup_StrictLevelGatesInformalForms(t *testing.T) {
	webster := &stubProvider{name: "webster", fetchErr: &provider.NotFoundError{Provider: "webster", Word: "air"}}
	hippo := &stubProvider{name: "wordhippo", entry: domain.Entry{
		Headword: "air",
		Forms: []domain.PluralForm{
			{Spelling: "air", Tier: domain.TierSanctioned},
			{Spelling: "airs", Tier: domain.TierInformal},
		},
		Countability: domain.CountEither,
	}}
	eng := newEngine(t, webster, hippo)

	res, err := eng.Lookup(context.Background(), "air", domain.StrictInclusive)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !reflect.DeepEqual(res.Plurals, []string{"air", "airs"}) {
		t.Fatalf("inclusive 档期望 [air airs]，实际 %v", res.Plurals)
	}
	if res.Countable != domain.CountEither {
		t.Fatalf("期望 either，实际 %v", res.Countable)
	}

	res, err = eng.Lookup(context.Background(), "air", domain.StrictDictionary)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !reflect.DeepEqual(res.Plurals, []string{"air"}) {
		t.Fatalf("dictionary 档不应纳入 informal 形，实际 %v", res.Plurals)
	}
}

func TestLookup_DefaultCountableWhenEntryLacksMarker(t *testing.T) {
	webster := websterStub("feet")
	webster.entry.Headword = "foot"
	hippo := &stubProvider{name: "wordhippo", fetchErr: &provider.NotFoundError{Provider: "wordhippo", Word: "foot"}}

	res, err := newEngine(t, webster, hippo).Lookup(context.Background(), "foot", domain.StrictDictionary)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if res.Countable != domain.CountCountable {
		t.Fatalf("有词条但无可数性标注时应默认 countable，实际 %v", res.Countable)
	}
}

func TestLookup_NotFoundIsDataNotError(t *testing.T) {
	webster := &stubProvider{name: "webster", fetchErr: &provider.NotFoundError{Provider: "webster", Word: "enjoy"}}
	hippo := &stubProvider{name: "wordhippo", fetchErr: &provider.NotFoundError{Provider: "wordhippo", Word: "enjoy"}}
	eng := newEngine(t, webster, hippo)

	res, err := eng.Lookup(context.Background(), "enjoy", domain.StrictDictionary)
	if err != nil {
		t.Fatalf("查无此词不是错误：%v", err)
	}
	if len(res.Plurals) != 0 || res.Base != "" || res.Countable != domain.CountUnknown {
		t.Fatalf("期望空结果 + unknown，实际 %+v", res)
	}
	if res.Plurals == nil {
		t.Fatalf("Plurals 必须是空切片而非 nil（JSON 序列化为 []）")
	}
}

func TestLookup_ForcedFallsBackToHeuristic(t *testing.T) {
	webster := &stubProvider{name: "webster", fetchErr: &provider.NotFoundError{Provider: "webster", Word: "enjoy"}}
	hippo := &stubProvider{name: "wordhippo", fetchErr: &provider.NotFoundError{Provider: "wordhippo", Word: "enjoy"}}
	eng := newEngine(t, webster, hippo)

	res, err := eng.Lookup(context.Background(), "enjoy", domain.StrictForced)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !reflect.DeepEqual(res.Plurals, []string{"enjoys"}) {
		t.Fatalf("期望启发式给出 [enjoys]，实际 %v", res.Plurals)
	}
	if !res.Guessed {
		t.Fatalf("兜底结果必须标记 Guessed")
	}
	if res.Base != "" {
		t.Fatalf("兜底结果不应有 Base，实际 %q", res.Base)
	}
	if res.Countable != domain.CountUnknown {
		t.Fatalf("兜底结果可数性应为 unknown，实际 %v", res.Countable)
	}
}

func TestLookup_TransientFailurePropagates(t *testing.T) {
	webster := &stubProvider{name: "webster", fetchErr: &provider.HTTPStatusError{URL: "u", StatusCode: 429}}
	hippo := &stubProvider{name: "wordhippo"}
	eng := newEngine(t, webster, hippo)

	_, err := eng.Lookup(context.Background(), "foot", domain.StrictDictionary)
	if err == nil {
		t.Fatalf("期望瞬时失败上抛，但得到 nil")
	}
	if provider.IsNotFound(err) {
		t.Fatalf("瞬时失败绝不能被当作查无此词")
	}
	var pe *provider.Error
	if !errors.As(err, &pe) || pe.Provider != "webster" {
		t.Fatalf("期望 *provider.Error{webster}，实际 %v", err)
	}
}

func TestLookup_InvalidStrictLevelFailsFast(t *testing.T) {
	webster := websterStub("feet")
	eng := newEngine(t, webster)

	_, err := eng.Lookup(context.Background(), "foot", domain.StrictLevel(0))
	if !errors.Is(err, ErrInvalidStrictLevel) {
		t.Fatalf("期望 ErrInvalidStrictLevel，实际 %v", err)
	}
	if webster.fetchCalls != 0 {
		t.Fatalf("非法参数不应触发任何抓取")
	}
}

func TestLookup_InvalidWord(t *testing.T) {
	eng := newEngine(t, websterStub("feet"))
	_, err := eng.Lookup(context.Background(), "!!!", domain.StrictDictionary)
	if !errors.Is(err, ErrInvalidWord) {
		t.Fatalf("期望 ErrInvalidWord，实际 %v", err)
	}
}

func TestLookup_ResultCacheSkipsFetch(t *testing.T) {
	webster := websterStub("octopuses", "octopi")
	webster.entry.Headword = "octopus"
	eng := newEngine(t, webster)
	eng.Store = cache.New(t.TempDir(), false)

	first, err := eng.Lookup(context.Background(), "octopus", domain.StrictDictionary)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if webster.fetchCalls != 1 {
		t.Fatalf("首次查询应抓取一次，实际 %d", webster.fetchCalls)
	}

	second, err := eng.Lookup(context.Background(), "Octopus", domain.StrictDictionary)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if webster.fetchCalls != 1 {
		t.Fatalf("缓存命中不应再抓取，实际 %d", webster.fetchCalls)
	}
	if second.Query != "Octopus" {
		t.Fatalf("Query 必须回填调用方原始输入，实际 %q", second.Query)
	}
	if !reflect.DeepEqual(first.Plurals, second.Plurals) {
		t.Fatalf("缓存结果与首次结果不一致：%v vs %v", first.Plurals, second.Plurals)
	}
}

func TestLookup_PageCacheKeyedByStrict(t *testing.T) {
	webster := websterStub("octopuses")
	webster.entry.Headword = "octopus"
	eng := newEngine(t, webster)
	eng.Store = cache.New(t.TempDir(), false)

	if _, err := eng.Lookup(context.Background(), "octopus", domain.StrictDictionary); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	// strict 不同 → 结果缓存未命中，但页面缓存命中，不再出网。
	if _, err := eng.Lookup(context.Background(), "octopus", domain.StrictInclusive); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if webster.fetchCalls != 1 {
		t.Fatalf("页面缓存应避免重复抓取，实际 %d", webster.fetchCalls)
	}
}
