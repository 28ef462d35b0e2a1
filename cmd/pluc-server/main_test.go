package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dictionary-video/pluc/internal/domain"
	"github.com/dictionary-video/pluc/internal/provider"
	"github.com/dictionary-video/pluc/internal/resolve"
)

type stubProvider struct {
	name     string
	fetchErr error
	entry    domain.Entry
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) EntryURL(word domain.Word) string {
	return "https://example.test/" + p.name + "/" + string(word)
}

func (p *stubProvider) Fetch(_ context.Context, word domain.Word, _ *http.Client) ([]byte, string, error) {
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

func testEngine(t *testing.T, p *stubProvider) *resolve.Engine {
	t.Helper()
	reg, err := provider.NewRegistry(p)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	return &resolve.Engine{Registry: reg, Order: []string{p.name}}
}

func TestHandleLookup_OK(t *testing.T) {
	eng := testEngine(t, &stubProvider{name: "webster", entry: domain.Entry{
		Headword: "octopus",
		Forms: []domain.PluralForm{
			{Spelling: "octopuses", Tier: domain.TierSanctioned},
			{Spelling: "octopi", Tier: domain.TierSanctioned},
		},
	}})
	srv := httptest.NewServer(newMux(eng, domain.StrictDictionary))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/lookup?word=octopus")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", resp.StatusCode)
	}
	var res domain.LookupResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("解码失败：%v", err)
	}
	if res.Base != "octopus" || len(res.Plurals) != 2 {
		t.Fatalf("结果不符合预期：%+v", res)
	}
}

func TestHandleLookup_NotFoundIsDataWith200(t *testing.T) {
	eng := testEngine(t, &stubProvider{name: "webster",
		fetchErr: &provider.NotFoundError{Provider: "webster", Word: "blorp"}})
	srv := httptest.NewServer(newMux(eng, domain.StrictDictionary))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/lookup?word=blorp")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("查无此词是数据不是错误，期望 200，实际 %d", resp.StatusCode)
	}
	var res domain.LookupResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("解码失败：%v", err)
	}
	if len(res.Plurals) != 0 || res.Countable != domain.CountUnknown {
		t.Fatalf("期望空结果 + unknown，实际 %+v", res)
	}
}

func TestHandleLookup_InvalidStrictIs400(t *testing.T) {
	eng := testEngine(t, &stubProvider{name: "webster"})
	srv := httptest.NewServer(newMux(eng, domain.StrictDictionary))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/lookup?word=foot&strict=loose")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("期望 400，实际 %d", resp.StatusCode)
	}
	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		t.Fatalf("解码失败：%v", err)
	}
	if er.Code != domain.ErrCodeInvalidStrict {
		t.Fatalf("期望 code=invalid_strict_level，实际 %+v", er)
	}
}

func TestHandleLookup_TransientFailureIs502(t *testing.T) {
	eng := testEngine(t, &stubProvider{name: "webster",
		fetchErr: &provider.HTTPStatusError{URL: "u", StatusCode: 429}})
	srv := httptest.NewServer(newMux(eng, domain.StrictDictionary))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/lookup?word=foot")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("上游瞬时失败期望 502，实际 %d", resp.StatusCode)
	}
}

func TestHandleLookup_MissingWordIs400(t *testing.T) {
	eng := testEngine(t, &stubProvider{name: "webster"})
	srv := httptest.NewServer(newMux(eng, domain.StrictDictionary))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/lookup")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("期望 400，实际 %d", resp.StatusCode)
	}
}

func TestHandleGuess(t *testing.T) {
	eng := testEngine(t, &stubProvider{name: "webster"})
	srv := httptest.NewServer(newMux(eng, domain.StrictDictionary))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/guess?word=enjoy")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", resp.StatusCode)
	}
	var gr guessResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		t.Fatalf("解码失败：%v", err)
	}
	if gr.Query != "enjoy" || gr.Plural != "enjoys" {
		t.Fatalf("期望 enjoy→enjoys，实际 %+v", gr)
	}
}

func TestHandleHealthz(t *testing.T) {
	eng := testEngine(t, &stubProvider{name: "webster"})
	srv := httptest.NewServer(newMux(eng, domain.StrictDictionary))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", resp.StatusCode)
	}
}

func TestHandleLookup_MethodNotAllowed(t *testing.T) {
	eng := testEngine(t, &stubProvider{name: "webster"})
	srv := httptest.NewServer(newMux(eng, domain.StrictDictionary))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/lookup?word=foot", "application/json", nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("期望 405，实际 %d", resp.StatusCode)
	}
}
