package wordhippo

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/dictionary-video/pluc/internal/domain"
	providerx "github.com/dictionary-video/pluc/internal/provider"
)

// Provider 实现 WordHippo 的复数页抓取与解析。
//
// 约束：
// - WordHippo 会给出“can also be”的民间变体：主形是 sanctioned，
//   “can also be”形是 informal（inclusive 档才纳入）
// - 可数性标注只有 WordHippo 有，是 Countability 的唯一页面来源
// - 查复数形（如 men 页标注 "is the plural of man"）由 Fetch 改取 base 页
// - Fetch/Parse 不做缓存/重试/限速（由上层统一控制）
type Provider struct {
	// BaseURL 允许指定镜像域名（为空时使用 https://www.wordhippo.com）。
	BaseURL string
}

func (Provider) Name() string { return "wordhippo" }

func (p Provider) baseURL() string {
	u := strings.TrimSpace(p.BaseURL)
	if u == "" {
		return "https://www.wordhippo.com"
	}
	return strings.TrimRight(u, "/")
}

// EntryURL 返回复数页 URL；站点用下划线表示词组里的空格。
func (p Provider) EntryURL(word domain.Word) string {
	slug := strings.ReplaceAll(string(word), " ", "_")
	return p.baseURL() + "/what-is/the-plural-of/" + slug + ".html"
}

// reOriginal 命中“查复数形”页（men 页标注 is the plural of man）。
var reOriginal = regexp.MustCompile(`is the plural of <a href="/what-is/the-plural-of/[^"]*">([^<]*)</a>`)

// Fetch 抓取复数页；若页面标注 "is the plural of X"，改取 X 的复数页。
func (p Provider) Fetch(ctx context.Context, word domain.Word, c *http.Client) ([]byte, string, error) {
	if c == nil {
		return nil, "", errors.New("http client 不能为空")
	}
	if word == "" {
		return nil, "", errors.New("word 不能为空")
	}

	pageURL := p.EntryURL(word)
	html, err := providerx.FetchHTML(ctx, c, pageURL)
	if err != nil {
		if notFoundStatus(err) {
			return nil, "", &providerx.NotFoundError{Provider: "wordhippo", Word: word}
		}
		return nil, "", err
	}

	if base := originalOf(html); base != "" && base != string(word) {
		bw, ok := domain.ParseWord(base)
		if !ok {
			return html, pageURL, nil
		}
		baseURL := p.EntryURL(bw)
		baseHTML, err := providerx.FetchHTML(ctx, c, baseURL)
		if err != nil {
			if notFoundStatus(err) {
				return nil, "", &providerx.NotFoundError{Provider: "wordhippo", Word: bw}
			}
			return nil, "", err
		}
		return baseHTML, baseURL, nil
	}

	return html, pageURL, nil
}

// originalOf 返回复数形页指向的 base 词；空串表示本页就是 base 词的页。
func originalOf(html []byte) string {
	m := reOriginal.FindStringSubmatch(providerx.NormalizeHTML(html))
	if m == nil {
		return ""
	}
	return strings.ToLower(strings.Join(strings.Fields(m[1]), " "))
}

// 页面是叙述句式（"The plural form of foot is feet."），逐级匹配。
// 次序很重要：带变体的长句式必须先于朴素句式。
var (
	// octopus：The plural form of octopus is octopuses or octopi（两者都算词典背书）
	reAOrB = regexp.MustCompile(`plural form of \w* is <b><a[^>]*>([^<]*)</a></b> or <b>([^<]*)</b>`)
	// water：the plural form will also be water ... the plural form can also be waters
	reAAlsoB = regexp.MustCompile(`plural form will also be <b><a[^>]*>([^<]*)</a></b>.*?the plural form can also be <b><a[^>]*>([^<]*)</a></b>`)
	// 同句式的 will be 变体
	reAAlsoB2 = regexp.MustCompile(`plural form will be <b><a[^>]*>([^<]*)</a></b>.*?the plural form can also be <b><a[^>]*>([^<]*)</a></b>`)
	// deer：the plural form ... is also deer ... the plural form can also be deers
	reAlsoPair = regexp.MustCompile(`is also <b><a[^>]*>([^<]*)</a></b>.*?the plural form can also be <b><a[^>]*>([^<]*)</a></b>`)
	// foot：The plural form of foot is feet.
	reA = regexp.MustCompile(`plural form of \w* is *<b><a[^>]*>([^<]*)</a></b>.`)
	// sheep：the plural form is also sheep（无变体）
	reAlsoOnly = regexp.MustCompile(`is also <b><a href="/what-is/the-meaning-of-the-word/[^>]*">([^<]*)</a></b>.`)

	// 词条标题从叙述句里取；词组命中不了 \w* 时回落为查询词。
	reHeadOf  = regexp.MustCompile(`plural form of ([\w'-]+) is`)
	reHeadCan = regexp.MustCompile(`The noun ([\w'-]+) can be`)
)

// Parse 把 WordHippo 复数页解析为 Entry。
func (Provider) Parse(word domain.Word, html []byte, pageURL string) (domain.Entry, error) {
	if word == "" {
		return domain.Entry{}, errors.New("word 不能为空")
	}
	if len(html) == 0 {
		return domain.Entry{}, errors.New("html 为空")
	}
	if strings.TrimSpace(pageURL) == "" {
		return domain.Entry{}, errors.New("pageURL 不能为空")
	}

	norm := providerx.NormalizeHTML(html)

	if strings.Contains(norm, "No words found.") {
		return domain.Entry{}, &providerx.NotFoundError{Provider: "wordhippo", Word: word}
	}

	forms := findForms(norm)
	if len(forms) == 0 {
		// 页面存在但没有任何复数叙述句：该词不在参考数据里。
		return domain.Entry{}, &providerx.NotFoundError{Provider: "wordhippo", Word: word}
	}

	entry := domain.Entry{
		Headword:   headwordOf(norm, word),
		Forms:      dedupe(forms),
		PluralOnly: strings.Contains(norm, "<i>plural only</i>"),
		Website:    strings.TrimSpace(pageURL),
	}

	switch {
	case strings.Contains(norm, "can be countable or uncountable"):
		entry.Countability = domain.CountEither
	case strings.Contains(norm, "is <i>uncountable</i>"):
		entry.Countability = domain.CountUncountable
	default:
		entry.Countability = domain.CountCountable
	}
	return entry, nil
}

// findForms 逐级匹配叙述句式；返回 nil 表示页面没有复数叙述。
func findForms(s string) []domain.PluralForm {
	if m := reAOrB.FindStringSubmatch(s); m != nil {
		return []domain.PluralForm{
			{Spelling: m[1], Tier: domain.TierSanctioned},
			{Spelling: m[2], Tier: domain.TierSanctioned},
		}
	}
	for _, re := range []*regexp.Regexp{reAAlsoB, reAAlsoB2, reAlsoPair} {
		if m := re.FindStringSubmatch(s); m != nil {
			return []domain.PluralForm{
				{Spelling: m[1], Tier: domain.TierSanctioned},
				{Spelling: m[2], Tier: domain.TierInformal},
			}
		}
	}
	if m := reA.FindStringSubmatch(s); m != nil {
		return []domain.PluralForm{{Spelling: m[1], Tier: domain.TierSanctioned}}
	}
	if m := reAlsoOnly.FindStringSubmatch(s); m != nil {
		return []domain.PluralForm{{Spelling: m[1], Tier: domain.TierSanctioned}}
	}
	return nil
}

func headwordOf(norm string, word domain.Word) string {
	if m := reHeadOf.FindStringSubmatch(norm); m != nil {
		return strings.ToLower(m[1])
	}
	if m := reHeadCan.FindStringSubmatch(norm); m != nil {
		return strings.ToLower(m[1])
	}
	return string(word)
}

func dedupe(forms []domain.PluralForm) []domain.PluralForm {
	out := make([]domain.PluralForm, 0, len(forms))
	seen := make(map[string]struct{}, len(forms))
	for _, f := range forms {
		f.Spelling = strings.Join(strings.Fields(f.Spelling), " ")
		if f.Spelling == "" {
			continue
		}
		if _, ok := seen[f.Spelling]; ok {
			continue
		}
		seen[f.Spelling] = struct{}{}
		out = append(out, f)
	}
	return out
}

func notFoundStatus(err error) bool {
	var hs *providerx.HTTPStatusError
	return errors.As(err, &hs) && hs.StatusCode == http.StatusNotFound
}
