package webster

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dictionary-video/pluc/internal/domain"
	providerx "github.com/dictionary-video/pluc/internal/provider"
)

// Provider 实现 Merriam-Webster 的词条页抓取与解析。
//
// 约束：
// - 词典背书以 Webster 为准：这里解析出的所有复数拼写都是 sanctioned 层级
// - 查复数形（如 men）会被词条页标注 "plural of man"：Fetch 负责改取
//   base 词条页（与搜索页→详情页的两段式抓取同构）
// - Fetch/Parse 不做缓存/重试/限速（由上层统一控制）
// - Parse 必须是纯函数（依赖输入 html + pageURL）
type Provider struct {
	// BaseURL 允许指定镜像域名（为空时使用 https://www.merriam-webster.com）。
	BaseURL string
}

func (Provider) Name() string { return "webster" }

func (p Provider) baseURL() string {
	u := strings.TrimSpace(p.BaseURL)
	if u == "" {
		return "https://www.merriam-webster.com"
	}
	return strings.TrimRight(u, "/")
}

// EntryURL 返回词条页 URL：https://www.merriam-webster.com/dictionary/<word>
func (p Provider) EntryURL(word domain.Word) string {
	return p.baseURL() + "/dictionary/" + url.PathEscape(string(word))
}

// Fetch 抓取词条页；若页面是复数形交叉引用（"plural of X"），改取 X 的词条页。
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
			return nil, "", &providerx.NotFoundError{Provider: "webster", Word: word}
		}
		return nil, "", err
	}

	if isMispelled(html) {
		// Webster 的“查无此词/拼写建议”页，明确表示词不存在。
		return nil, "", &providerx.NotFoundError{Provider: "webster", Word: word}
	}

	if base := crossRefBase(html); base != "" && base != string(word) {
		bw, ok := domain.ParseWord(base)
		if !ok {
			return html, pageURL, nil
		}
		baseURL := p.EntryURL(bw)
		baseHTML, err := providerx.FetchHTML(ctx, c, baseURL)
		if err != nil {
			if notFoundStatus(err) {
				return nil, "", &providerx.NotFoundError{Provider: "webster", Word: bw}
			}
			return nil, "", err
		}
		return baseHTML, baseURL, nil
	}

	return html, pageURL, nil
}

// Parse 把 Webster 词条页解析为 Entry。
//
// 复数标注是行内 span 序列（plural / or / also / plural also 标签 + if 拼写），
// 页面折叠空白后用固定模式逐级匹配：常见页面命中靠前的模式，
// cactus 这类三连形（a or b also c）命中最前的整链模式。
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

	if isMispelled(html) {
		return domain.Entry{}, &providerx.NotFoundError{Provider: "webster", Word: word}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.Entry{}, err
	}

	head := normSpace(doc.Find("h1.hword").First().Text())
	if head == "" {
		// 没有词条标题：站点结构漂移或被返回了非词条页，按解析失败上抛。
		return domain.Entry{}, errors.New("页面中找不到词条标题（h1.hword）")
	}

	norm := providerx.NormalizeHTML(html)

	// "plural in form but singular or plural in construction"：
	// means/headquarters 这类词，本身就是复数拼写。
	sop := strings.Contains(norm, "plural in form but singular or plural in construction")

	forms := findPlurals(norm)
	if len(forms) == 0 && sop {
		forms = []string{head}
	}

	entry := domain.Entry{
		Headword:         head,
		Forms:            make([]domain.PluralForm, 0, len(forms)),
		Countability:     domain.CountUnknown,
		SingularOrPlural: sop,
		Website:          strings.TrimSpace(pageURL),
	}
	seen := make(map[string]struct{}, len(forms))
	for _, f := range forms {
		f = normSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		entry.Forms = append(entry.Forms, domain.PluralForm{Spelling: f, Tier: domain.TierSanctioned})
	}
	return entry, nil
}

// isMispelled 判断页面是否为 Webster 的“查无此词”页。
func isMispelled(html []byte) bool {
	return bytes.Contains(html, []byte(`<h1 class="mispelled-word">`))
}

// crossRefBase 从复数形词条页提取 base 词（"plural of X" 交叉引用）。
// 返回空串表示不是交叉引用页。
func crossRefBase(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}
	base := ""
	doc.Find("span.cxl").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(normSpace(s.Text()), "plural of") {
			return true
		}
		base = normSpace(s.Parent().Find("a.cxt span.text-uppercase").First().Text())
		return false
	})
	// text-uppercase 只是展示样式，词条 key 本身是小写。
	return strings.ToLower(base)
}

// 复数拼写的页面模式（作用于折叠空白后的 HTML）。
// 空隙限定 .{0,2000}? 避免贪婪匹配拖垮性能或串到下一词条。
// Go 的 regexp 重复上限是 1000，因此用两段 {0,1000}? 拼出 0–2000 的等价空隙。
const reGap = `.{0,1000}?.{0,1000}?`

const (
	rePluralIf = `plural&#32;</span><span class="if">([^<]*)</span>`
	reOrIf     = `<span class="il "> or&#32;</span><span class="if">([^<]*)</span>`
	reAlsoIf   = `<span class="il "> also&#32;</span><span class="if">([^<]*)</span>`
)

var (
	// cactus：plural cacti or cactuses also cactus
	reAOrBAlsoC = regexp.MustCompile(rePluralIf + reGap + reOrIf + reGap + reAlsoIf)
	// octopus：plural octopuses or octopi（also 形单独用 rePluralAlso 追加）
	reAOrB = regexp.MustCompile(rePluralIf + reGap + reOrIf)
	// foot：plural feet also foot
	reAAlsoB = regexp.MustCompile(rePluralIf + reGap + reAlsoIf)
	// woman：plural women
	rePlural = regexp.MustCompile(rePluralIf)
	// octopus 的补充形：plural also octopodes
	rePluralAlso = regexp.MustCompile(`> plural also&#32;</span><span class="if">([^<]*)</span><span class="prt-a">`)
	// water：义项内的 waters 带 "plural" 徽标
	reBadge = regexp.MustCompile(`<span class="if">([^<]*)</span>(<span class="prt-a">| )` + reGap + `<span class="spl plural badge[^"]*"> plural</span>`)
)

// findPlurals 逐级匹配复数模式；返回 nil 表示页面没有复数标注。
func findPlurals(s string) []string {
	if m := reAOrBAlsoC.FindStringSubmatch(s); m != nil {
		return m[1:]
	}
	if m := reAOrB.FindStringSubmatch(s); m != nil {
		out := m[1:]
		for _, am := range rePluralAlso.FindAllStringSubmatch(s, -1) {
			out = append(out, am[1])
		}
		return out
	}
	if m := reAAlsoB.FindStringSubmatch(s); m != nil {
		return m[1:]
	}
	if m := rePlural.FindStringSubmatch(s); m != nil {
		return m[1:]
	}
	if mm := reBadge.FindAllStringSubmatch(s, -1); len(mm) > 0 {
		out := make([]string, 0, len(mm))
		for _, m := range mm {
			// 带空格的命中多为短语义项，不是该词自身的复数拼写。
			if strings.Contains(m[1], " ") {
				continue
			}
			out = append(out, m[1])
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

// notFoundStatus 把 HTTP 404 视为“查无此词”（Webster 对未收录词返回 404）。
func notFoundStatus(err error) bool {
	var hs *providerx.HTTPStatusError
	return errors.As(err, &hs) && hs.StatusCode == http.StatusNotFound
}
