package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dictionary-video/pluc/internal/domain"
	"github.com/dictionary-video/pluc/internal/infra/fsx"
)

// Store 提供 <root>/cache/ 下的文件缓存读写。
//
// 两类缓存：
// - providers/<provider>/<word>.html：词条页原始 HTML（按 provider 分目录）
// - lookups/<word>.<strict>.json：最终 LookupResult（按 (query, strict) 键）
//
// 约束：ReadOnly=true 时只允许读（例如 --no-cache-write 运行）。
type Store struct {
	Root     string
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// Enabled 表示该 Store 是否可用（零值 Store 等价于禁用缓存）。
func (s Store) Enabled() bool { return strings.TrimSpace(s.Root) != "" }

// PageHTMLPath 返回词条页 HTML 缓存的绝对路径。
func (s Store) PageHTMLPath(provider string, word domain.Word) (string, error) {
	p, err := cleanProvider(provider)
	if err != nil {
		return "", err
	}
	f, err := wordFileName(word)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, "cache", "providers", p, f+".html"), nil
}

// LookupJSONPath 返回最终结果缓存的绝对路径（键为 (word, strict)）。
func (s Store) LookupJSONPath(word domain.Word, strict domain.StrictLevel) (string, error) {
	if !strict.Valid() {
		return "", fmt.Errorf("非法 strict level：%v", strict)
	}
	f, err := wordFileName(word)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, "cache", "lookups", f+"."+strict.String()+".json"), nil
}

func (s Store) ReadPageHTML(provider string, word domain.Word) ([]byte, bool, error) {
	path, err := s.PageHTMLPath(provider, word)
	if err != nil {
		return nil, false, err
	}
	return readFile(path)
}

func (s Store) ReadLookupJSON(word domain.Word, strict domain.StrictLevel) ([]byte, bool, error) {
	path, err := s.LookupJSONPath(word, strict)
	if err != nil {
		return nil, false, err
	}
	return readFile(path)
}

func (s Store) WritePageHTML(provider string, word domain.Word, html []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	p, err := cleanProvider(provider)
	if err != nil {
		return err
	}
	f, err := wordFileName(word)
	if err != nil {
		return err
	}
	dir := filepath.Join(s.Root, "cache", "providers", p)
	return fsx.WriteFileAtomicReplace(dir, f+".html", html)
}

func (s Store) WriteLookupJSON(word domain.Word, strict domain.StrictLevel, b []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	path, err := s.LookupJSONPath(word, strict)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(filepath.Dir(path), filepath.Base(path), b)
}

func readFile(path string) ([]byte, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

var providerNameRE = regexp.MustCompile(`^[a-z0-9_]+$`)

func cleanProvider(p string) (string, error) {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return "", fmt.Errorf("provider 不能为空")
	}
	// 最小约束：避免路径穿越；provider 名称本身是枚举（webster/wordhippo），
	// 这里不做更多“聪明”处理。
	if !providerNameRE.MatchString(p) {
		return "", fmt.Errorf("非法 provider：%q", p)
	}
	return p, nil
}

var wordFileRE = regexp.MustCompile(`^[\p{L}\p{N}'_-]+$`)

// wordFileName 把规范化后的 Word 映射为缓存文件名（空格替换为下划线）。
// Word 已经过 ParseWord 校验，这里只做兜底防御（路径穿越）。
func wordFileName(w domain.Word) (string, error) {
	s := strings.ReplaceAll(strings.TrimSpace(string(w)), " ", "_")
	if s == "" {
		return "", fmt.Errorf("word 不能为空")
	}
	if !wordFileRE.MatchString(s) {
		return "", fmt.Errorf("非法 word：%q", w)
	}
	return s, nil
}
