package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dictionary-video/pluc/internal/domain"
)

const (
	// DefaultStrict 是 strict level 的最终默认值（CLI 与配置文件都未指定时）。
	DefaultStrict = domain.StrictDictionary
	// DefaultRateInterval 是相邻两次出站请求的最小间隔默认值。
	DefaultRateInterval = time.Second
	// DefaultListenAddr 是 HTTP 服务的默认监听地址。
	DefaultListenAddr = ":8080"
)

// DefaultProviders 是询问顺序的默认值（词典背书源在前，合并优先级依赖该顺序）。
func DefaultProviders() []string { return []string{"webster", "wordhippo"} }

// CLIArgs 只包含 CLI 暴露的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --no-cache-write=false 必须能覆盖配置文件。
type CLIArgs struct {
	// Config 是显式指定的配置文件路径；为空时按 <cwd>/pluc.json 发现（可选）。
	Config string

	Strict    string
	StrictSet bool

	CacheRoot    string
	CacheRootSet bool

	NoCacheWrite    bool
	NoCacheWriteSet bool

	ListenAddr    string
	ListenAddrSet bool
}

// FileConfig 对应 pluc.json 的解析结构。
type FileConfig struct {
	Providers      []string     `json:"providers"`
	StrictLevel    string       `json:"strict_level"`
	CacheRoot      string       `json:"cache_root"`
	NoCacheWrite   *bool        `json:"no_cache_write"`
	Proxy          *ProxyConfig `json:"proxy"`
	RateIntervalMS *int         `json:"rate_interval_ms"`

	// 站点镜像域名（可选，高级能力；不暴露 CLI 参数）。
	WebsterBaseURL   string `json:"webster_base_url"`
	WordHippoBaseURL string `json:"wordhippo_base_url"`

	ListenAddr string `json:"listen_addr"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置
// （实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Providers []string
	Strict    domain.StrictLevel

	// CacheRoot 为空表示禁用文件缓存。
	CacheRoot    string
	NoCacheWrite bool

	ProxyURL     string
	RateInterval time.Duration

	WebsterBaseURL   string
	WordHippoBaseURL string

	ListenAddr string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case domain.ErrCodeConfigNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case domain.ErrCodeConfigInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：该文件必须存在且可解析
// 2) CLI 未提供：尝试 <cwd>/pluc.json（可选，缺失时全走默认值）
//
// 覆盖优先级（固定）：CLI > 配置文件 > 内置默认。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
	)
	if strings.TrimSpace(cli.Config) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.Config)
		exists := false
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, "pluc.json")
		fc, _, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath, Err: err}
		}
		// 不存在也不报错：pluc 没有必填配置项。
	}

	return merge(cwdAbs, cli, fc, cfgPath)
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	// strict：CLI > config > 默认 dictionary
	strict := DefaultStrict
	if cli.StrictSet {
		v, ok := domain.ParseStrictLevel(cli.Strict)
		if !ok {
			return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath,
				Err: fmt.Errorf("strict level 只能是 dictionary/inclusive/forced，实际是 %q", cli.Strict)}
		}
		strict = v
	} else if s := strings.TrimSpace(fc.StrictLevel); s != "" {
		v, ok := domain.ParseStrictLevel(s)
		if !ok {
			return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath,
				Err: fmt.Errorf("strict_level 只能是 dictionary/inclusive/forced，实际是 %q", s)}
		}
		strict = v
	}

	// providers：仅由 config 控制；顺序即合并优先级
	providers := DefaultProviders()
	if len(fc.Providers) > 0 {
		providers = make([]string, 0, len(fc.Providers))
		seen := make(map[string]struct{}, len(fc.Providers))
		for _, p := range fc.Providers {
			p = strings.ToLower(strings.TrimSpace(p))
			if err := validateProvider(p); err != nil {
				return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath, Err: err}
			}
			if _, ok := seen[p]; ok {
				return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath,
					Err: fmt.Errorf("providers 重复：%q", p)}
			}
			seen[p] = struct{}{}
			providers = append(providers, p)
		}
	}

	// cache_root：CLI > config；相对路径以 cwd 为基准
	cacheRoot := strings.TrimSpace(fc.CacheRoot)
	if cli.CacheRootSet {
		cacheRoot = strings.TrimSpace(cli.CacheRoot)
	}
	if cacheRoot != "" {
		cacheRoot = absCleanFrom(cwdAbs, cacheRoot)
	}

	noCacheWrite := false
	if cli.NoCacheWriteSet {
		noCacheWrite = cli.NoCacheWrite
	} else if fc.NoCacheWrite != nil {
		noCacheWrite = *fc.NoCacheWrite
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err != nil {
			return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath,
				Err: fmt.Errorf("proxy.url 无效：%w", err)}
		}
	}

	rate := DefaultRateInterval
	if fc.RateIntervalMS != nil {
		if *fc.RateIntervalMS < 0 {
			return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath,
				Err: fmt.Errorf("rate_interval_ms 不能为负：%d", *fc.RateIntervalMS)}
		}
		rate = time.Duration(*fc.RateIntervalMS) * time.Millisecond
	}

	websterBase, err := validateBaseURL("webster_base_url", fc.WebsterBaseURL)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath, Err: err}
	}
	hippoBase, err := validateBaseURL("wordhippo_base_url", fc.WordHippoBaseURL)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath, Err: err}
	}

	// listen_addr：CLI > config > 默认
	listenAddr := DefaultListenAddr
	if cli.ListenAddrSet {
		listenAddr = strings.TrimSpace(cli.ListenAddr)
	} else if s := strings.TrimSpace(fc.ListenAddr); s != "" {
		listenAddr = s
	}
	if listenAddr == "" {
		return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath,
			Err: fmt.Errorf("listen_addr 不能为空")}
	}

	return EffectiveConfig{
		Providers:        providers,
		Strict:           strict,
		CacheRoot:        cacheRoot,
		NoCacheWrite:     noCacheWrite,
		ProxyURL:         proxyURL,
		RateInterval:     rate,
		WebsterBaseURL:   websterBase,
		WordHippoBaseURL: hippoBase,
		ListenAddr:       listenAddr,
	}, nil
}

func validateProvider(p string) error {
	switch p {
	case "webster", "wordhippo":
		return nil
	case "":
		return fmt.Errorf("provider 不能为空")
	default:
		return fmt.Errorf("provider 只能是 webster 或 wordhippo，实际是 %q", p)
	}
}

func validateBaseURL(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%s 无效：%q", field, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%s 必须是 http/https：%q", field, raw)
	}
	return raw, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
