package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dictionary-video/pluc/internal/config"
	"github.com/dictionary-video/pluc/internal/domain"
	"github.com/dictionary-video/pluc/internal/infra/cache"
	"github.com/dictionary-video/pluc/internal/infra/httpx"
	"github.com/dictionary-video/pluc/internal/infra/ratelimit"
	"github.com/dictionary-video/pluc/internal/provider"
	"github.com/dictionary-video/pluc/internal/provider/webster"
	"github.com/dictionary-video/pluc/internal/provider/wordhippo"
	"github.com/dictionary-video/pluc/internal/resolve"
	"github.com/dictionary-video/pluc/internal/sanity"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "lookup":
		if code := lookupCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	case "sanity":
		if code := sanityCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

// commonArgs 是两个子命令共享的配置入口。
type commonArgs struct {
	Config string

	Strict    string
	StrictSet bool

	CacheRoot    string
	CacheRootSet bool

	NoCacheWrite    bool
	NoCacheWriteSet bool
}

func (ca commonArgs) cliArgs() config.CLIArgs {
	return config.CLIArgs{
		Config:          ca.Config,
		Strict:          ca.Strict,
		StrictSet:       ca.StrictSet,
		CacheRoot:       ca.CacheRoot,
		CacheRootSet:    ca.CacheRootSet,
		NoCacheWrite:    ca.NoCacheWrite,
		NoCacheWriteSet: ca.NoCacheWriteSet,
	}
}

// parseCommonFlag 尝试消费一个公共参数；ok=false 表示该参数不属于公共集合。
func parseCommonFlag(args []string, i int, ca *commonArgs) (next int, ok bool, err error) {
	a := args[i]
	switch {
	case a == "--config":
		if i+1 >= len(args) {
			return i, true, fmt.Errorf("--config 需要一个值")
		}
		ca.Config = args[i+1]
		return i + 1, true, nil
	case strings.HasPrefix(a, "--config="):
		ca.Config = strings.TrimPrefix(a, "--config=")
		return i, true, nil
	case a == "--strict":
		if i+1 >= len(args) {
			return i, true, fmt.Errorf("--strict 需要一个值")
		}
		ca.Strict = args[i+1]
		ca.StrictSet = true
		return i + 1, true, nil
	case strings.HasPrefix(a, "--strict="):
		ca.Strict = strings.TrimPrefix(a, "--strict=")
		ca.StrictSet = true
		return i, true, nil
	case a == "--cache-root":
		if i+1 >= len(args) {
			return i, true, fmt.Errorf("--cache-root 需要一个值")
		}
		ca.CacheRoot = args[i+1]
		ca.CacheRootSet = true
		return i + 1, true, nil
	case strings.HasPrefix(a, "--cache-root="):
		ca.CacheRoot = strings.TrimPrefix(a, "--cache-root=")
		ca.CacheRootSet = true
		return i, true, nil
	case a == "--no-cache-write":
		ca.NoCacheWrite = true
		ca.NoCacheWriteSet = true
		return i, true, nil
	case strings.HasPrefix(a, "--no-cache-write="):
		v := strings.TrimPrefix(a, "--no-cache-write=")
		switch v {
		case "true":
			ca.NoCacheWrite = true
		case "false":
			ca.NoCacheWrite = false
		default:
			return i, true, fmt.Errorf("--no-cache-write 只能是 true 或 false，实际是 %q", v)
		}
		ca.NoCacheWriteSet = true
		return i, true, nil
	}
	return i, false, nil
}

// buildEngine 按最终配置装配查询引擎。
func buildEngine(eff config.EffectiveConfig) (*resolve.Engine, error) {
	client, err := httpx.NewPageClient(eff.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("初始化 HTTP client 失败：%w", err)
	}
	reg, err := provider.NewRegistry(
		webster.Provider{BaseURL: eff.WebsterBaseURL},
		wordhippo.Provider{BaseURL: eff.WordHippoBaseURL},
	)
	if err != nil {
		return nil, fmt.Errorf("初始化 provider registry 失败：%w", err)
	}

	eng := &resolve.Engine{
		Registry: reg,
		Order:    eff.Providers,
		Client:   client,
		Limiter:  ratelimit.New(eff.RateInterval),
	}
	if eff.CacheRoot != "" {
		eng.Store = cache.New(eff.CacheRoot, eff.NoCacheWrite)
	}
	return eng, nil
}

// ---------------------------------------------------------------------------
// lookup 子命令

type lookupArgs struct {
	commonArgs
	Word string
}

func lookupCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printLookupUsage()
			return 0
		}
	}

	la, err := parseLookupArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printLookupUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, la.cliArgs())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	eng, err := buildEngine(eff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	res, err := eng.Lookup(context.Background(), la.Word, eff.Strict)
	if err != nil {
		if errors.Is(err, resolve.ErrInvalidStrictLevel) || errors.Is(err, resolve.ErrInvalidWord) {
			fmt.Fprintf(os.Stderr, "参数错误：%v\n", err)
			return 2
		}
		fmt.Fprintf(os.Stderr, "查询失败：%v\n", err)
		return 1
	}

	// stdout 必须且仅输出一个 LookupResult JSON（日志走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)
	return 0
}

func parseLookupArgs(args []string) (lookupArgs, error) {
	la := lookupArgs{}
	for i := 0; i < len(args); i++ {
		a := args[i]
		next, ok, err := parseCommonFlag(args, i, &la.commonArgs)
		if err != nil {
			return lookupArgs{}, err
		}
		if ok {
			i = next
			continue
		}
		switch {
		case strings.HasPrefix(a, "-"):
			return lookupArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if la.Word != "" {
				return lookupArgs{}, fmt.Errorf("重复的 word：%q 与 %q", la.Word, a)
			}
			la.Word = a
		}
	}
	if la.Word == "" {
		return lookupArgs{}, fmt.Errorf("缺少查询词")
	}
	return la, nil
}

// ---------------------------------------------------------------------------
// sanity 子命令

type sanityArgs struct {
	commonArgs
	Suite  string
	Levels []string
	CSVOut string
}

func sanityCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printSanityUsage()
			return 0
		}
	}

	sa, err := parseSanityArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printSanityUsage()
		return 2
	}

	levels := make([]domain.StrictLevel, 0, len(sa.Levels))
	for _, s := range sa.Levels {
		v, ok := domain.ParseStrictLevel(s)
		if !ok {
			fmt.Fprintf(os.Stderr, "参数错误：非法 strict level %q\n", s)
			return 2
		}
		levels = append(levels, v)
	}
	if len(levels) == 0 {
		levels = []domain.StrictLevel{domain.StrictDictionary}
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, sa.cliArgs())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	eng, err := buildEngine(eff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	suite := sanity.BuiltinSuite()
	if sa.Suite != "" {
		suite, err = sanity.LoadSuiteCSV(sa.Suite)
		if err != nil {
			fmt.Fprintf(os.Stderr, "读取用例失败：%v\n", err)
			return 1
		}
	}

	var obs sanity.Observer
	if isTTY(os.Stderr) {
		obs = &progressObserver{w: os.Stderr}
	}

	report := sanity.Run(context.Background(), eng, suite, levels, obs)

	if sa.CSVOut != "" {
		f, err := os.Create(sa.CSVOut)
		if err != nil {
			fmt.Fprintf(os.Stderr, "创建 CSV 失败：%v\n", err)
			return 1
		}
		werr := sanity.WriteCSV(f, report)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			fmt.Fprintf(os.Stderr, "写 CSV 失败：%v\n", werr)
			return 1
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
	fmt.Fprintf(os.Stderr, "完成：passed=%d failed=%d errors=%d\n",
		report.Summary.Passed, report.Summary.Failed, report.Summary.Errors)

	if report.Summary.Failed == 0 && report.Summary.Errors == 0 {
		return 0
	}
	return 1
}

func parseSanityArgs(args []string) (sanityArgs, error) {
	sa := sanityArgs{}
	for i := 0; i < len(args); i++ {
		a := args[i]
		next, ok, err := parseCommonFlag(args, i, &sa.commonArgs)
		if err != nil {
			return sanityArgs{}, err
		}
		if ok {
			i = next
			continue
		}
		switch {
		case a == "--suite":
			if i+1 >= len(args) {
				return sanityArgs{}, fmt.Errorf("--suite 需要一个值")
			}
			i++
			sa.Suite = args[i]
		case strings.HasPrefix(a, "--suite="):
			sa.Suite = strings.TrimPrefix(a, "--suite=")
		case a == "--levels":
			if i+1 >= len(args) {
				return sanityArgs{}, fmt.Errorf("--levels 需要一个值")
			}
			i++
			sa.Levels = splitLevels(args[i])
		case strings.HasPrefix(a, "--levels="):
			sa.Levels = splitLevels(strings.TrimPrefix(a, "--levels="))
		case a == "--csv":
			if i+1 >= len(args) {
				return sanityArgs{}, fmt.Errorf("--csv 需要一个值")
			}
			i++
			sa.CSVOut = args[i]
		case strings.HasPrefix(a, "--csv="):
			sa.CSVOut = strings.TrimPrefix(a, "--csv=")
		case strings.HasPrefix(a, "-"):
			return sanityArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			return sanityArgs{}, fmt.Errorf("多余的参数 %q", a)
		}
	}
	return sa, nil
}

func splitLevels(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// progressObserver 在 stderr 上逐项输出批跑进度（stdout 保持纯 JSON）。
type progressObserver struct {
	w *os.File
}

func (o *progressObserver) OnStart(total int) {
	fmt.Fprintf(o.w, "开始批跑：共 %d 项\n", total)
}

func (o *progressObserver) OnItemDone(idx, total int, item domain.SanityItem, dur time.Duration) {
	fmt.Fprintf(o.w, "[%d/%d] %s (%s) %s %s\n",
		idx, total, item.Word, item.Strict, item.Status, dur.Round(time.Millisecond))
}

// ---------------------------------------------------------------------------

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  pluc lookup <word> [--strict dictionary|inclusive|forced] [选项]
  pluc sanity [--suite file.csv] [--levels a,b] [--csv out.csv] [选项]

命令：
  lookup  查询一个名词的复数与可数性，stdout 输出 JSON
  sanity  用不规则名词用例批跑引擎并输出核对报告

使用 "pluc <命令> --help" 查看详细说明。
`)
}

func printLookupUsage() {
	fmt.Fprint(os.Stdout, `用法：
  pluc lookup <word> [--strict dictionary|inclusive|forced] [选项]

参数：
  --strict          档位：dictionary 只回词典背书；inclusive 含民间变体；
                    forced 查无此词时用规则引擎兜底（默认读配置；最终默认 dictionary）
  --config          配置文件路径（默认尝试 <cwd>/pluc.json，可缺省）
  --cache-root      文件缓存根目录（为空禁用缓存）
  --no-cache-write  只读缓存：命中可用，不回写
  -h, --help        显示帮助
`)
}

func printSanityUsage() {
	fmt.Fprint(os.Stdout, `用法：
  pluc sanity [--suite file.csv] [--levels dictionary,inclusive] [--csv out.csv] [选项]

参数：
  --suite           CSV 用例文件（必需列 singular，可选 base 与 plural_1..3；
                    未指定则使用内置不规则名词用例）
  --levels          逗号分隔的档位列表（默认 dictionary）
  --csv             同时把报告导出为 CSV 文件
  其余选项与 lookup 相同
  -h, --help        显示帮助
`)
}
