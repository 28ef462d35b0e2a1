// Command pluc-server exposes the plural/countability resolver as a JSON REST API.
//
// Endpoints:
//
//	GET /api/lookup?word=<noun>[&strict=dictionary|inclusive|forced]
//	GET /api/guess?word=<noun>
//	GET /healthz
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/rs/cors"

	"github.com/dictionary-video/pluc/internal/config"
	"github.com/dictionary-video/pluc/internal/domain"
	"github.com/dictionary-video/pluc/internal/guess"
	"github.com/dictionary-video/pluc/internal/infra/cache"
	"github.com/dictionary-video/pluc/internal/infra/httpx"
	"github.com/dictionary-video/pluc/internal/infra/ratelimit"
	"github.com/dictionary-video/pluc/internal/provider"
	"github.com/dictionary-video/pluc/internal/provider/webster"
	"github.com/dictionary-video/pluc/internal/provider/wordhippo"
	"github.com/dictionary-video/pluc/internal/resolve"
)

type guessResponse struct {
	Query  string `json:"query"`
	Plural string `json:"plural"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// handleLookup 把引擎语义映射到 HTTP 状态码：
// 非法参数 → 400；查无此词是数据（200 + 空结果）；上游瞬时失败 → 502。
func handleLookup(eng *resolve.Engine, defaultStrict domain.StrictLevel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "", "GET required")
			return
		}
		word := r.URL.Query().Get("word")
		if strings.TrimSpace(word) == "" {
			writeError(w, http.StatusBadRequest, domain.ErrCodeInvalidWord, "missing 'word' query parameter")
			return
		}
		strict := defaultStrict
		if s := r.URL.Query().Get("strict"); s != "" {
			v, ok := domain.ParseStrictLevel(s)
			if !ok {
				writeError(w, http.StatusBadRequest, domain.ErrCodeInvalidStrict,
					fmt.Sprintf("invalid strict level %q", s))
				return
			}
			strict = v
		}

		res, err := eng.Lookup(r.Context(), word, strict)
		if err != nil {
			switch {
			case errors.Is(err, resolve.ErrInvalidWord):
				writeError(w, http.StatusBadRequest, domain.ErrCodeInvalidWord, err.Error())
			case errors.Is(err, resolve.ErrInvalidStrictLevel):
				writeError(w, http.StatusBadRequest, domain.ErrCodeInvalidStrict, err.Error())
			default:
				// 上游站点故障；客户端可稍后重试。
				writeError(w, http.StatusBadGateway, domain.ErrCodeFetchFailed, err.Error())
			}
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleGuess() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "", "GET required")
			return
		}
		raw := r.URL.Query().Get("word")
		word, ok := domain.ParseWord(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, domain.ErrCodeInvalidWord,
				fmt.Sprintf("invalid word %q", raw))
			return
		}
		writeJSON(w, http.StatusOK, guessResponse{Query: raw, Plural: guess.Plural(string(word))})
	}
}

func handleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "", "GET required")
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

func newMux(eng *resolve.Engine, defaultStrict domain.StrictLevel) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/lookup", handleLookup(eng, defaultStrict))
	mux.HandleFunc("/api/guess", handleGuess())
	mux.HandleFunc("/healthz", handleHealthz())
	return mux
}

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

func main() {
	cli := config.CLIArgs{}
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--config":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "参数错误：--config 需要一个值")
				os.Exit(2)
			}
			i++
			cli.Config = args[i]
		case strings.HasPrefix(a, "--config="):
			cli.Config = strings.TrimPrefix(a, "--config=")
		case a == "--addr":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "参数错误：--addr 需要一个值")
				os.Exit(2)
			}
			i++
			cli.ListenAddr = args[i]
			cli.ListenAddrSet = true
		case strings.HasPrefix(a, "--addr="):
			cli.ListenAddr = strings.TrimPrefix(a, "--addr=")
			cli.ListenAddrSet = true
		default:
			fmt.Fprintf(os.Stderr, "参数错误：未知参数 %q\n", a)
			os.Exit(2)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatalf("读取当前目录失败：%v", err)
	}
	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		log.Fatalf("%v", err)
	}

	eng, err := buildEngine(eff)
	if err != nil {
		log.Fatalf("%v", err)
	}

	handler := cors.Default().Handler(newMux(eng, eff.Strict))

	log.Printf("pluc-server listening on %s", eff.ListenAddr)
	if err := http.ListenAndServe(eff.ListenAddr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
