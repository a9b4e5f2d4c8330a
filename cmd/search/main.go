// Command search answers boolean queries against a built index.
//
//	search --index <dir> --query "<expr>" [--top N] [--config file]
//	search --index <dir>                  (reads queries from stdin)
//
// In stdin mode results for each query are followed by a "----" separator;
// lines beginning with '#' are comments.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkravchenko/bisearch/internal/index"
	"github.com/mkravchenko/bisearch/internal/searcher"
	"github.com/mkravchenko/bisearch/internal/searcher/cache"
	"github.com/mkravchenko/bisearch/pkg/config"
	apperrors "github.com/mkravchenko/bisearch/pkg/errors"
	"github.com/mkravchenko/bisearch/pkg/health"
	"github.com/mkravchenko/bisearch/pkg/logger"
	"github.com/mkravchenko/bisearch/pkg/metrics"
	pkgredis "github.com/mkravchenko/bisearch/pkg/redis"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	indexDir := fs.String("index", "", "index directory")
	queryStr := fs.String("query", "", "boolean query expression (omit to read from stdin)")
	top := fs.Int("top", 0, "max results to print (default from config)")
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return apperrors.ExitFatal
	}
	if *indexDir == "" {
		fmt.Fprint(os.Stderr,
			"Usage:\n"+
				"  search --index <dir> --query \"<expr>\" [--top N] [--config file]\n"+
				"  search --index <dir>            (reads queries from stdin)\n")
		return apperrors.ExitFatal
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return apperrors.ExitFatal
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if *top <= 0 {
		*top = cfg.Search.DefaultTop
	}

	start := time.Now()
	ix, err := index.Open(*indexDir)
	if err != nil {
		slog.Error("failed to open index", "dir", *indexDir, "error", err)
		return apperrors.ExitCode(err)
	}
	defer ix.Close()
	slog.Info("index loaded",
		"docs", ix.NumDocs(),
		"universe", len(ix.Universe()),
		"terms", ix.NumTerms(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		queryCache  *cache.QueryCache
		redisClient *pkgredis.Client
	)
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, query caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL)
			slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		checker := health.NewChecker()
		checker.Register("index", func(ctx context.Context) health.ComponentHealth {
			if ix.NumTerms() > 0 {
				return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d terms", ix.NumTerms())}
			}
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "empty dictionary"}
		})
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if redisClient == nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
			}
			if err := redisClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
		shutdown := metrics.StartServer(cfg.Metrics.Port, map[string]http.Handler{
			"/health": checker.Handler(),
		})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	s := searcher.New(ix, searcher.Options{Cache: queryCache, Metrics: m})

	if *queryStr != "" {
		hits, err := s.Query(ctx, *queryStr)
		if err != nil {
			slog.Error("query failed", "query", *queryStr, "error", err)
			return apperrors.ExitCode(err)
		}
		s.Render(os.Stdout, hits, *top)
		return apperrors.ExitOK
	}

	if err := s.REPL(ctx, os.Stdin, os.Stdout, *top); err != nil {
		slog.Error("reading queries", "error", err)
		return apperrors.ExitFatal
	}
	return apperrors.ExitOK
}
