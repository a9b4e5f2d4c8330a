// Command index builds the on-disk inverted index from a corpus directory
// and offers a term-lookup helper for inspecting a built index.
//
//	index build  --corpus <dir> --out <dir> [--limit N] [--config file]
//	index lookup --index  <dir> --term <term> [--config file]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mkravchenko/bisearch/internal/builder"
	"github.com/mkravchenko/bisearch/internal/index"
	"github.com/mkravchenko/bisearch/internal/tokenizer"
	"github.com/mkravchenko/bisearch/pkg/config"
	apperrors "github.com/mkravchenko/bisearch/pkg/errors"
	"github.com/mkravchenko/bisearch/pkg/logger"
	"github.com/mkravchenko/bisearch/pkg/metrics"
)

// lookupMaxShow caps the docids printed by the lookup helper.
const lookupMaxShow = 30

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		usage()
		return apperrors.ExitFatal
	}
	switch args[0] {
	case "build":
		return runBuild(args[1:])
	case "lookup":
		return runLookup(args[1:])
	case "-h", "--help":
		usage()
		return apperrors.ExitOK
	default:
		usage()
		return apperrors.ExitFatal
	}
}

func usage() {
	fmt.Fprint(os.Stderr,
		"Usage:\n"+
			"  index build  --corpus <dir> --out <dir> [--limit N] [--config file]\n"+
			"  index lookup --index  <dir> --term <term> [--config file]\n")
}

func runBuild(args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	corpus := fs.String("corpus", "", "corpus root directory")
	out := fs.String("out", "", "output directory for index artifacts")
	limit := fs.Int("limit", 0, "cap on number of documents (0 = all)")
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return apperrors.ExitFatal
	}
	if *corpus == "" || *out == "" {
		usage()
		return apperrors.ExitFatal
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return apperrors.ExitFatal
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port, nil)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(ctx)
		}()
	}

	slog.Info("starting index build", "corpus", *corpus, "out", *out, "limit", *limit)
	b := builder.New(cfg.Indexer, m)
	st, err := b.Build(*corpus, *out, *limit)
	if err != nil {
		slog.Error("build failed", "error", err)
		return apperrors.ExitCode(err)
	}
	if st.FileErrors > 0 {
		return apperrors.ExitFileErrors
	}
	return apperrors.ExitOK
}

func runLookup(args []string) int {
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	indexDir := fs.String("index", "", "index directory")
	term := fs.String("term", "", "term to look up")
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return apperrors.ExitFatal
	}
	if *indexDir == "" || *term == "" {
		usage()
		return apperrors.ExitFatal
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return apperrors.ExitFatal
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ix, err := index.Open(*indexDir)
	if err != nil {
		slog.Error("failed to open index", "dir", *indexDir, "error", err)
		return apperrors.ExitCode(err)
	}
	defer ix.Close()

	normalized := tokenizer.Normalize(*term)
	hits, err := ix.Postings(normalized)
	if err != nil {
		slog.Error("failed to read postings", "term", normalized, "error", err)
		return apperrors.ExitCode(err)
	}
	if hits == nil {
		fmt.Println("NOT FOUND")
		return apperrors.ExitOK
	}

	fmt.Printf("term=%s df=%d\n", normalized, len(hits))
	show := len(hits)
	if show > lookupMaxShow {
		show = lookupMaxShow
	}
	for _, docid := range hits[:show] {
		fmt.Println(docid)
	}
	if len(hits) > show {
		fmt.Printf("... (%d more)\n", len(hits)-show)
	}
	return apperrors.ExitOK
}
