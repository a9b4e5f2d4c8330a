// Package searcher ties the loaded index, the query engine, and the optional
// result cache into a query session: one-shot evaluation and the interactive
// stdin loop.
package searcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mkravchenko/bisearch/internal/index"
	"github.com/mkravchenko/bisearch/internal/query"
	"github.com/mkravchenko/bisearch/internal/searcher/cache"
	"github.com/mkravchenko/bisearch/pkg/metrics"
)

// Searcher evaluates boolean queries against one loaded index. It is
// stateless between queries apart from the cache.
type Searcher struct {
	ix      *index.Index
	cache   *cache.QueryCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Options carries the optional collaborators; either may be nil.
type Options struct {
	Cache   *cache.QueryCache
	Metrics *metrics.Metrics
}

// New creates a Searcher over a loaded index.
func New(ix *index.Index, opts Options) *Searcher {
	return &Searcher{
		ix:      ix,
		cache:   opts.Cache,
		metrics: opts.Metrics,
		logger:  slog.Default().With("component", "searcher"),
	}
}

// Query parses and evaluates one boolean expression, returning the matching
// docids in ascending order.
func (s *Searcher) Query(ctx context.Context, q string) ([]uint32, error) {
	start := time.Now()

	ast, err := query.Parse(q)
	if err != nil {
		if s.metrics != nil {
			s.metrics.SearchQueriesTotal.WithLabelValues("parse_error").Inc()
		}
		return nil, err
	}

	var (
		hits        []uint32
		cached      bool
		cacheStatus = "none"
	)
	if s.cache != nil {
		canonical := ast.String()
		hits, cached, err = s.cache.GetOrCompute(ctx, canonical, func() ([]uint32, error) {
			return query.Eval(s.ix, ast)
		})
		if cached {
			cacheStatus = "hit"
			if s.metrics != nil {
				s.metrics.CacheHitsTotal.Inc()
			}
		} else {
			cacheStatus = "miss"
			if s.metrics != nil {
				s.metrics.CacheMissesTotal.Inc()
			}
		}
	} else {
		hits, err = query.Eval(s.ix, ast)
	}
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	if s.metrics != nil {
		outcome := "hit"
		if len(hits) == 0 {
			outcome = "zero_result"
		}
		s.metrics.SearchQueriesTotal.WithLabelValues(outcome).Inc()
		s.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
		s.metrics.SearchResultsCount.Observe(float64(len(hits)))
	}
	s.logger.Info("query executed",
		"query", q,
		"hits", len(hits),
		"cache", cacheStatus,
		"elapsed", elapsed.Round(time.Microsecond),
	)
	return hits, nil
}

// Render writes up to top result lines: docid, language, title, and URL,
// tab-separated. Docids missing from the docs table render as placeholders.
func (s *Searcher) Render(w io.Writer, hits []uint32, top int) {
	n := len(hits)
	if top > 0 && top < n {
		n = top
	}
	for _, docid := range hits[:n] {
		if d, ok := s.ix.Doc(docid); ok {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", docid, d.Lang, d.Title, d.URL)
		} else {
			fmt.Fprintf(w, "%d\t?\t?\t?\n", docid)
		}
	}
}

// REPL reads one query per line from r until EOF, printing results for each
// followed by a "----" separator. Lines starting with '#' are comments and
// print nothing; blank lines are not evaluated but still print the
// separator. A query that fails to parse is reported, its separator is
// printed, and the loop continues.
func (s *Searcher) REPL(ctx context.Context, r io.Reader, w io.Writer, top int) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if len(line) > 0 && line[0] == '#' {
			continue
		}
		if line != "" {
			hits, err := s.Query(ctx, line)
			if err != nil {
				s.logger.Warn("query failed", "query", line, "error", err)
			} else {
				s.Render(w, hits, top)
			}
		}
		fmt.Fprintln(w, "----")
	}
	return sc.Err()
}
