// Package builder drives index construction: it discovers corpus files,
// feeds them through the tokenizer into the term dictionary, and writes the
// docs.tsv, terms.tsv, and postings.bin artifacts.
package builder

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mkravchenko/bisearch/internal/termdict"
	"github.com/mkravchenko/bisearch/internal/tokenizer"
	"github.com/mkravchenko/bisearch/pkg/config"
	apperrors "github.com/mkravchenko/bisearch/pkg/errors"
	"github.com/mkravchenko/bisearch/pkg/metrics"
)

// ruDocIDOffset keeps English and Russian docid spaces disjoint. The scheme
// assumes English docids stay below 30000.
const ruDocIDOffset = 30000

// maxLineBytes bounds one corpus line; wiki extracts occasionally carry very
// long paragraphs on a single line.
const maxLineBytes = 4 * 1024 * 1024

// Stats accumulates build counters for progress logging and the final summary.
type Stats struct {
	Docs        uint32
	Bytes       uint64
	Tokens      uint64
	Postings    uint64
	UniqueTerms int
	FileErrors  int
}

// Builder owns the process-wide term dictionary and seen-set for one build.
type Builder struct {
	cfg     config.IndexerConfig
	dict    *termdict.Table
	seen    *termdict.SeenSet
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Builder. metrics may be nil.
func New(cfg config.IndexerConfig, m *metrics.Metrics) *Builder {
	return &Builder{
		cfg:     cfg,
		dict:    termdict.New(cfg.TermBuckets),
		seen:    termdict.NewSeenSet(cfg.SeenSetSize),
		metrics: m,
		logger:  slog.Default().With("component", "builder"),
	}
}

// Build ingests up to limit corpus files (0 = all) and writes the index
// artifacts into outDir. The returned Stats reflect the completed build even
// when individual files were skipped.
func (b *Builder) Build(corpusDir, outDir string, limit int) (Stats, error) {
	var st Stats

	files, err := discoverFiles(corpusDir)
	if err != nil {
		return st, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitFatal, "walking corpus %s: %v", corpusDir, err)
	}
	if len(files) == 0 {
		return st, apperrors.Newf(apperrors.ErrCorpusEmpty, apperrors.ExitFatal, "no .txt files under %s", corpusDir)
	}
	if limit > 0 && limit < len(files) {
		files = files[:limit]
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return st, apperrors.Newf(apperrors.ErrInternal, apperrors.ExitFatal, "creating output dir: %v", err)
	}
	docsFile, err := os.Create(filepath.Join(outDir, "docs.tsv"))
	if err != nil {
		return st, apperrors.Newf(apperrors.ErrInternal, apperrors.ExitFatal, "creating docs.tsv: %v", err)
	}
	defer docsFile.Close()
	docsOut := bufio.NewWriter(docsFile)

	start := time.Now()
	for _, path := range files {
		if err := b.ingestFile(path, docsOut, &st); err != nil {
			b.logger.Warn("skipping unreadable file", "path", path, "error", err)
			st.FileErrors++
			if b.metrics != nil {
				b.metrics.FileErrorsTotal.Inc()
			}
			continue
		}
		st.Docs++
		if b.metrics != nil {
			b.metrics.DocsIndexedTotal.Inc()
		}
		if b.cfg.ProgressEvery > 0 && int(st.Docs)%b.cfg.ProgressEvery == 0 {
			b.logger.Info("build progress",
				"docs", st.Docs,
				"terms", b.dict.Len(),
				"postings", st.Postings,
				"tokens", st.Tokens,
				"elapsed", time.Since(start).Round(time.Millisecond),
			)
		}
	}

	if err := docsOut.Flush(); err != nil {
		return st, apperrors.Newf(apperrors.ErrInternal, apperrors.ExitFatal, "writing docs.tsv: %v", err)
	}

	if err := b.finalize(outDir, &st); err != nil {
		return st, err
	}

	elapsed := time.Since(start)
	kb := float64(st.Bytes) / 1024.0
	b.logger.Info("build complete",
		"docs", st.Docs,
		"unique_terms", st.UniqueTerms,
		"postings", st.Postings,
		"tokens", st.Tokens,
		"kb", fmt.Sprintf("%.0f", kb),
		"elapsed", elapsed.Round(time.Millisecond),
		"kb_per_sec", fmt.Sprintf("%.1f", kb/elapsed.Seconds()),
		"file_errors", st.FileErrors,
	)
	return st, nil
}

// discoverFiles walks corpusDir for regular .txt files whose path contains a
// /text/ segment, sorted by path bytes so builds are reproducible.
func discoverFiles(corpusDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(corpusDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if filepath.Ext(path) != ".txt" {
			return nil
		}
		if !strings.Contains(filepath.ToSlash(path), "/text/") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// langOf derives the language tag from the wiki dump directory layout.
func langOf(path string) string {
	s := filepath.ToSlash(path)
	switch {
	case strings.Contains(s, "/enwiki/"):
		return "en"
	case strings.Contains(s, "/ruwiki/"):
		return "ru"
	default:
		return "unk"
	}
}

// docIDFromName forms a base-10 docid from the digit characters of the file
// name, left to right.
func docIDFromName(path string) uint32 {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var v uint32
	for i := 0; i < len(stem); i++ {
		c := stem[i]
		if c < '0' || c > '9' {
			continue
		}
		v = v*10 + uint32(c-'0')
	}
	return v
}

// parseHeader consumes the six metadata lines and extracts the Title: and
// URL: values, stripping one leading space if present.
func parseHeader(sc *bufio.Scanner) (title, url string) {
	for i := 0; i < tokenizer.HeaderLines; i++ {
		if !sc.Scan() {
			return title, url
		}
		line := sc.Text()
		if v, ok := strings.CutPrefix(line, "Title:"); ok {
			title = strings.TrimPrefix(v, " ")
		} else if v, ok := strings.CutPrefix(line, "URL:"); ok {
			url = strings.TrimPrefix(v, " ")
		}
	}
	return title, url
}

// ingestFile indexes one corpus file: header, docs-table record, then the
// tokenized body with per-document deduplication.
func (b *Builder) ingestFile(path string, docsOut *bufio.Writer, st *Stats) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	lang := langOf(path)
	title, url := parseHeader(sc)
	docid := docIDFromName(path)
	if lang == "ru" {
		docid += ruDocIDOffset
	}
	fmt.Fprintf(docsOut, "%d\t%s\t%s\t%s\t%s\n", docid, lang, title, url, filepath.ToSlash(path))

	b.seen.Reset()

	var tokens []string
	for sc.Scan() {
		line := sc.Text()
		st.Bytes += uint64(len(line)) + 1
		tokens = tokenizer.Line(line, tokens[:0])
		for _, tok := range tokens {
			st.Tokens++
			if b.metrics != nil {
				b.metrics.TokensIndexedTotal.Inc()
			}
			e := b.dict.GetOrAdd(tok)
			if b.seen.Insert(e) {
				e.AppendPosting(docid)
				st.Postings++
				if b.metrics != nil {
					b.metrics.PostingsWrittenTotal.Inc()
				}
			}
		}
	}
	return sc.Err()
}

// finalize freezes the dictionary: entries sorted by term bytes, posting lists
// sorted and deduplicated, then terms.tsv and postings.bin written with
// contiguous offsets.
func (b *Builder) finalize(outDir string, st *Stats) error {
	entries := b.dict.Entries()
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})

	postingsFile, err := os.Create(filepath.Join(outDir, "postings.bin"))
	if err != nil {
		return apperrors.Newf(apperrors.ErrInternal, apperrors.ExitFatal, "creating postings.bin: %v", err)
	}
	defer postingsFile.Close()
	termsFile, err := os.Create(filepath.Join(outDir, "terms.tsv"))
	if err != nil {
		return apperrors.Newf(apperrors.ErrInternal, apperrors.ExitFatal, "creating terms.tsv: %v", err)
	}
	defer termsFile.Close()

	postingsOut := bufio.NewWriter(postingsFile)
	termsOut := bufio.NewWriter(termsFile)

	var offset uint64
	buf := make([]byte, 0, 4096)
	for _, e := range entries {
		sort.Slice(e.Postings, func(i, j int) bool { return e.Postings[i] < e.Postings[j] })
		w := 0
		for j, d := range e.Postings {
			if j == 0 || d != e.Postings[w-1] {
				e.Postings[w] = d
				w++
			}
		}
		e.Postings = e.Postings[:w]
		e.DF = uint32(w)

		bytesLen := uint64(w) * 4
		fmt.Fprintf(termsOut, "%s\t%d\t%d\t%d\n", e.Term, e.DF, offset, bytesLen)

		buf = buf[:0]
		for _, d := range e.Postings {
			buf = binary.LittleEndian.AppendUint32(buf, d)
		}
		if _, err := postingsOut.Write(buf); err != nil {
			return apperrors.Newf(apperrors.ErrInternal, apperrors.ExitFatal, "writing postings.bin: %v", err)
		}
		offset += bytesLen
	}

	if err := postingsOut.Flush(); err != nil {
		return apperrors.Newf(apperrors.ErrInternal, apperrors.ExitFatal, "writing postings.bin: %v", err)
	}
	if err := termsOut.Flush(); err != nil {
		return apperrors.Newf(apperrors.ErrInternal, apperrors.ExitFatal, "writing terms.tsv: %v", err)
	}

	st.UniqueTerms = len(entries)
	if b.metrics != nil {
		b.metrics.UniqueTerms.Set(float64(len(entries)))
	}
	return nil
}
