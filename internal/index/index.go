// Package index loads the on-disk artifacts (terms.tsv, docs.tsv,
// postings.bin) into a memory-resident dictionary and serves posting-list
// reads for the query engine.
//
// The dictionary keeps all term bytes in one pooled buffer; entries reference
// it by offset and length. postings.bin stays open for random-access reads
// for the lifetime of the session.
package index

import (
	"bufio"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/mkravchenko/bisearch/pkg/errors"
)

// DictEntry locates one term's bytes in the pool and its posting list in
// postings.bin.
type DictEntry struct {
	termOff uint32
	termLen uint32
	DF      uint32
	PostOff uint64
	PostLen uint64
}

// DocRecord is one row of the docs table.
type DocRecord struct {
	DocID uint32
	Lang  string
	Title string
	URL   string
	Path  string
}

// Index is the loaded, read-only search index.
type Index struct {
	termPool []byte
	dict     []DictEntry
	postings *os.File
	docs     []DocRecord // sorted by docid
	universe []uint32    // sorted, unique
}

// Open loads the index artifacts from dir. The returned Index owns an open
// handle on postings.bin; callers Close it when the session ends.
func Open(dir string) (*Index, error) {
	ix := &Index{}
	if err := ix.loadDocs(filepath.Join(dir, "docs.tsv")); err != nil {
		return nil, err
	}
	if err := ix.loadDict(filepath.Join(dir, "terms.tsv")); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(dir, "postings.bin"))
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrIndexNotFound, apperrors.ExitFatal, "cannot open postings.bin: %v", err)
	}
	ix.postings = f
	return ix, nil
}

// Close releases the postings file handle.
func (ix *Index) Close() error {
	if ix.postings == nil {
		return nil
	}
	return ix.postings.Close()
}

func (ix *Index) loadDocs(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return apperrors.Newf(apperrors.ErrIndexNotFound, apperrors.ExitFatal, "cannot open docs.tsv: %v", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 5)
		if len(parts) < 5 {
			continue
		}
		docid, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			continue
		}
		ix.docs = append(ix.docs, DocRecord{
			DocID: uint32(docid),
			Lang:  parts[1],
			Title: parts[2],
			URL:   parts[3],
			Path:  parts[4],
		})
		ix.universe = append(ix.universe, uint32(docid))
	}
	if err := sc.Err(); err != nil {
		return apperrors.Newf(apperrors.ErrInternal, apperrors.ExitFatal, "reading docs.tsv: %v", err)
	}

	sort.Slice(ix.docs, func(i, j int) bool { return ix.docs[i].DocID < ix.docs[j].DocID })
	sort.Slice(ix.universe, func(i, j int) bool { return ix.universe[i] < ix.universe[j] })
	w := 0
	for i, d := range ix.universe {
		if i == 0 || d != ix.universe[w-1] {
			ix.universe[w] = d
			w++
		}
	}
	ix.universe = ix.universe[:w]
	return nil
}

func (ix *Index) loadDict(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return apperrors.Newf(apperrors.ErrIndexNotFound, apperrors.ExitFatal, "cannot open terms.tsv: %v", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 4)
		if len(parts) < 4 {
			continue
		}
		df, err1 := strconv.ParseUint(parts[1], 10, 32)
		off, err2 := strconv.ParseUint(parts[2], 10, 64)
		plen, err3 := strconv.ParseUint(parts[3], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		e := DictEntry{
			termOff: uint32(len(ix.termPool)),
			termLen: uint32(len(parts[0])),
			DF:      uint32(df),
			PostOff: off,
			PostLen: plen,
		}
		ix.termPool = append(ix.termPool, parts[0]...)
		ix.dict = append(ix.dict, e)
	}
	if err := sc.Err(); err != nil {
		return apperrors.Newf(apperrors.ErrInternal, apperrors.ExitFatal, "reading terms.tsv: %v", err)
	}
	return nil
}

// termBytes returns the pooled bytes of e's term.
func (ix *Index) termBytes(e DictEntry) []byte {
	return ix.termPool[e.termOff : e.termOff+e.termLen]
}

// compareTerm orders pooled term bytes against a query term:
// byte-lexicographic with shorter-is-smaller on a common prefix.
func compareTerm(pooled []byte, term string) int {
	n, m := len(pooled), len(term)
	k := n
	if m < k {
		k = m
	}
	for i := 0; i < k; i++ {
		if pooled[i] != term[i] {
			if pooled[i] < term[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case n < m:
		return -1
	case n > m:
		return 1
	default:
		return 0
	}
}

// Lookup binary-searches the dictionary for a term.
func (ix *Index) Lookup(term string) (DictEntry, bool) {
	lo, hi := 0, len(ix.dict)-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		c := compareTerm(ix.termBytes(ix.dict[mid]), term)
		switch {
		case c == 0:
			return ix.dict[mid], true
		case c < 0:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return DictEntry{}, false
}

// Postings returns the posting list for term, empty when the term is missing.
// The result is a fresh strictly-increasing slice owned by the caller.
func (ix *Index) Postings(term string) ([]uint32, error) {
	e, ok := ix.Lookup(term)
	if !ok {
		return nil, nil
	}
	return ix.PostingsAt(e)
}

// PostingsAt reads e's posting list from postings.bin.
func (ix *Index) PostingsAt(e DictEntry) ([]uint32, error) {
	if e.DF == 0 || e.PostLen == 0 {
		return nil, nil
	}
	buf := make([]byte, e.PostLen)
	if _, err := ix.postings.ReadAt(buf, int64(e.PostOff)); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInternal, apperrors.ExitFatal, "reading postings: %v", err)
	}
	out := make([]uint32, e.PostLen/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return out, nil
}

// Universe returns the sorted unique docids of the docs table. Callers must
// not mutate it.
func (ix *Index) Universe() []uint32 {
	return ix.universe
}

// Doc binary-searches the docs table by docid.
func (ix *Index) Doc(docid uint32) (DocRecord, bool) {
	i := sort.Search(len(ix.docs), func(i int) bool { return ix.docs[i].DocID >= docid })
	if i < len(ix.docs) && ix.docs[i].DocID == docid {
		return ix.docs[i], true
	}
	return DocRecord{}, false
}

// NumDocs returns the number of loaded document records.
func (ix *Index) NumDocs() int { return len(ix.docs) }

// NumTerms returns the number of dictionary entries.
func (ix *Index) NumTerms() int { return len(ix.dict) }
