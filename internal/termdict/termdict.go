// Package termdict implements the build-time term dictionary: a chained hash
// table keyed by term bytes, with an append-only posting buffer per term, and
// the per-document seen-set that keeps posting lists free of duplicates.
package termdict

// Entry is the dictionary record for one term. Postings are appended unsorted
// during the build and may contain duplicates until the builder finalizes
// the dictionary.
type Entry struct {
	Term     string
	DF       uint32
	Postings []uint32
	next     *Entry
}

// AppendPosting records one more document for the term.
func (e *Entry) AppendPosting(docid uint32) {
	e.Postings = append(e.Postings, docid)
	e.DF++
}

// Table is a bucketed hash table with chaining, sized once at creation.
// Expected bucket counts keep chains short enough that resizing is not needed.
type Table struct {
	buckets []*Entry
	mask    uint64
	size    int
}

// New creates a Table with the given bucket count, which must be a power of
// two.
func New(buckets int) *Table {
	if buckets <= 0 || buckets&(buckets-1) != 0 {
		panic("termdict: bucket count must be a positive power of two")
	}
	return &Table{
		buckets: make([]*Entry, buckets),
		mask:    uint64(buckets - 1),
	}
}

const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// fnv1a64 hashes term bytes with 64-bit FNV-1a.
func fnv1a64(s string) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return h
}

// GetOrAdd returns the entry whose term is byte-equal to term, creating an
// empty one if absent. The new entry keeps the given term string as is.
func (t *Table) GetOrAdd(term string) *Entry {
	bi := fnv1a64(term) & t.mask
	for e := t.buckets[bi]; e != nil; e = e.next {
		if e.Term == term {
			return e
		}
	}
	e := &Entry{Term: term, next: t.buckets[bi]}
	t.buckets[bi] = e
	t.size++
	return e
}

// Len returns the number of distinct terms.
func (t *Table) Len() int {
	return t.size
}

// Entries collects every entry into a slice for finalization. Order is
// unspecified; callers sort.
func (t *Table) Entries() []*Entry {
	out := make([]*Entry, 0, t.size)
	for _, head := range t.buckets {
		for e := head; e != nil; e = e.next {
			out = append(out, e)
		}
	}
	return out
}
