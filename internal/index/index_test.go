package index

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	apperrors "github.com/mkravchenko/bisearch/pkg/errors"
)

// writeIndex lays down a small hand-built index: three terms over four docs.
func writeIndex(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	postings := [][]uint32{
		{1, 2},     // cat
		{2, 3},     // dog
		{2, 30001}, // fish
	}
	var bin []byte
	for _, pl := range postings {
		for _, d := range pl {
			bin = binary.LittleEndian.AppendUint32(bin, d)
		}
	}
	terms := "cat\t2\t0\t8\n" +
		"dog\t2\t8\t8\n" +
		"fish\t2\t16\t8\n"
	// Deliberately unsorted, with one duplicate docid row.
	docs := "30001\tru\tРыба\thttps://ru.example/fish\truwiki/text/AA/00001.txt\n" +
		"1\ten\tCat\thttps://en.example/cat\tenwiki/text/AA/00001.txt\n" +
		"3\ten\tDog\thttps://en.example/dog\tenwiki/text/AA/00003.txt\n" +
		"2\ten\tBoth\thttps://en.example/both\tenwiki/text/AA/00002.txt\n" +
		"2\ten\tBoth\thttps://en.example/both\tenwiki/text/AA/00002.txt\n"

	for name, data := range map[string][]byte{
		"postings.bin": bin,
		"terms.tsv":    []byte(terms),
		"docs.tsv":     []byte(docs),
	} {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestOpenAndUniverse(t *testing.T) {
	ix, err := Open(writeIndex(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ix.Close()

	if ix.NumTerms() != 3 {
		t.Errorf("NumTerms = %d, want 3", ix.NumTerms())
	}
	want := []uint32{1, 2, 3, 30001}
	if !reflect.DeepEqual(ix.Universe(), want) {
		t.Errorf("Universe = %v, want %v", ix.Universe(), want)
	}
}

func TestLookup(t *testing.T) {
	ix, err := Open(writeIndex(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ix.Close()

	tests := []struct {
		term   string
		wantDF uint32
		found  bool
	}{
		{"cat", 2, true},  // first entry
		{"dog", 2, true},  // middle entry
		{"fish", 2, true}, // last entry
		{"ca", 0, false},  // proper prefix of an entry
		{"catz", 0, false},
		{"aardvark", 0, false},
		{"zebra", 0, false},
	}
	for _, tt := range tests {
		e, ok := ix.Lookup(tt.term)
		if ok != tt.found {
			t.Errorf("Lookup(%q) found = %v, want %v", tt.term, ok, tt.found)
			continue
		}
		if ok && e.DF != tt.wantDF {
			t.Errorf("Lookup(%q) df = %d, want %d", tt.term, e.DF, tt.wantDF)
		}
	}
}

func TestPostings(t *testing.T) {
	ix, err := Open(writeIndex(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ix.Close()

	tests := []struct {
		term string
		want []uint32
	}{
		{"cat", []uint32{1, 2}},
		{"dog", []uint32{2, 3}},
		{"fish", []uint32{2, 30001}},
		{"missing", nil},
	}
	for _, tt := range tests {
		got, err := ix.Postings(tt.term)
		if err != nil {
			t.Fatalf("Postings(%q): %v", tt.term, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Postings(%q) = %v, want %v", tt.term, got, tt.want)
		}
	}
}

func TestPostingsDFMatchesLength(t *testing.T) {
	ix, err := Open(writeIndex(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ix.Close()

	for _, term := range []string{"cat", "dog", "fish"} {
		e, ok := ix.Lookup(term)
		if !ok {
			t.Fatalf("Lookup(%q) missing", term)
		}
		pl, err := ix.PostingsAt(e)
		if err != nil {
			t.Fatal(err)
		}
		if uint32(len(pl)) != e.DF {
			t.Errorf("term %q: len(postings) = %d, df = %d", term, len(pl), e.DF)
		}
		for i := 1; i < len(pl); i++ {
			if pl[i] <= pl[i-1] {
				t.Errorf("term %q postings not strictly increasing: %v", term, pl)
			}
		}
	}
}

func TestDoc(t *testing.T) {
	ix, err := Open(writeIndex(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ix.Close()

	d, ok := ix.Doc(30001)
	if !ok {
		t.Fatal("Doc(30001) not found")
	}
	if d.Lang != "ru" || d.Title != "Рыба" {
		t.Errorf("Doc(30001) = %+v", d)
	}
	if _, ok := ix.Doc(999); ok {
		t.Error("Doc(999) found, want missing")
	}
}

func TestOpenMissingArtifacts(t *testing.T) {
	_, err := Open(t.TempDir())
	if err == nil {
		t.Fatal("Open on empty dir succeeded")
	}
	if !errors.Is(err, apperrors.ErrIndexNotFound) {
		t.Errorf("error = %v, want ErrIndexNotFound", err)
	}
	if code := apperrors.ExitCode(err); code != apperrors.ExitFatal {
		t.Errorf("ExitCode = %d, want %d", code, apperrors.ExitFatal)
	}
}

func TestCompareTerm(t *testing.T) {
	tests := []struct {
		pooled string
		term   string
		want   int
	}{
		{"cat", "cat", 0},
		{"ca", "cat", -1},
		{"cat", "ca", 1},
		{"cat", "dog", -1},
		{"dog", "cat", 1},
		{"", "a", -1},
	}
	for _, tt := range tests {
		if got := compareTerm([]byte(tt.pooled), tt.term); got != tt.want {
			t.Errorf("compareTerm(%q, %q) = %d, want %d", tt.pooled, tt.term, got, tt.want)
		}
	}
}
