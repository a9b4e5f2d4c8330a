package query

import (
	"errors"
	"reflect"
	"testing"

	apperrors "github.com/mkravchenko/bisearch/pkg/errors"
)

// fakeSource serves canned posting lists keyed by normalized term.
type fakeSource struct {
	postings map[string][]uint32
	universe []uint32
}

func (f *fakeSource) Postings(term string) ([]uint32, error) {
	return f.postings[term], nil
}

func (f *fakeSource) Universe() []uint32 {
	return f.universe
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		postings: map[string][]uint32{
			"cat":  {1, 2},
			"dog":  {2, 3},
			"fish": {2, 4},
		},
		universe: []uint32{1, 2, 3, 4},
	}
}

func mustEval(t *testing.T, src PostingSource, q string) []uint32 {
	t.Helper()
	ast, err := Parse(q)
	if err != nil {
		t.Fatalf("Parse(%q): %v", q, err)
	}
	hits, err := Eval(src, ast)
	if err != nil {
		t.Fatalf("Eval(%q): %v", q, err)
	}
	return hits
}

func TestLex(t *testing.T) {
	toks := Lex(`(cat OR dog) AND -fish`)
	want := []TokenKind{TokLParen, TokTerm, TokOr, TokTerm, TokRParen, TokAnd, TokNot, TokTerm, TokEnd}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d kind = %d, want %d", i, toks[i].Kind, k)
		}
	}
}

func TestLexOperatorsCaseInsensitive(t *testing.T) {
	for _, w := range []string{"and", "And", "AND", "aNd"} {
		toks := Lex(w)
		if toks[0].Kind != TokAnd {
			t.Errorf("Lex(%q)[0].Kind = %d, want TokAnd", w, toks[0].Kind)
		}
	}
	// Words containing operator names are plain terms.
	if toks := Lex("android"); toks[0].Kind != TokTerm {
		t.Errorf("Lex(android)[0].Kind = %d, want TokTerm", toks[0].Kind)
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"",
		"   ",
		"cat dog",
		"(cat",
		"cat)",
		"AND cat",
		"cat AND",
		"NOT",
		"cat OR OR dog",
		"()",
	}
	for _, q := range bad {
		if _, err := Parse(q); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", q)
		} else if !errors.Is(err, apperrors.ErrQueryParse) {
			t.Errorf("Parse(%q) error = %v, want ErrQueryParse", q, err)
		}
	}
}

func TestParsePrecedence(t *testing.T) {
	// AND binds tighter than OR.
	n, err := Parse("a OR b AND c")
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != NodeOr || n.Right.Kind != NodeAnd {
		t.Errorf("a OR b AND c parsed as %s", n)
	}

	// NOT binds tighter than AND.
	n, err = Parse("NOT a AND b")
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != NodeAnd || n.Left.Kind != NodeNot {
		t.Errorf("NOT a AND b parsed as %s", n)
	}

	// Parentheses override precedence.
	n, err = Parse("(a OR b) AND c")
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != NodeAnd || n.Left.Kind != NodeOr {
		t.Errorf("(a OR b) AND c parsed as %s", n)
	}
}

func TestCanonicalString(t *testing.T) {
	a, err := Parse("CAT and Dog")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse("cat AND dog")
	if err != nil {
		t.Fatal(err)
	}
	if a.String() != b.String() {
		t.Errorf("canonical forms differ: %q vs %q", a, b)
	}
}

func TestEvalScenario(t *testing.T) {
	src := newFakeSource()
	got := mustEval(t, src, "(cat OR dog) AND NOT fish")
	want := []uint32{1, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEvalTermNormalization(t *testing.T) {
	src := newFakeSource()
	if got := mustEval(t, src, "CAT"); !reflect.DeepEqual(got, []uint32{1, 2}) {
		t.Errorf("CAT = %v, want [1 2]", got)
	}
}

func TestEvalMissingTerm(t *testing.T) {
	src := newFakeSource()
	if got := mustEval(t, src, "unicorn"); len(got) != 0 {
		t.Errorf("unicorn = %v, want empty", got)
	}
	if got := mustEval(t, src, "unicorn AND cat"); len(got) != 0 {
		t.Errorf("unicorn AND cat = %v, want empty", got)
	}
	if got := mustEval(t, src, "NOT unicorn"); !reflect.DeepEqual(got, src.universe) {
		t.Errorf("NOT unicorn = %v, want universe", got)
	}
}

func TestEvalSetAlgebra(t *testing.T) {
	src := newFakeSource()
	equal := []struct {
		name string
		a, b string
	}{
		{"and commutative", "cat AND dog", "dog AND cat"},
		{"or commutative", "cat OR dog", "dog OR cat"},
		{"and associative", "(cat AND dog) AND fish", "cat AND (dog AND fish)"},
		{"or associative", "(cat OR dog) OR fish", "cat OR (dog OR fish)"},
		{"double negation", "NOT (NOT cat)", "cat"},
		{"de morgan or", "NOT (cat OR dog)", "(NOT cat) AND (NOT dog)"},
		{"de morgan and", "NOT (cat AND dog)", "(NOT cat) OR (NOT dog)"},
		{"idempotent or", "cat OR cat", "cat"},
		{"idempotent and", "cat AND cat", "cat"},
		{"dash is not", "cat AND -dog", "cat AND NOT dog"},
	}
	for _, tt := range equal {
		t.Run(tt.name, func(t *testing.T) {
			ga := mustEval(t, src, tt.a)
			gb := mustEval(t, src, tt.b)
			if !reflect.DeepEqual(ga, gb) {
				t.Errorf("%q = %v but %q = %v", tt.a, ga, tt.b, gb)
			}
		})
	}
}

func TestEvalOutputsStrictlyIncreasing(t *testing.T) {
	src := newFakeSource()
	queries := []string{
		"cat OR dog OR fish",
		"NOT cat",
		"(cat OR dog) AND (dog OR fish)",
		"cat OR cat",
	}
	for _, q := range queries {
		hits := mustEval(t, src, q)
		for i := 1; i < len(hits); i++ {
			if hits[i] <= hits[i-1] {
				t.Errorf("%q result not strictly increasing: %v", q, hits)
			}
		}
	}
}

func TestSetOps(t *testing.T) {
	tests := []struct {
		name string
		op   func(a, b []uint32) []uint32
		a, b []uint32
		want []uint32
	}{
		{"intersect overlap", intersect, []uint32{1, 3, 5}, []uint32{3, 5, 7}, []uint32{3, 5}},
		{"intersect disjoint", intersect, []uint32{1, 2}, []uint32{3, 4}, []uint32{}},
		{"intersect empty", intersect, nil, []uint32{1}, nil},
		{"union overlap", union, []uint32{1, 3}, []uint32{2, 3}, []uint32{1, 2, 3}},
		{"union one empty", union, nil, []uint32{1, 2}, []uint32{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.op(tt.a, tt.b)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComplement(t *testing.T) {
	u := []uint32{1, 2, 3, 4, 5}
	tests := []struct {
		b    []uint32
		want []uint32
	}{
		{nil, []uint32{1, 2, 3, 4, 5}},
		{[]uint32{1, 2, 3, 4, 5}, []uint32{}},
		{[]uint32{2, 4}, []uint32{1, 3, 5}},
		{[]uint32{1, 5}, []uint32{2, 3, 4}},
	}
	for _, tt := range tests {
		got := complement(u, tt.b)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("complement(U, %v) = %v, want %v", tt.b, got, tt.want)
		}
	}
}
