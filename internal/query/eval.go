package query

import "github.com/mkravchenko/bisearch/internal/tokenizer"

// PostingSource supplies sorted posting lists and the docid universe. The
// loaded index satisfies it.
type PostingSource interface {
	// Postings returns the strictly-increasing posting list for a
	// normalized term; empty when the term is not in the dictionary.
	Postings(term string) ([]uint32, error)
	// Universe returns the sorted unique docids of the docs table.
	Universe() []uint32
}

// Eval evaluates the tree post-order. Every input and output list is strictly
// increasing; intermediate lists are freshly allocated and never aliased
// across nodes.
func Eval(src PostingSource, n *Node) ([]uint32, error) {
	switch n.Kind {
	case NodeTerm:
		return src.Postings(tokenizer.Normalize(n.Term))
	case NodeNot:
		a, err := Eval(src, n.Left)
		if err != nil {
			return nil, err
		}
		return complement(src.Universe(), a), nil
	case NodeAnd:
		a, err := Eval(src, n.Left)
		if err != nil {
			return nil, err
		}
		b, err := Eval(src, n.Right)
		if err != nil {
			return nil, err
		}
		return intersect(a, b), nil
	default: // NodeOr
		a, err := Eval(src, n.Left)
		if err != nil {
			return nil, err
		}
		b, err := Eval(src, n.Right)
		if err != nil {
			return nil, err
		}
		return union(a, b), nil
	}
}

// intersect merges two sorted lists, keeping docids present in both.
func intersect(a, b []uint32) []uint32 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]uint32, 0, n)
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

// union merges two sorted lists without emitting duplicates.
func union(a, b []uint32) []uint32 {
	out := make([]uint32, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// complement walks the universe and emits every docid absent from b.
func complement(universe, b []uint32) []uint32 {
	if len(universe) == 0 {
		return nil
	}
	out := make([]uint32, 0, len(universe))
	j := 0
	for _, u := range universe {
		for j < len(b) && b[j] < u {
			j++
		}
		if j < len(b) && b[j] == u {
			continue
		}
		out = append(out, u)
	}
	return out
}
