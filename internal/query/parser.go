package query

import (
	"strings"

	"github.com/mkravchenko/bisearch/internal/tokenizer"
	apperrors "github.com/mkravchenko/bisearch/pkg/errors"
)

// NodeKind tags the AST variant.
type NodeKind int

const (
	NodeTerm NodeKind = iota
	NodeNot
	NodeAnd
	NodeOr
)

// Node is one AST node. Term is set for NodeTerm; Left for NodeNot; Left and
// Right for NodeAnd/NodeOr.
type Node struct {
	Kind  NodeKind
	Term  string
	Left  *Node
	Right *Node
}

// String renders the tree in a canonical parenthesized form with normalized
// terms, suitable as a cache key: equal trees render equal strings.
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	switch n.Kind {
	case NodeTerm:
		sb.WriteString(tokenizer.Normalize(n.Term))
	case NodeNot:
		sb.WriteString("(NOT ")
		n.Left.write(sb)
		sb.WriteByte(')')
	case NodeAnd:
		sb.WriteByte('(')
		n.Left.write(sb)
		sb.WriteString(" AND ")
		n.Right.write(sb)
		sb.WriteByte(')')
	case NodeOr:
		sb.WriteByte('(')
		n.Left.write(sb)
		sb.WriteString(" OR ")
		n.Right.write(sb)
		sb.WriteByte(')')
	}
}

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) cur() Token { return p.toks[p.pos] }

func (p *parser) errf(format string, args ...any) error {
	return apperrors.Newf(apperrors.ErrQueryParse, apperrors.ExitFatal, format, args...)
}

// Parse lexes and parses a boolean expression. Grammar, lowest precedence
// first:
//
//	expr    := and_expr ( OR and_expr )*
//	and_expr:= unary ( AND unary )*
//	unary   := NOT unary | primary
//	primary := TERM | '(' expr ')'
//
// Consecutive terms without an operator, trailing tokens, unbalanced
// parentheses, and empty input are parse errors.
func Parse(q string) (*Node, error) {
	p := &parser{toks: Lex(q)}
	if p.cur().Kind == TokEnd {
		return nil, p.errf("empty query")
	}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != TokEnd {
		return nil, p.errf("trailing tokens near %q", p.cur().Lexeme)
	}
	return n, nil
}

func (p *parser) parseExpr() (*Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == TokOr {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: NodeOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (*Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == TokAnd {
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: NodeAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (*Node, error) {
	if p.cur().Kind == TokNot {
		p.pos++
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeNot, Left: child}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (*Node, error) {
	switch p.cur().Kind {
	case TokTerm:
		n := &Node{Kind: NodeTerm, Term: p.cur().Lexeme}
		p.pos++
		return n, nil
	case TokLParen:
		p.pos++
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur().Kind != TokRParen {
			return nil, p.errf("expected ')' near %q", p.cur().Lexeme)
		}
		p.pos++
		return n, nil
	default:
		return nil, p.errf("expected term or '(' near %q", p.cur().Lexeme)
	}
}
