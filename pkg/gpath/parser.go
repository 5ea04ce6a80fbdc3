package gpath

import (
	"fmt"
	"strconv"
)

// step is one hop of a path: field, index, wildcard, filter or function call.
type step interface {
	String() string
}

type fieldStep struct{ name string }

type indexStep struct{ index int }

type wildcardStep struct{}

type filterStep struct {
	all  bool // findAll vs find
	pred node
	src  string
}

type callStep struct {
	name string
	args []node
}

func (s fieldStep) String() string    { return s.name }
func (s indexStep) String() string    { return "[" + strconv.Itoa(s.index) + "]" }
func (s wildcardStep) String() string { return "*" }
func (s filterStep) String() string {
	if s.all {
		return "findAll{" + s.src + "}"
	}
	return "find{" + s.src + "}"
}
func (s callStep) String() string { return s.name + "()" }

// node is a predicate expression evaluated against the current element `it`.
type node interface{}

type literalNode struct{ value any }

type itNode struct{ steps []step }

type unaryNode struct{ operand node }

type binaryNode struct {
	op          tokenKind
	left, right node
}

// Expr is a compiled path expression.
type Expr struct {
	src   string
	steps []step
}

// String returns the source text of the expression.
func (e *Expr) String() string { return e.src }

// Compile parses a path expression.
func Compile(src string) (*Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	steps, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tEOF {
		return nil, p.errorf("unexpected %q", p.peek().text)
	}
	return &Expr{src: src, steps: steps}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	src  string
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != k {
		return t, &SyntaxError{Expr: p.src, Pos: t.pos, Msg: fmt.Sprintf("expected %s, got %q", what, t.text)}
	}
	return t, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Expr: p.src, Pos: p.peek().pos, Msg: fmt.Sprintf(format, args...)}
}

// parsePath parses a full top-level path. An empty path or "$" selects the
// whole document.
func (p *parser) parsePath() ([]step, error) {
	if t := p.peek(); t.kind == tIdent && t.text == "$" {
		p.next()
		if p.peek().kind == tDot {
			p.next()
		}
	}
	if p.peek().kind == tEOF {
		return nil, nil
	}
	first, err := p.parseStep(true)
	if err != nil {
		return nil, err
	}
	steps := []step{first}
	rest, err := p.parseTail()
	if err != nil {
		return nil, err
	}
	return append(steps, rest...), nil
}

// parseTail parses ('.' step | '[' index ']' | '*')* following a first step.
func (p *parser) parseTail() ([]step, error) {
	var steps []step
	for {
		switch p.peek().kind {
		case tDot:
			p.next()
			s, err := p.parseStep(false)
			if err != nil {
				return nil, err
			}
			steps = append(steps, s)
		case tLBrack:
			s, err := p.parseIndex()
			if err != nil {
				return nil, err
			}
			steps = append(steps, s)
		case tStar:
			// spread suffix: "names*.length()" behaves like "names.*.length()"
			if p.peekAt(1).kind != tDot {
				return steps, nil
			}
			p.next()
			steps = append(steps, wildcardStep{})
		default:
			return steps, nil
		}
	}
}

func (p *parser) parseStep(first bool) (step, error) {
	t := p.peek()
	switch t.kind {
	case tStar:
		p.next()
		return wildcardStep{}, nil
	case tString:
		p.next()
		return fieldStep{name: t.text}, nil
	case tLBrack:
		if first {
			return p.parseIndex()
		}
	case tNumber:
		// "a.0" style access is treated as a field named "0".
		if !first && t.num >= 0 {
			p.next()
			return fieldStep{name: t.text}, nil
		}
	case tIdent:
		p.next()
		switch p.peek().kind {
		case tLBrace:
			if t.text == "findAll" || t.text == "find" {
				return p.parseFilter(t.text == "findAll")
			}
			return nil, p.errorf("unknown filter %q", t.text)
		case tLParen:
			return p.parseCall(t.text)
		}
		return fieldStep{name: t.text}, nil
	}
	return nil, p.errorf("unexpected %q", t.text)
}

func (p *parser) parseIndex() (step, error) {
	if _, err := p.expect(tLBrack, "'['"); err != nil {
		return nil, err
	}
	t := p.next()
	if t.kind == tString {
		if _, err := p.expect(tRBrack, "']'"); err != nil {
			return nil, err
		}
		return fieldStep{name: t.text}, nil
	}
	if t.kind != tNumber || t.num != float64(int(t.num)) {
		return nil, &SyntaxError{Expr: p.src, Pos: t.pos, Msg: fmt.Sprintf("expected integer index, got %q", t.text)}
	}
	if _, err := p.expect(tRBrack, "']'"); err != nil {
		return nil, err
	}
	return indexStep{index: int(t.num)}, nil
}

func (p *parser) parseFilter(all bool) (step, error) {
	open, _ := p.expect(tLBrace, "'{'")
	pred, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	end, err := p.expect(tRBrace, "'}'")
	if err != nil {
		return nil, err
	}
	src := string([]rune(p.src)[open.pos+1 : end.pos])
	return filterStep{all: all, pred: pred, src: src}, nil
}

func (p *parser) parseCall(name string) (step, error) {
	if _, ok := functions[name]; !ok {
		return nil, p.errorf("unknown function %s()", name)
	}
	p.next() // (
	var args []node
	for p.peek().kind != tRParen {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek().kind == tComma {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(tRParen, "')'"); err != nil {
		return nil, err
	}
	return callStep{name: name, args: args}, nil
}

// Predicate grammar:
//
//	or      := and ('||' and)*
//	and     := unary ('&&' unary)*
//	unary   := '!' unary | compare
//	compare := operand (op operand)?
//	operand := '(' or ')' | literal | 'it' tail | path
func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tOr, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tAnd, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.peek().kind == tNot {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{operand: operand}, nil
	}
	return p.parseCompare()
}

func (p *parser) parseCompare() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	switch op := p.peek().kind; op {
	case tEq, tNe, tLt, tLe, tGt, tGe, tMatch:
		p.next()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return binaryNode{op: op, left: left, right: right}, nil
	}
	return left, nil
}

func (p *parser) parseOperand() (node, error) {
	t := p.peek()
	switch t.kind {
	case tLParen:
		p.next()
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen, "')'"); err != nil {
			return nil, err
		}
		return n, nil
	case tNumber:
		p.next()
		return literalNode{value: t.num}, nil
	case tString:
		p.next()
		return literalNode{value: t.text}, nil
	case tIdent:
		switch t.text {
		case "true", "false":
			p.next()
			return literalNode{value: t.text == "true"}, nil
		case "null":
			p.next()
			return literalNode{value: nil}, nil
		case "it":
			p.next()
			steps, err := p.parseTail()
			if err != nil {
				return nil, err
			}
			return itNode{steps: steps}, nil
		}
		// A bare path is relative to `it`.
		if p.peekAt(1).kind == tLParen {
			// bare call such as size() applies to it
			p.next()
			s, err := p.parseCall(t.text)
			if err != nil {
				return nil, err
			}
			rest, err := p.parseTail()
			if err != nil {
				return nil, err
			}
			return itNode{steps: append([]step{s}, rest...)}, nil
		}
		first, err := p.parseStep(true)
		if err != nil {
			return nil, err
		}
		rest, err := p.parseTail()
		if err != nil {
			return nil, err
		}
		return itNode{steps: append([]step{first}, rest...)}, nil
	}
	return nil, p.errorf("unexpected %q in predicate", t.text)
}
