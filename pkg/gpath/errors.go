package gpath

import (
	"errors"
	"fmt"
)

// ErrInvalidDocument is returned when a body cannot be parsed as JSON or XML.
var ErrInvalidDocument = errors.New("gpath: invalid document")

// PathNotFoundError reports that an expression did not resolve. It is
// distinct from a path that resolves to an empty list, which is a valid result.
type PathNotFoundError struct {
	Expr    string
	Segment string
}

func (e *PathNotFoundError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("path %q not found", e.Expr)
	}
	return fmt.Sprintf("path %q not found: no match for %q", e.Expr, e.Segment)
}

// TypeMismatchError reports an aggregate, function or comparison applied to
// a value of an incompatible type.
type TypeMismatchError struct {
	Expr  string
	Op    string
	Value any
	Want  string
}

func (e *TypeMismatchError) Error() string {
	where := ""
	if e.Expr != "" {
		where = fmt.Sprintf("path %q: ", e.Expr)
	}
	return fmt.Sprintf("%s%s expects %s, got %v (%T)", where, e.Op, e.Want, e.Value, e.Value)
}

// SyntaxError reports a malformed expression.
type SyntaxError struct {
	Expr string
	Pos  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("gpath: syntax error in %q at offset %d: %s", e.Expr, e.Pos, e.Msg)
}

// withExpr stamps the full expression onto engine errors raised deep in evaluation.
func withExpr(err error, expr string) error {
	var nf *PathNotFoundError
	if errors.As(err, &nf) && nf.Expr == "" {
		nf.Expr = expr
	}
	var tm *TypeMismatchError
	if errors.As(err, &tm) && tm.Expr == "" {
		tm.Expr = expr
	}
	return err
}
