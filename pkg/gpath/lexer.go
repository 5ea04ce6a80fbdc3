package gpath

import (
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tEOF tokenKind = iota
	tIdent
	tNumber
	tString
	tDot
	tComma
	tStar
	tLBrack
	tRBrack
	tLBrace
	tRBrace
	tLParen
	tRParen
	tEq
	tNe
	tLt
	tLe
	tGt
	tGe
	tMatch
	tAnd
	tOr
	tNot
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

var operators = []struct {
	text string
	kind tokenKind
}{
	{"==", tEq}, {"!=", tNe}, {"<=", tLe}, {">=", tGe}, {"=~", tMatch},
	{"&&", tAnd}, {"||", tOr},
	{"<", tLt}, {">", tGt}, {"!", tNot},
	{".", tDot}, {",", tComma}, {"*", tStar},
	{"[", tLBrack}, {"]", tRBrack}, {"{", tLBrace}, {"}", tRBrace},
	{"(", tLParen}, {")", tRParen},
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || r == '@' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || r == '-' || unicode.IsDigit(r)
}

func lex(src string) ([]token, error) {
	var toks []token
	rs := []rune(src)
	i := 0
	for i < len(rs) {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '\'' || r == '"':
			start := i
			var b strings.Builder
			i++
			for i < len(rs) && rs[i] != r {
				if rs[i] == '\\' && i+1 < len(rs) {
					i++
				}
				b.WriteRune(rs[i])
				i++
			}
			if i >= len(rs) {
				return nil, &SyntaxError{Expr: src, Pos: start, Msg: "unterminated string"}
			}
			i++
			toks = append(toks, token{kind: tString, text: b.String(), pos: start})
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			start := i
			i++
			for i < len(rs) && (unicode.IsDigit(rs[i]) || (rs[i] == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1]))) {
				i++
			}
			text := string(rs[start:i])
			n, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, &SyntaxError{Expr: src, Pos: start, Msg: "bad number " + text}
			}
			toks = append(toks, token{kind: tNumber, text: text, num: n, pos: start})
		case isIdentStart(r):
			start := i
			i++
			for i < len(rs) && isIdentPart(rs[i]) {
				i++
			}
			toks = append(toks, token{kind: tIdent, text: string(rs[start:i]), pos: start})
		default:
			matched := false
			rest := string(rs[i:])
			for _, op := range operators {
				if strings.HasPrefix(rest, op.text) {
					toks = append(toks, token{kind: op.kind, text: op.text, pos: i})
					i += len([]rune(op.text))
					matched = true
					break
				}
			}
			if !matched {
				return nil, &SyntaxError{Expr: src, Pos: i, Msg: "unexpected character " + strconv.QuoteRune(r)}
			}
		}
	}
	toks = append(toks, token{kind: tEOF, pos: len(rs)})
	return toks, nil
}
