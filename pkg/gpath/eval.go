package gpath

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Evaluate compiles expr and evaluates it against doc, a tree of
// map[string]any, []any and scalars as produced by ParseJSON or ParseXML.
func Evaluate(doc any, expr string) (any, error) {
	e, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return e.Evaluate(doc)
}

// Evaluate runs the compiled expression against doc.
func (e *Expr) Evaluate(doc any) (any, error) {
	v, err := evalSteps(doc, e.steps)
	if err != nil {
		return nil, withExpr(err, e.src)
	}
	return v, nil
}

func evalSteps(cur any, steps []step) (any, error) {
	var err error
	for _, s := range steps {
		cur, err = applyStep(cur, s)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func applyStep(cur any, s step) (any, error) {
	switch st := s.(type) {
	case fieldStep:
		return applyField(cur, st)
	case indexStep:
		arr, ok := cur.([]any)
		if !ok {
			return nil, &PathNotFoundError{Segment: st.String()}
		}
		i := st.index
		if i < 0 {
			i += len(arr)
		}
		if i < 0 || i >= len(arr) {
			return nil, &PathNotFoundError{Segment: st.String()}
		}
		return arr[i], nil
	case wildcardStep:
		switch v := cur.(type) {
		case []any:
			return v, nil
		case map[string]any:
			keys := sortedKeys(v)
			out := make([]any, 0, len(keys))
			for _, k := range keys {
				out = append(out, v[k])
			}
			return out, nil
		}
		return nil, &PathNotFoundError{Segment: "*"}
	case filterStep:
		return applyFilter(cur, st)
	case callStep:
		fn := functions[st.name]
		args := make([]any, 0, len(st.args))
		for _, a := range st.args {
			// function arguments are evaluated against the receiver
			v, err := evalNode(a, cur)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		return fn(cur, args)
	}
	return nil, fmt.Errorf("gpath: unknown step %T", s)
}

// applyField implements GPath property access: direct lookup on objects,
// projection (flattening one level) over lists.
func applyField(cur any, st fieldStep) (any, error) {
	switch v := cur.(type) {
	case map[string]any:
		val, ok := v[st.name]
		if !ok {
			return nil, &PathNotFoundError{Segment: st.name}
		}
		return val, nil
	case []any:
		out := make([]any, 0, len(v))
		hits := 0
		for _, el := range v {
			m, ok := el.(map[string]any)
			if !ok {
				continue
			}
			val, ok := m[st.name]
			if !ok {
				continue
			}
			hits++
			if inner, ok := val.([]any); ok {
				out = append(out, inner...)
			} else {
				out = append(out, val)
			}
		}
		if len(v) > 0 && hits == 0 {
			return nil, &PathNotFoundError{Segment: st.name}
		}
		return out, nil
	}
	return nil, &PathNotFoundError{Segment: st.name}
}

func applyFilter(cur any, st filterStep) (any, error) {
	arr, ok := cur.([]any)
	if !ok {
		if m, isMap := cur.(map[string]any); isMap {
			arr = []any{m}
		} else {
			return nil, &TypeMismatchError{Op: st.String(), Value: cur, Want: "a list"}
		}
	}
	out := make([]any, 0)
	for _, el := range arr {
		v, err := evalNode(st.pred, el)
		if err != nil {
			var nf *PathNotFoundError
			if errors.As(err, &nf) {
				continue // element lacks the field: not a match
			}
			return nil, err
		}
		if truthy(v) {
			if !st.all {
				return el, nil
			}
			out = append(out, el)
		}
	}
	if !st.all {
		return nil, &PathNotFoundError{Segment: st.String()}
	}
	return out, nil
}

func evalNode(n node, it any) (any, error) {
	switch nd := n.(type) {
	case literalNode:
		return nd.value, nil
	case itNode:
		return evalSteps(it, nd.steps)
	case unaryNode:
		v, err := evalNode(nd.operand, it)
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	case binaryNode:
		return evalBinary(nd, it)
	}
	return nil, fmt.Errorf("gpath: unknown node %T", n)
}

func evalBinary(nd binaryNode, it any) (any, error) {
	left, err := evalNode(nd.left, it)
	if err != nil {
		return nil, err
	}
	switch nd.op {
	case tAnd:
		if !truthy(left) {
			return false, nil
		}
		right, err := evalNode(nd.right, it)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	case tOr:
		if truthy(left) {
			return true, nil
		}
		right, err := evalNode(nd.right, it)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	}
	right, err := evalNode(nd.right, it)
	if err != nil {
		return nil, err
	}
	switch nd.op {
	case tEq:
		return Equal(left, right), nil
	case tNe:
		return !Equal(left, right), nil
	case tMatch:
		pattern, ok := right.(string)
		if !ok {
			return nil, &TypeMismatchError{Op: "=~", Value: right, Want: "a regex string"}
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("gpath: bad regex %q: %w", pattern, err)
		}
		return re.MatchString(ToString(left)), nil
	}
	c, err := Compare(left, right)
	if err != nil {
		return nil, err
	}
	switch nd.op {
	case tLt:
		return c < 0, nil
	case tLe:
		return c <= 0, nil
	case tGt:
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

// truthy follows Groovy truth: false, nil, zero, "" and empty collections are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	if n, ok := toNumber(v); ok {
		return n != 0
	}
	return true
}

// Equal compares values with numeric coercion between number types, deep
// equality for lists and objects, and plain equality otherwise.
func Equal(a, b any) bool {
	an, aok := toNumber(a)
	bn, bok := toNumber(b)
	if aok && bok && !isString(a) && !isString(b) {
		return an == bn
	}
	switch av := a.(type) {
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders two numbers or two strings. Other combinations are a
// TypeMismatchError.
func Compare(a, b any) (int, error) {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs), nil
		}
	}
	an, aok := toNumber(a)
	if !aok || isString(a) {
		return 0, &TypeMismatchError{Op: "comparison", Value: a, Want: "a number"}
	}
	bn, bok := toNumber(b)
	if !bok || isString(b) {
		return 0, &TypeMismatchError{Op: "comparison", Value: b, Want: "a number"}
	}
	switch {
	case an < bn:
		return -1, nil
	case an > bn:
		return 1, nil
	}
	return 0, nil
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type function func(recv any, args []any) (any, error)

var functions = map[string]function{
	"length":     fnLength,
	"size":       fnSize,
	"sum":        fnSum,
	"min":        fnMin,
	"max":        fnMax,
	"contains":   fnContains,
	"startsWith": stringPredicate("startsWith", strings.HasPrefix),
	"endsWith":   stringPredicate("endsWith", strings.HasSuffix),
}

func sizeOf(v any) (int, bool) {
	switch t := v.(type) {
	case string:
		return utf8.RuneCountInString(t), true
	case []any:
		return len(t), true
	case map[string]any:
		return len(t), true
	}
	return 0, false
}

// length() on a list maps over its elements, so name.length().sum() adds up
// the length of every projected name.
func fnLength(recv any, _ []any) (any, error) {
	if arr, ok := recv.([]any); ok {
		out := make([]any, 0, len(arr))
		for _, el := range arr {
			n, ok := sizeOf(el)
			if !ok {
				return nil, &TypeMismatchError{Op: "length()", Value: el, Want: "a string or collection"}
			}
			out = append(out, n)
		}
		return out, nil
	}
	n, ok := sizeOf(recv)
	if !ok {
		return nil, &TypeMismatchError{Op: "length()", Value: recv, Want: "a string or collection"}
	}
	return n, nil
}

func fnSize(recv any, _ []any) (any, error) {
	n, ok := sizeOf(recv)
	if !ok {
		return nil, &TypeMismatchError{Op: "size()", Value: recv, Want: "a string or collection"}
	}
	return n, nil
}

func numbers(op string, recv any) ([]float64, error) {
	arr, ok := recv.([]any)
	if !ok {
		arr = []any{recv}
	}
	out := make([]float64, 0, len(arr))
	for _, el := range arr {
		n, ok := toNumber(el)
		if !ok {
			return nil, &TypeMismatchError{Op: op, Value: el, Want: "a number"}
		}
		out = append(out, n)
	}
	return out, nil
}

func fnSum(recv any, _ []any) (any, error) {
	ns, err := numbers("sum()", recv)
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, n := range ns {
		total += n
	}
	return normalizeNumber(total), nil
}

func fnMin(recv any, _ []any) (any, error) {
	return extreme("min()", recv, func(a, b float64) bool { return a < b })
}

func fnMax(recv any, _ []any) (any, error) {
	return extreme("max()", recv, func(a, b float64) bool { return a > b })
}

func extreme(op string, recv any, better func(a, b float64) bool) (any, error) {
	ns, err := numbers(op, recv)
	if err != nil {
		return nil, err
	}
	if len(ns) == 0 {
		return nil, &PathNotFoundError{Segment: op}
	}
	best := ns[0]
	for _, n := range ns[1:] {
		if better(n, best) {
			best = n
		}
	}
	return normalizeNumber(best), nil
}

func fnContains(recv any, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("gpath: contains() takes exactly one argument")
	}
	switch t := recv.(type) {
	case string:
		return strings.Contains(t, ToString(args[0])), nil
	case []any:
		for _, el := range t {
			if Equal(el, args[0]) {
				return true, nil
			}
		}
		return false, nil
	case map[string]any:
		_, ok := t[ToString(args[0])]
		return ok, nil
	}
	return nil, &TypeMismatchError{Op: "contains()", Value: recv, Want: "a string or collection"}
}

func stringPredicate(name string, f func(s, affix string) bool) function {
	return func(recv any, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("gpath: %s() takes exactly one argument", name)
		}
		s, ok := recv.(string)
		if !ok {
			return nil, &TypeMismatchError{Op: name + "()", Value: recv, Want: "a string"}
		}
		return f(s, ToString(args[0])), nil
	}
}
