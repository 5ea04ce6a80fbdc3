// Package matcher provides composable value matchers used by response
// expectations. A matcher reports whether a value matches, or an error when
// the matcher cannot be applied to the value at all.
package matcher

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/loykin/apicontract/pkg/gpath"
)

// Matcher is a predicate with a human-readable description.
type Matcher interface {
	Matches(actual any) (bool, error)
	Describe() string
}

type fn struct {
	desc string
	f    func(actual any) (bool, error)
}

func (m fn) Matches(actual any) (bool, error) { return m.f(actual) }
func (m fn) Describe() string                 { return m.desc }

// Func adapts a plain predicate into a Matcher.
func Func(description string, pred func(actual any) bool) Matcher {
	return fn{desc: description, f: func(a any) (bool, error) { return pred(a), nil }}
}

// FuncErr is like Func but the predicate may report that it cannot apply.
func FuncErr(description string, pred func(actual any) (bool, error)) Matcher {
	return fn{desc: description, f: pred}
}

func describe(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return gpath.ToString(v)
}

func normalize(v any) any {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if _, ok := v.([]any); ok {
			return v
		}
		if _, ok := v.([]byte); ok {
			return string(v.([]byte))
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	case reflect.Map:
		if _, ok := v.(map[string]any); ok {
			return v
		}
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out
	}
	return v
}

// EqualTo matches values equal to expected. Numbers compare by value across
// types; lists and objects compare deeply.
func EqualTo(expected any) Matcher {
	want := normalize(expected)
	return fn{desc: "equal to " + describe(expected), f: func(a any) (bool, error) {
		return gpath.Equal(normalize(a), want), nil
	}}
}

// Is is an alias of EqualTo that reads well in fluent chains.
func Is(expected any) Matcher { return EqualTo(expected) }

// Not negates m. Errors from m propagate.
func Not(m Matcher) Matcher {
	return fn{desc: "not " + m.Describe(), f: func(a any) (bool, error) {
		ok, err := m.Matches(a)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}}
}

func Nil() Matcher { return Func("null", func(a any) bool { return a == nil }) }

func NotNil() Matcher { return Func("not null", func(a any) bool { return a != nil }) }

func str(op string, a any) (string, error) {
	switch s := a.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case fmt.Stringer:
		return s.String(), nil
	}
	return "", &gpath.TypeMismatchError{Op: op, Value: a, Want: "a string"}
}

func stringMatcher(op, desc string, f func(s string) bool) Matcher {
	return fn{desc: desc, f: func(a any) (bool, error) {
		s, err := str(op, a)
		if err != nil {
			return false, err
		}
		return f(s), nil
	}}
}

func EqualToIgnoringCase(expected string) Matcher {
	return stringMatcher("equalToIgnoringCase", "equal to "+describe(expected)+" ignoring case", func(s string) bool {
		return strings.EqualFold(s, expected)
	})
}

func ContainsString(sub string) Matcher {
	return stringMatcher("containsString", "a string containing "+describe(sub), func(s string) bool {
		return strings.Contains(s, sub)
	})
}

func StartsWith(prefix string) Matcher {
	return stringMatcher("startsWith", "a string starting with "+describe(prefix), func(s string) bool {
		return strings.HasPrefix(s, prefix)
	})
}

func EndsWith(suffix string) Matcher {
	return stringMatcher("endsWith", "a string ending with "+describe(suffix), func(s string) bool {
		return strings.HasSuffix(s, suffix)
	})
}

// MatchesRegex panics on an invalid pattern, like regexp.MustCompile.
func MatchesRegex(pattern string) Matcher {
	re := regexp.MustCompile(pattern)
	return stringMatcher("matchesRegex", "a string matching /"+pattern+"/", re.MatchString)
}

func list(op string, a any) ([]any, error) {
	if l, ok := normalize(a).([]any); ok {
		return l, nil
	}
	return nil, &gpath.TypeMismatchError{Op: op, Value: a, Want: "a list"}
}

// HasItem matches a list with at least one element matching m. Plain values
// are wrapped in EqualTo.
func HasItem(item any) Matcher {
	m := asMatcher(item)
	return fn{desc: "a collection containing " + m.Describe(), f: func(a any) (bool, error) {
		l, err := list("hasItem", a)
		if err != nil {
			return false, err
		}
		for _, el := range l {
			ok, err := m.Matches(el)
			if err == nil && ok {
				return true, nil
			}
		}
		return false, nil
	}}
}

// HasItems matches a list containing every given item, in any order.
func HasItems(items ...any) Matcher {
	ms := make([]Matcher, len(items))
	descs := make([]string, len(items))
	for i, it := range items {
		ms[i] = HasItem(it)
		descs[i] = asMatcher(it).Describe()
	}
	return fn{desc: "a collection containing [" + strings.Join(descs, ", ") + "]", f: func(a any) (bool, error) {
		for _, m := range ms {
			ok, err := m.Matches(a)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}}
}

// ContainsInAnyOrder matches a list that is a permutation of items.
func ContainsInAnyOrder(items ...any) Matcher {
	descs := make([]string, len(items))
	for i, it := range items {
		descs[i] = describe(it)
	}
	return fn{desc: "a collection over [" + strings.Join(descs, ", ") + "] in any order", f: func(a any) (bool, error) {
		l, err := list("containsInAnyOrder", a)
		if err != nil {
			return false, err
		}
		if len(l) != len(items) {
			return false, nil
		}
		used := make([]bool, len(l))
	outer:
		for _, want := range items {
			for i, el := range l {
				if !used[i] && gpath.Equal(el, normalize(want)) {
					used[i] = true
					continue outer
				}
			}
			return false, nil
		}
		return true, nil
	}}
}

func size(op string, a any) (int, error) {
	switch t := normalize(a).(type) {
	case string:
		return len([]rune(t)), nil
	case []any:
		return len(t), nil
	case map[string]any:
		return len(t), nil
	}
	return 0, &gpath.TypeMismatchError{Op: op, Value: a, Want: "a string or collection"}
}

// HasSize matches strings, lists and objects of exactly n elements.
func HasSize(n int) Matcher {
	return fn{desc: fmt.Sprintf("a collection with size %d", n), f: func(a any) (bool, error) {
		got, err := size("hasSize", a)
		if err != nil {
			return false, err
		}
		return got == n, nil
	}}
}

func Empty() Matcher {
	return fn{desc: "empty", f: func(a any) (bool, error) {
		got, err := size("empty", a)
		if err != nil {
			return false, err
		}
		return got == 0, nil
	}}
}

func NotEmpty() Matcher { return Not(Empty()) }

// HasKey matches objects with the given key.
func HasKey(key string) Matcher {
	return fn{desc: "a map containing key " + describe(key), f: func(a any) (bool, error) {
		m, ok := normalize(a).(map[string]any)
		if !ok {
			return false, &gpath.TypeMismatchError{Op: "hasKey", Value: a, Want: "an object"}
		}
		_, ok = m[key]
		return ok, nil
	}}
}

func ordering(desc string, bound any, accept func(c int) bool) Matcher {
	return fn{desc: desc + " " + describe(bound), f: func(a any) (bool, error) {
		c, err := gpath.Compare(normalize(a), normalize(bound))
		if err != nil {
			return false, err
		}
		return accept(c), nil
	}}
}

func LessThan(bound any) Matcher {
	return ordering("less than", bound, func(c int) bool { return c < 0 })
}

func LessThanOrEqualTo(bound any) Matcher {
	return ordering("less than or equal to", bound, func(c int) bool { return c <= 0 })
}

func GreaterThan(bound any) Matcher {
	return ordering("greater than", bound, func(c int) bool { return c > 0 })
}

func GreaterThanOrEqualTo(bound any) Matcher {
	return ordering("greater than or equal to", bound, func(c int) bool { return c >= 0 })
}

// OneOf matches a value equal to any of the candidates.
func OneOf(candidates ...any) Matcher {
	descs := make([]string, len(candidates))
	for i, c := range candidates {
		descs[i] = describe(c)
	}
	sort.Strings(descs)
	return fn{desc: "one of {" + strings.Join(descs, ", ") + "}", f: func(a any) (bool, error) {
		for _, c := range candidates {
			if gpath.Equal(normalize(a), normalize(c)) {
				return true, nil
			}
		}
		return false, nil
	}}
}

// AllOf matches when every matcher matches. The first error aborts.
func AllOf(ms ...Matcher) Matcher {
	return fn{desc: joinDescs("all of", ms), f: func(a any) (bool, error) {
		for _, m := range ms {
			ok, err := m.Matches(a)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}}
}

// AnyOf matches when at least one matcher matches. Errors are reported only
// when no matcher matched.
func AnyOf(ms ...Matcher) Matcher {
	return fn{desc: joinDescs("any of", ms), f: func(a any) (bool, error) {
		var firstErr error
		for _, m := range ms {
			ok, err := m.Matches(a)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if ok {
				return true, nil
			}
		}
		return false, firstErr
	}}
}

func joinDescs(prefix string, ms []Matcher) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = m.Describe()
	}
	return prefix + " (" + strings.Join(parts, ", ") + ")"
}

func asMatcher(v any) Matcher {
	if m, ok := v.(Matcher); ok {
		return m
	}
	return EqualTo(v)
}

// As returns v when it is already a Matcher and EqualTo(v) otherwise.
func As(v any) Matcher { return asMatcher(v) }
