package suite

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/apicontract/pkg/env"
	"github.com/loykin/apicontract/pkg/gpath"
	"github.com/loykin/apicontract/pkg/matcher"
)

// MatcherSpec is the YAML form of a matcher. Several operators in one
// mapping must all hold.
type MatcherSpec struct {
	Equals     any    `mapstructure:"equals"`
	NotEquals  any    `mapstructure:"not_equals"`
	Contains   any    `mapstructure:"contains"`
	StartsWith string `mapstructure:"starts_with"`
	EndsWith   string `mapstructure:"ends_with"`
	Matches    string `mapstructure:"matches"`
	HasItems   []any  `mapstructure:"has_items"`
	OneOf      []any  `mapstructure:"one_of"`
	Size       int    `mapstructure:"size"`
	Lt         any    `mapstructure:"lt"`
	Lte        any    `mapstructure:"lte"`
	Gt         any    `mapstructure:"gt"`
	Gte        any    `mapstructure:"gte"`
	Empty      bool   `mapstructure:"empty"`
	Exists     bool   `mapstructure:"exists"`

	// keys lists the operators present in the source mapping.
	keys []string
}

// Check is a decoded path expectation.
type Check struct {
	Path    string
	Matcher matcher.Matcher
	// Absent is set by "exists: false": the path must not resolve.
	Absent bool
}

// decodeMatcherSpec decodes raw after rendering its templates with e. A
// scalar or list is shorthand for equals.
func decodeMatcherSpec(raw any, e *env.Env) (MatcherSpec, error) {
	raw = renderValue(raw, e)
	m, ok := raw.(map[string]any)
	if !ok {
		return MatcherSpec{Equals: raw, keys: []string{"equals"}}, nil
	}
	if len(m) == 0 {
		return MatcherSpec{}, fmt.Errorf("no matcher operator given")
	}
	var (
		ms MatcherSpec
		md mapstructure.Metadata
	)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &ms,
		Metadata:         &md,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		// records explicit nulls such as "equals: null" in the metadata
		ZeroFields: true,
	})
	if err != nil {
		return MatcherSpec{}, err
	}
	if err := dec.Decode(m); err != nil {
		return MatcherSpec{}, fmt.Errorf("invalid matcher: %w", err)
	}
	ms.keys = append([]string(nil), md.Keys...)
	sort.Strings(ms.keys)
	return ms, nil
}

// Build turns the spec into a single matcher.
func (ms MatcherSpec) Build() (matcher.Matcher, error) {
	var out []matcher.Matcher
	for _, k := range ms.keys {
		switch k {
		case "equals":
			out = append(out, scalarEqual(ms.Equals))
		case "not_equals":
			out = append(out, matcher.Not(scalarEqual(ms.NotEquals)))
		case "contains":
			if s, ok := ms.Contains.(string); ok {
				out = append(out, matcher.AnyOf(matcher.ContainsString(s), matcher.HasItem(s)))
			} else {
				out = append(out, matcher.HasItem(scalarEqual(ms.Contains)))
			}
		case "starts_with":
			out = append(out, matcher.StartsWith(ms.StartsWith))
		case "ends_with":
			out = append(out, matcher.EndsWith(ms.EndsWith))
		case "matches":
			out = append(out, matcher.MatchesRegex(ms.Matches))
		case "has_items":
			items := make([]any, len(ms.HasItems))
			for i, it := range ms.HasItems {
				items[i] = scalarEqual(it)
			}
			out = append(out, matcher.HasItems(items...))
		case "one_of":
			out = append(out, oneOf(ms.OneOf))
		case "size":
			out = append(out, matcher.HasSize(ms.Size))
		case "lt":
			out = append(out, matcher.LessThan(numericBound(ms.Lt)))
		case "lte":
			out = append(out, matcher.LessThanOrEqualTo(numericBound(ms.Lte)))
		case "gt":
			out = append(out, matcher.GreaterThan(numericBound(ms.Gt)))
		case "gte":
			out = append(out, matcher.GreaterThanOrEqualTo(numericBound(ms.Gte)))
		case "empty":
			if ms.Empty {
				out = append(out, matcher.Empty())
			} else {
				out = append(out, matcher.NotEmpty())
			}
		case "exists":
			if ms.Exists {
				out = append(out, matcher.NotNil())
			}
		}
	}
	switch len(out) {
	case 0:
		if ms.onlyExists() {
			return nil, nil
		}
		return nil, fmt.Errorf("no matcher operator given")
	case 1:
		return out[0], nil
	}
	return matcher.AllOf(out...), nil
}

func (ms MatcherSpec) onlyExists() bool {
	return len(ms.keys) == 1 && ms.keys[0] == "exists"
}

// decodeCheck decodes one body or jmespath entry: {path: expr, <op>: value}.
func decodeCheck(raw map[string]any, e *env.Env) (Check, error) {
	rest := make(map[string]any, len(raw))
	var path string
	for k, v := range raw {
		if k == "path" {
			s, ok := v.(string)
			if !ok {
				return Check{}, fmt.Errorf("path must be a string, got %T", v)
			}
			path = e.RenderGoTemplate(s)
			continue
		}
		rest[k] = v
	}
	if strings.TrimSpace(path) == "" {
		return Check{}, fmt.Errorf("missing path")
	}
	ms, err := decodeMatcherSpec(rest, e)
	if err != nil {
		return Check{}, fmt.Errorf("path %s: %w", path, err)
	}
	if ms.onlyExists() && !ms.Exists {
		return Check{Path: path, Absent: true}, nil
	}
	m, err := ms.Build()
	if err != nil {
		return Check{}, fmt.Errorf("path %s: %w", path, err)
	}
	if m == nil {
		m = matcher.NotNil()
	}
	return Check{Path: path, Matcher: m}, nil
}

// renderValue renders templates in every string of v. Rendered values stay
// strings; scalarEqual and numericBound decide how they compare.
func renderValue(v any, e *env.Env) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = renderValue(val, e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = renderValue(t[i], e)
		}
		return out
	case string:
		if !strings.Contains(t, "{{") {
			return t
		}
		return e.RenderGoTemplate(t)
	}
	return v
}

// scalarEqual matches like matcher.EqualTo and also when one side is a
// string and the other a number or boolean with the same text form, so an
// extracted "123" equals both "123" and 123 while "01234" never equals 1234.
// Header and cookie values are always strings, which makes "X-Id: 42" work.
func scalarEqual(expected any) matcher.Matcher {
	eq := matcher.EqualTo(expected)
	return matcher.FuncErr(eq.Describe(), func(actual any) (bool, error) {
		ok, err := eq.Matches(actual)
		if err != nil || ok {
			return ok, err
		}
		return sameText(actual, expected), nil
	})
}

func sameText(a, b any) bool {
	_, aStr := a.(string)
	_, bStr := b.(string)
	if aStr == bStr || !isScalar(a) || !isScalar(b) {
		return false
	}
	return gpath.ToString(a) == gpath.ToString(b)
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool:
		return true
	}
	_, ok := gpath.ToNumber(v)
	return ok
}

func oneOf(candidates []any) matcher.Matcher {
	ms := make([]matcher.Matcher, len(candidates))
	for i, c := range candidates {
		ms[i] = scalarEqual(c)
	}
	return matcher.AnyOf(ms...)
}

// numericBound turns a numeric string into a number for ordering operators.
func numericBound(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f
	}
	return v
}
