package util

import (
	"github.com/loykin/apicontract/pkg/env"
)

// RenderAnyTemplate walks arbitrary structures (map[string]any, []any) and renders
// all string values using the provided env with standard Go template syntax ({{...}}).
// The function returns a new rendered structure (for maps/slices) or the
// original value for non-string scalars.
func RenderAnyTemplate(in any, e *env.Env) any {
	switch t := in.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, v := range t {
			m[k] = RenderAnyTemplate(v, e)
		}
		return m
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			arr[i] = RenderAnyTemplate(t[i], e)
		}
		return arr
	case string:
		if e == nil {
			return t
		}
		return e.RenderGoTemplate(t)
	default:
		return in
	}
}
