package gpath

import "testing"

func FuzzCompile(f *testing.F) {
	for _, seed := range []string{
		"a.b.c", "[0].id", "items.findAll{it.n.length()>1}.n", "x.*", "a['b c']", "n.sum()", "$.a",
	} {
		f.Add(seed)
	}
	doc := map[string]any{"a": map[string]any{"b": []any{"x", "yy"}}, "items": []any{map[string]any{"n": "a"}}}
	f.Fuzz(func(t *testing.T, expr string) {
		e, err := Compile(expr)
		if err != nil {
			return
		}
		// evaluation may fail but must not panic
		_, _ = e.Evaluate(doc)
	})
}
