package env

import "testing"

// FuzzRenderGoTemplate ensures the renderer never panics on arbitrary input.
func FuzzRenderGoTemplate(f *testing.F) {
	f.Add("")
	f.Add("plain text")
	f.Add("hello {{.env.name}}")
	f.Add("{{.MISSING}")
	f.Add("{{.env.a}}{{.env.b}}{{.env.c}}")

	e := &Env{Global: Map{"name": "world", "a": "1", "b": "2"}, Local: Map{"c": "3"}}
	f.Fuzz(func(t *testing.T, s string) {
		_ = e.RenderGoTemplate(s)
	})
}
