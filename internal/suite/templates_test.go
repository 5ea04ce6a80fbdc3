package suite

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckTemplate(t *testing.T) {
	ok := []string{
		"plain text",
		"{{.env.base}}/posts/{{.env.id}}",
		`{{if .env.token}}Bearer {{.env.token}}{{else}}none{{end}}`,
		`{{printf "%s-%s" .env.a .env.b}}`,
		`{{with .env.user}}{{.}}{{end}}`,
		`{{$.env.base}}`,
	}
	for _, s := range ok {
		if err := checkTemplate(s); err != nil {
			t.Errorf("%q: %v", s, err)
		}
	}

	bad := map[string]string{
		"{{.env.base":                      "parse error",
		"{{.base}}":                        "unknown template field",
		"{{$.Secret}}":                     "unknown template field",
		`{{if .env.x}}{{.user}}{{end}}`:    "unknown template field",
		`{{define "x"}}a{{end}}{{.env.a}}`: "includes",
		`{{template "x"}}`:                 "includes",
		`{{undefinedFunc .env.a}}`:         "parse error",
	}
	for s, want := range bad {
		err := checkTemplate(s)
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("%q: got %v, want error containing %q", s, err, want)
		}
	}
}

func TestCheckTemplate_Depth(t *testing.T) {
	s := strings.Repeat("{{if .env.a}}", 8) + "x" + strings.Repeat("{{end}}", 8)
	if err := checkTemplate(s); !errors.Is(err, ErrTemplateDepth) {
		t.Fatalf("expected ErrTemplateDepth, got %v", err)
	}
}

func TestCheckRequestTemplates(t *testing.T) {
	r := RequestSpec{
		URL:     "{{.env.base}}/x",
		Headers: []Header{{Name: "X-Token", Value: "{{.token}}"}},
		Queries: []Param{{Name: "q", Values: []string{"{{.env.q}}", "{{.env.q"}}},
		Body:    map[string]any{"user": map[string]any{"name": "{{.name}}"}, "ok": "{{.env.ok}}"},
	}
	errs := checkRequestTemplates(r)
	if len(errs) != 3 {
		t.Fatalf("errs = %v", errs)
	}
	joined := strings.Join(errs, "\n")
	for _, want := range []string{"header X-Token", "query q", "body.user.name"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %v", want, errs)
		}
	}
}
