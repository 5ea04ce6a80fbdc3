package suite

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/apicontract/pkg/env"
	"github.com/loykin/apicontract/pkg/matcher"
	"github.com/loykin/apicontract/pkg/verify"
)

// ExpectSpec is the YAML form of a response specification. Scalar values
// mean equals; mappings hold matcher operators (see MatcherSpec).
type ExpectSpec struct {
	// Status is a code, a list of allowed codes or a matcher mapping.
	Status      any            `yaml:"status"`
	StatusLine  any            `yaml:"status_line"`
	ContentType string         `yaml:"content_type"`
	Headers     map[string]any `yaml:"headers"`
	Cookies     map[string]any `yaml:"cookies"`
	TimeUnder   string         `yaml:"time_under"`
	// RootPath prefixes every Body path.
	RootPath   string           `yaml:"root_path"`
	Body       []map[string]any `yaml:"body"`
	JMESPath   []map[string]any `yaml:"jmespath"`
	Schema     string           `yaml:"schema"`
	SchemaFile string           `yaml:"schema_file"`
}

// Build decodes the expectations into a verify.ResponseSpec, rendering
// templates with e. baseDir resolves a relative schema_file.
func (x ExpectSpec) Build(e *env.Env, baseDir string) (verify.ResponseSpec, error) {
	b := verify.Expect()

	if x.Status != nil {
		m, err := statusMatcher(x.Status, e)
		if err != nil {
			return verify.ResponseSpec{}, fmt.Errorf("status: %w", err)
		}
		b.Status(m)
	}
	if x.StatusLine != nil {
		m, err := valueMatcher(x.StatusLine, e)
		if err != nil {
			return verify.ResponseSpec{}, fmt.Errorf("status_line: %w", err)
		}
		b.StatusLine(m)
	}
	if ct := e.RenderGoTemplate(x.ContentType); ct != "" {
		b.ContentType(ct)
	}
	for _, name := range sortedKeys(x.Headers) {
		m, err := valueMatcher(x.Headers[name], e)
		if err != nil {
			return verify.ResponseSpec{}, fmt.Errorf("header %s: %w", name, err)
		}
		b.Header(name, m)
	}
	for _, name := range sortedKeys(x.Cookies) {
		m, err := valueMatcher(x.Cookies[name], e)
		if err != nil {
			return verify.ResponseSpec{}, fmt.Errorf("cookie %s: %w", name, err)
		}
		b.Cookie(name, m)
	}
	if t := strings.TrimSpace(x.TimeUnder); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return verify.ResponseSpec{}, fmt.Errorf("time_under %q: %w", t, err)
		}
		b.TimeUnder(d)
	}
	if x.Schema != "" {
		b.Schema(x.Schema)
	}
	if f := strings.TrimSpace(x.SchemaFile); f != "" {
		f = filepath.Clean(e.RenderGoTemplate(f))
		if !filepath.IsAbs(f) && baseDir != "" {
			f = filepath.Join(baseDir, f)
		}
		b.SchemaFile(f)
	}

	b.RootPath(e.RenderGoTemplate(x.RootPath))
	for i, raw := range x.Body {
		c, err := decodeCheck(raw, e)
		if err != nil {
			return verify.ResponseSpec{}, fmt.Errorf("body[%d]: %w", i, err)
		}
		if c.Absent {
			b.NoPath(c.Path)
		} else {
			b.Path(c.Path, c.Matcher)
		}
	}
	for i, raw := range x.JMESPath {
		c, err := decodeCheck(raw, e)
		if err != nil {
			return verify.ResponseSpec{}, fmt.Errorf("jmespath[%d]: %w", i, err)
		}
		if c.Absent {
			// a JMESPath miss evaluates to null
			b.JMESPath(c.Path, matcher.Nil())
		} else {
			b.JMESPath(c.Path, c.Matcher)
		}
	}
	return b.Build(), nil
}

// valueMatcher decodes a scalar or operator mapping. "exists: false"
// expects the value to be absent.
func valueMatcher(raw any, e *env.Env) (matcher.Matcher, error) {
	ms, err := decodeMatcherSpec(raw, e)
	if err != nil {
		return nil, err
	}
	if ms.onlyExists() && !ms.Exists {
		return matcher.Nil(), nil
	}
	m, err := ms.Build()
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = matcher.NotNil()
	}
	return m, nil
}

// statusMatcher accepts a code, a list of codes or a matcher mapping.
func statusMatcher(raw any, e *env.Env) (matcher.Matcher, error) {
	if list, ok := raw.([]any); ok {
		codes, ok := renderValue(list, e).([]any)
		if !ok || len(codes) == 0 {
			return nil, fmt.Errorf("empty status list")
		}
		return oneOf(codes), nil
	}
	return valueMatcher(raw, e)
}
