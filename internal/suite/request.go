package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/loykin/apicontract/internal/util"
	"github.com/loykin/apicontract/pkg/env"
	"github.com/loykin/apicontract/pkg/spec"
	"github.com/tidwall/gjson"
)

// Header is a single request header.
type Header struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Param is a query, form or generic parameter. Values makes it multi-valued;
// a param with neither Value nor Values is sent as a bare key.
type Param struct {
	Name   string   `yaml:"name"`
	Value  string   `yaml:"value"`
	Values []string `yaml:"values"`
}

type RequestSpec struct {
	Method      string            `yaml:"method"`
	URL         string            `yaml:"url"`
	Path        string            `yaml:"path"`
	Headers     []Header          `yaml:"headers"`
	Queries     []Param           `yaml:"queries"`
	Form        []Param           `yaml:"form"`
	Params      []Param           `yaml:"params"`
	PathParams  map[string]string `yaml:"path_params"`
	Cookies     map[string]string `yaml:"cookies"`
	ContentType string            `yaml:"content_type"`
	// Body is sent as is when it is a string and as JSON when it is a
	// mapping or a list.
	Body     any    `yaml:"body"`
	BodyFile string `yaml:"body_file"`
	Timeout  string `yaml:"timeout"`
}

// Render applies Go template rendering using e and builds the request.
// baseDir resolves a relative body_file. Body templates that fail to render
// are errors; other fields fall back to their raw text.
func (r RequestSpec) Render(e *env.Env, baseDir string) (*spec.Builder, error) {
	b := spec.Given().
		Method(e.RenderGoTemplate(r.Method)).
		URL(e.RenderGoTemplate(r.URL)).
		Path(e.RenderGoTemplate(r.Path))

	for _, h := range r.Headers {
		if h.Name == "" {
			continue
		}
		b.Header(h.Name, e.RenderGoTemplate(h.Value))
	}
	renderParams(e, r.Queries, b.QueryParam)
	renderParams(e, r.Form, b.FormParam)
	renderParams(e, r.Params, b.Param)
	for _, k := range sortedKeys(r.PathParams) {
		b.PathParam(k, e.RenderGoTemplate(r.PathParams[k]))
	}
	for _, k := range sortedKeys(r.Cookies) {
		b.Cookie(k, e.RenderGoTemplate(r.Cookies[k]))
	}

	ct := e.RenderGoTemplate(r.ContentType)
	body, isJSONBody, err := r.renderBody(e, baseDir)
	if err != nil {
		return nil, err
	}
	if body != nil {
		b.Body(body)
		if ct == "" && isJSONBody {
			ct = "application/json"
		}
	}
	if ct != "" {
		b.ContentType(ct)
	}

	if t := strings.TrimSpace(r.Timeout); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", t, err)
		}
		b.Timeout(d)
	}
	return b, nil
}

func renderParams(e *env.Env, ps []Param, add func(string, ...any) *spec.Builder) {
	for _, p := range ps {
		if p.Name == "" {
			continue
		}
		var values []any
		if p.Value != "" {
			values = append(values, e.RenderGoTemplate(p.Value))
		}
		for _, v := range p.Values {
			values = append(values, e.RenderGoTemplate(v))
		}
		add(p.Name, values...)
	}
}

// renderBody returns the body to send and whether it is JSON text.
func (r RequestSpec) renderBody(e *env.Env, baseDir string) (any, bool, error) {
	if strings.TrimSpace(r.BodyFile) != "" {
		path := filepath.Clean(e.RenderGoTemplate(r.BodyFile))
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		// #nosec G304 -- body files are referenced by the suite author
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, false, fmt.Errorf("read body_file: %w", err)
		}
		s, err := e.RenderGoTemplateErr(string(data))
		if err != nil {
			return nil, false, fmt.Errorf("body_file template error: %w", err)
		}
		return s, isJSON(s), nil
	}
	switch body := r.Body.(type) {
	case nil:
		return nil, false, nil
	case string:
		s, err := e.RenderGoTemplateErr(body)
		if err != nil {
			return nil, false, fmt.Errorf("body template error: %w", err)
		}
		return s, isJSON(s), nil
	default:
		return util.RenderAnyTemplate(body, e), false, nil
	}
}

func isJSON(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	if (strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}")) || (strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]")) {
		return gjson.Valid(t)
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
