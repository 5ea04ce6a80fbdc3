package verify

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jmespath/go-jmespath"
	"github.com/loykin/apicontract/pkg/executor"
	"github.com/loykin/apicontract/pkg/gpath"
	"github.com/loykin/apicontract/pkg/matcher"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DynamicMatcher builds its matcher from the response under test, for
// expectations such as "this field equals the Location header".
type DynamicMatcher interface {
	ForResponse(resp *executor.Response) (matcher.Matcher, error)
}

// DynamicFunc adapts a function into a DynamicMatcher.
type DynamicFunc func(resp *executor.Response) (matcher.Matcher, error)

func (f DynamicFunc) ForResponse(resp *executor.Response) (matcher.Matcher, error) { return f(resp) }

type expectation struct {
	kind Kind
	path string
	desc string
	eval func(resp *executor.Response) (any, matcher.Matcher, error)
}

// ResponseSpec is an ordered, immutable list of expectations.
type ResponseSpec struct {
	exps []expectation
}

// Len returns the number of expectations.
func (rs ResponseSpec) Len() int { return len(rs.exps) }

// Builder accumulates expectations. RootPath applies to Path calls made
// after it.
type Builder struct {
	exps []expectation
	root string
}

// Expect returns an empty builder.
func Expect() *Builder { return &Builder{} }

// NewBuilder is Expect under the builder naming used elsewhere.
func NewBuilder() *Builder { return Expect() }

// Build snapshots the expectations.
func (b *Builder) Build() ResponseSpec {
	return ResponseSpec{exps: append([]expectation(nil), b.exps...)}
}

// Spec appends the expectations of other.
func (b *Builder) Spec(other ResponseSpec) *Builder {
	b.exps = append(b.exps, other.exps...)
	return b
}

func (b *Builder) add(kind Kind, path, desc string, eval func(*executor.Response) (any, matcher.Matcher, error)) *Builder {
	b.exps = append(b.exps, expectation{kind: kind, path: path, desc: desc, eval: eval})
	return b
}

// resolve turns a plain value, Matcher or DynamicMatcher into a matcher for resp.
func resolve(expected any, resp *executor.Response) (matcher.Matcher, error) {
	if dm, ok := expected.(DynamicMatcher); ok {
		return dm.ForResponse(resp)
	}
	return matcher.As(expected), nil
}

func describeExpected(expected any) string {
	if _, ok := expected.(DynamicMatcher); ok {
		return "a response-derived value"
	}
	return matcher.As(expected).Describe()
}

func (b *Builder) simple(kind Kind, path string, expected any, actual func(*executor.Response) (any, error)) *Builder {
	return b.add(kind, path, describeExpected(expected), func(resp *executor.Response) (any, matcher.Matcher, error) {
		v, err := actual(resp)
		if err != nil {
			return nil, nil, err
		}
		m, err := resolve(expected, resp)
		return v, m, err
	})
}

// asText turns a plain number or boolean into its text form for
// expectations on string-valued parts of the response.
func asText(expected any) any {
	if _, ok := expected.(bool); ok {
		return gpath.ToString(expected)
	}
	if _, ok := gpath.ToNumber(expected); ok {
		if _, isStr := expected.(string); !isStr {
			return gpath.ToString(expected)
		}
	}
	return expected
}

// StatusCode expects an exact status code.
func (b *Builder) StatusCode(code int) *Builder { return b.Status(code) }

// Status expects the status code to satisfy expected, a value or matcher.
func (b *Builder) Status(expected any) *Builder {
	return b.simple(KindStatus, "", expected, func(r *executor.Response) (any, error) { return r.StatusCode(), nil })
}

// StatusLine expects e.g. "HTTP/1.1 200 OK".
func (b *Builder) StatusLine(expected any) *Builder {
	return b.simple(KindStatusLine, "", asText(expected), func(r *executor.Response) (any, error) { return r.StatusLine(), nil })
}

// Header expects the named header, values joined with ", ". An absent
// header is nil.
func (b *Builder) Header(name string, expected any) *Builder {
	return b.simple(KindHeader, name, asText(expected), func(r *executor.Response) (any, error) {
		if !r.HasHeader(name) {
			return nil, nil
		}
		return r.Header(name), nil
	})
}

// HeaderValue expects the header to equal v exactly.
func (b *Builder) HeaderValue(name, v string) *Builder { return b.Header(name, matcher.EqualTo(v)) }

// Headers expects several headers to equal the given values, in name order.
func (b *Builder) Headers(h map[string]string) *Builder {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		b.HeaderValue(k, h[k])
	}
	return b
}

// Cookie expects the value of the named cookie; nil when absent.
func (b *Builder) Cookie(name string, expected any) *Builder {
	return b.simple(KindCookie, name, asText(expected), func(r *executor.Response) (any, error) {
		c, ok := r.Cookie(name)
		if !ok {
			return nil, nil
		}
		return c.Value, nil
	})
}

// DetailedCookie expects the named cookie with all its attributes to satisfy m.
func (b *Builder) DetailedCookie(name string, m func(executor.Cookie) bool, description string) *Builder {
	return b.add(KindCookie, name, description, func(r *executor.Response) (any, matcher.Matcher, error) {
		c, ok := r.Cookie(name)
		if !ok {
			return nil, matcher.NotNil(), nil
		}
		return c, matcher.Func(description, func(any) bool { return m(c) }), nil
	})
}

// ContentType expects a media type. "application/json" matches
// "application/json; charset=utf-8"; an expectation with parameters must
// match them too.
func (b *Builder) ContentType(ct string) *Builder {
	want := strings.TrimSpace(ct)
	m := matcher.FuncErr("content type "+want, func(a any) (bool, error) {
		s, _ := a.(string)
		return sameContentType(want, s), nil
	})
	return b.add(KindContentType, "", m.Describe(), func(r *executor.Response) (any, matcher.Matcher, error) {
		return r.ContentType(), m, nil
	})
}

func sameContentType(want, got string) bool {
	if strings.Contains(want, ";") {
		return strings.EqualFold(strings.ReplaceAll(want, " ", ""), strings.ReplaceAll(got, " ", ""))
	}
	mt, _, err := mime.ParseMediaType(got)
	if err != nil {
		return false
	}
	return strings.EqualFold(mt, want)
}

// Body expects the whole body text to satisfy expected.
func (b *Builder) Body(expected any) *Builder {
	return b.simple(KindBody, "", expected, func(r *executor.Response) (any, error) { return r.String(), nil })
}

// RootPath sets the prefix for later Path calls. An empty root clears it.
func (b *Builder) RootPath(root string) *Builder {
	b.root = root
	return b
}

// AppendRoot extends the current root.
func (b *Builder) AppendRoot(segment string) *Builder {
	b.root = gpath.JoinRoot(b.root, segment)
	return b
}

// Path expects the value at a path expression, resolved under the current
// root, to satisfy expected: a plain value, a Matcher or a DynamicMatcher.
func (b *Builder) Path(expr string, expected any) *Builder {
	full := gpath.JoinRoot(b.root, expr)
	return b.simple(KindPath, full, expected, func(r *executor.Response) (any, error) {
		return r.Path(full)
	})
}

// NoPath expects expr, resolved under the current root, not to resolve.
func (b *Builder) NoPath(expr string) *Builder {
	full := gpath.JoinRoot(b.root, expr)
	return b.add(KindPath, full, "no value", func(r *executor.Response) (any, matcher.Matcher, error) {
		v, err := r.Path(full)
		var nf *gpath.PathNotFoundError
		if errors.As(err, &nf) {
			return nil, matcher.Func("no value", func(any) bool { return true }), nil
		}
		if err != nil {
			return nil, nil, err
		}
		return v, matcher.Func("no value", func(any) bool { return false }), nil
	})
}

// DynamicPath is Path with a matcher built from the response.
func (b *Builder) DynamicPath(expr string, dm DynamicMatcher) *Builder { return b.Path(expr, dm) }

// JMESPath expects the result of a JMESPath query over the body.
func (b *Builder) JMESPath(expr string, expected any) *Builder {
	compiled, compileErr := jmespath.Compile(expr)
	return b.simple(KindJMESPath, expr, expected, func(r *executor.Response) (any, error) {
		if compileErr != nil {
			return nil, fmt.Errorf("jmespath %q: %w", expr, compileErr)
		}
		doc, err := r.Document()
		if err != nil {
			return nil, err
		}
		return compiled.Search(doc.Tree())
	})
}

// Schema expects the body to validate against a JSON schema document.
func (b *Builder) Schema(schemaJSON string) *Builder {
	sch, compileErr := compileSchema(schemaJSON)
	return b.schema("inline", sch, compileErr)
}

// SchemaFile is Schema with the schema read from a file.
func (b *Builder) SchemaFile(path string) *Builder {
	data, err := os.ReadFile(path)
	if err != nil {
		return b.schema(path, nil, fmt.Errorf("read schema: %w", err))
	}
	sch, compileErr := compileSchema(string(data))
	return b.schema(path, sch, compileErr)
}

const schemaResource = "schema.json"

func compileSchema(doc string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaResource, strings.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	sch, err := c.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return sch, nil
}

func (b *Builder) schema(source string, sch *jsonschema.Schema, compileErr error) *Builder {
	desc := "a body matching JSON schema " + source
	return b.add(KindSchema, source, desc, func(r *executor.Response) (any, matcher.Matcher, error) {
		if compileErr != nil {
			return nil, nil, compileErr
		}
		var v any
		if err := json.Unmarshal(r.Body(), &v); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", gpath.ErrInvalidDocument, err)
		}
		verr := sch.Validate(v)
		actual := "valid"
		if verr != nil {
			actual = verr.Error()
		}
		return actual, matcher.Func(desc, func(any) bool { return verr == nil }), nil
	})
}

// Time expects the elapsed time in milliseconds to satisfy expected.
func (b *Builder) Time(expected any) *Builder {
	return b.TimeIn(time.Millisecond, expected)
}

// TimeIn expects the elapsed time, truncated to unit, to satisfy expected.
func (b *Builder) TimeIn(unit time.Duration, expected any) *Builder {
	return b.simple(KindTime, unit.String(), expected, func(r *executor.Response) (any, error) { return r.TimeIn(unit), nil })
}

// TimeUnder expects the exchange to take less than d.
func (b *Builder) TimeUnder(d time.Duration) *Builder {
	m := matcher.Func("less than "+d.String(), func(a any) bool {
		elapsed, ok := a.(time.Duration)
		return ok && elapsed < d
	})
	return b.simple(KindTime, "", m, func(r *executor.Response) (any, error) { return r.Elapsed(), nil })
}
