package spec

import (
	"bytes"
	"net/http"
	"strings"
	"time"
)

// Builder accumulates request settings. Build snapshots the current state;
// later builder calls do not affect specs already built.
type Builder struct {
	r RequestSpec
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{r: RequestSpec{headers: foldedParams()}}
}

// Given is NewBuilder, named for fluent given/when/then chains.
func Given() *Builder { return NewBuilder() }

func (b *Builder) Method(m string) *Builder {
	b.r.method = strings.ToUpper(strings.TrimSpace(m))
	return b
}

// URL sets an absolute URL, which takes precedence over base URI and path.
func (b *Builder) URL(u string) *Builder      { b.r.url = u; return b }
func (b *Builder) BaseURI(u string) *Builder  { b.r.baseURI = u; return b }
func (b *Builder) BasePath(p string) *Builder { b.r.basePath = p; return b }
func (b *Builder) Path(p string) *Builder     { b.r.path = p; return b }

func (b *Builder) Timeout(d time.Duration) *Builder { b.r.timeout = d; return b }

// Header sets a header, replacing earlier values for the same name.
func (b *Builder) Header(name string, value any) *Builder {
	b.r.headers = b.r.headers.With(name, Scalar, stringify([]any{value})...)
	return b
}

// AddHeader appends values to a header, keeping earlier ones.
func (b *Builder) AddHeader(name string, values ...any) *Builder {
	b.r.headers = b.r.headers.With(name, Multi, stringify(values)...)
	return b
}

// Headers sets several headers. Names are applied in sorted order so the
// result does not depend on map iteration.
func (b *Builder) Headers(h map[string]string) *Builder {
	for _, k := range sortedKeys(h) {
		b.Header(k, h[k])
	}
	return b
}

// QueryParam appends values to a query parameter. With no values the key is
// sent without a value.
func (b *Builder) QueryParam(key string, values ...any) *Builder {
	b.r.query = b.r.query.With(key, Multi, stringify(values)...)
	return b
}

// QueryParams adds several single-valued query parameters in key order.
func (b *Builder) QueryParams(q map[string]string) *Builder {
	for _, k := range sortedKeys(q) {
		b.QueryParam(k, q[k])
	}
	return b
}

// FormParam appends values to a form field.
func (b *Builder) FormParam(key string, values ...any) *Builder {
	b.r.form = b.r.form.With(key, Multi, stringify(values)...)
	return b
}

// Param appends values to a generic parameter: query string for GET-like
// methods, form body for POST, PUT and PATCH.
func (b *Builder) Param(key string, values ...any) *Builder {
	b.r.params = b.r.params.With(key, Multi, stringify(values)...)
	return b
}

// PathParam substitutes {key} in the path.
func (b *Builder) PathParam(key string, value any) *Builder {
	b.r.pathParams = b.r.pathParams.With(key, Scalar, stringify([]any{value})...)
	return b
}

func (b *Builder) Cookie(name string, value any) *Builder {
	b.r.cookies = b.r.cookies.With(name, Scalar, stringify([]any{value})...)
	return b
}

func (b *Builder) ContentType(ct string) *Builder { b.r.contentType = ct; return b }

// Body sets the payload: []byte and string are sent as is, anything else is
// encoded as JSON.
func (b *Builder) Body(body any) *Builder {
	if raw, ok := body.([]byte); ok {
		body = bytes.Clone(raw)
	}
	b.r.body = body
	return b
}

// Spec merges other into the builder, with other taking precedence.
func (b *Builder) Spec(other RequestSpec) *Builder {
	b.r = Merge(b.r, other)
	return b
}

// Build returns the accumulated spec.
func (b *Builder) Build() RequestSpec {
	out := b.r
	out.body = b.r.Body()
	return out
}

// convenience shortcuts that set method and path at once

func (b *Builder) Get(path string) *Builder     { return b.Method(http.MethodGet).Path(path) }
func (b *Builder) Post(path string) *Builder    { return b.Method(http.MethodPost).Path(path) }
func (b *Builder) Put(path string) *Builder     { return b.Method(http.MethodPut).Path(path) }
func (b *Builder) Patch(path string) *Builder   { return b.Method(http.MethodPatch).Path(path) }
func (b *Builder) Delete(path string) *Builder  { return b.Method(http.MethodDelete).Path(path) }
func (b *Builder) Head(path string) *Builder    { return b.Method(http.MethodHead).Path(path) }
func (b *Builder) Options(path string) *Builder { return b.Method(http.MethodOptions).Path(path) }
