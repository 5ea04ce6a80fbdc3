// Package spec holds immutable request specifications and the fluent
// builder used to compose them.
package spec

import (
	"bytes"
	"net/http"
	"strings"
	"time"
)

// RequestSpec describes one HTTP request. It is a value: getters return
// copies, and composing specs never modifies an existing one.
type RequestSpec struct {
	method      string
	url         string
	baseURI     string
	basePath    string
	path        string
	query       Params
	form        Params
	params      Params
	pathParams  Params
	headers     Params
	cookies     Params
	contentType string
	body        any
	timeout     time.Duration
}

// Method returns the upper-cased HTTP method, GET when unset.
func (r RequestSpec) Method() string {
	if r.method == "" {
		return http.MethodGet
	}
	return r.method
}

// URL returns the absolute URL if one was set with Builder.URL.
func (r RequestSpec) URL() string         { return r.url }
func (r RequestSpec) BaseURI() string     { return r.baseURI }
func (r RequestSpec) BasePath() string    { return r.basePath }
func (r RequestSpec) Path() string        { return r.path }
func (r RequestSpec) QueryParams() Params { return r.query }
func (r RequestSpec) FormParams() Params  { return r.form }

// Params returns the generic parameters whose destination depends on the method.
func (r RequestSpec) Params() Params         { return r.params }
func (r RequestSpec) PathParams() Params     { return r.pathParams }
func (r RequestSpec) Headers() Params        { return r.headers }
func (r RequestSpec) Cookies() Params        { return r.cookies }
func (r RequestSpec) ContentType() string    { return r.contentType }
func (r RequestSpec) Timeout() time.Duration { return r.timeout }

// Body returns the request body. Byte slices are copied.
func (r RequestSpec) Body() any {
	if b, ok := r.body.([]byte); ok {
		return bytes.Clone(b)
	}
	return r.body
}

// ParamsGoToQuery reports whether generic params are sent in the query
// string for the spec's method. POST, PUT and PATCH send them as form fields.
func (r RequestSpec) ParamsGoToQuery() bool {
	switch r.Method() {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return false
	}
	return true
}

// EffectiveQuery returns the query params with generic params folded in
// when the method routes them to the query string.
func (r RequestSpec) EffectiveQuery() Params {
	if r.ParamsGoToQuery() {
		return MergeParams(r.query, r.params)
	}
	return r.query
}

// EffectiveForm returns the form params with generic params folded in when
// the method routes them to the body.
func (r RequestSpec) EffectiveForm() Params {
	if !r.ParamsGoToQuery() {
		return MergeParams(r.form, r.params)
	}
	return r.form
}

// Merge overlays overlay onto base. Scalar fields set on the overlay win.
// Multi-valued fields merge per key according to the overlay key's mode.
// Neither input is modified.
func Merge(base, overlay RequestSpec) RequestSpec {
	out := base
	if overlay.method != "" {
		out.method = overlay.method
	}
	if overlay.url != "" {
		out.url = overlay.url
	}
	if overlay.baseURI != "" {
		out.baseURI = overlay.baseURI
	}
	if overlay.basePath != "" {
		out.basePath = overlay.basePath
	}
	if overlay.path != "" {
		out.path = overlay.path
	}
	if overlay.contentType != "" {
		out.contentType = overlay.contentType
	}
	if overlay.body != nil {
		out.body = overlay.Body()
	}
	if overlay.timeout > 0 {
		out.timeout = overlay.timeout
	}
	out.query = MergeParams(base.query, overlay.query)
	out.form = MergeParams(base.form, overlay.form)
	out.params = MergeParams(base.params, overlay.params)
	out.pathParams = MergeParams(base.pathParams, overlay.pathParams)
	out.headers = MergeParams(base.headers, overlay.headers)
	out.cookies = MergeParams(base.cookies, overlay.cookies)
	return out
}

// String renders "METHOD target" for logs.
func (r RequestSpec) String() string {
	target := r.url
	if target == "" {
		target = strings.TrimRight(r.baseURI, "/") + r.basePath + r.path
	}
	return r.Method() + " " + target
}
