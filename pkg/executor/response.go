package executor

import (
	"bytes"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/loykin/apicontract/pkg/gpath"
)

// Header is one response header line. Repeated headers appear once per value.
type Header struct {
	Name  string
	Value string
}

// Cookie is a response cookie with its attributes.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	MaxAge   int
	Secure   bool
	HttpOnly bool
	SameSite string
}

// Response is the captured result of one exchange. It is read-only.
type Response struct {
	method      string
	url         string
	statusCode  int
	statusLine  string
	headers     []Header
	cookies     []Cookie
	contentType string
	body        []byte
	elapsed     time.Duration

	docOnce sync.Once
	doc     *gpath.Document
	docErr  error
}

// Capture holds the raw parts NewResponse assembles into a Response.
type Capture struct {
	Method     string
	URL        string
	StatusCode int
	// Proto defaults to HTTP/1.1.
	Proto   string
	Status  string
	Header  http.Header
	Body    []byte
	Elapsed time.Duration
}

// NewResponse builds a Response from raw parts. Headers are ordered by name
// since http.Header does not keep wire order; values keep their order.
func NewResponse(c Capture) *Response {
	proto := c.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}
	status := c.Status
	if status == "" {
		status = strings.TrimSpace(http.StatusText(c.StatusCode))
		if status != "" {
			status = strconv.Itoa(c.StatusCode) + " " + status
		} else {
			status = strconv.Itoa(c.StatusCode)
		}
	}
	names := make([]string, 0, len(c.Header))
	for k := range c.Header {
		names = append(names, k)
	}
	sort.Strings(names)
	var headers []Header
	for _, k := range names {
		for _, v := range c.Header[k] {
			headers = append(headers, Header{Name: k, Value: v})
		}
	}
	raw := (&http.Response{Header: c.Header}).Cookies()
	cookies := make([]Cookie, 0, len(raw))
	for _, ck := range raw {
		cookies = append(cookies, Cookie{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			Expires:  ck.Expires,
			MaxAge:   ck.MaxAge,
			Secure:   ck.Secure,
			HttpOnly: ck.HttpOnly,
			SameSite: sameSite(ck.SameSite),
		})
	}
	return &Response{
		method:      c.Method,
		url:         c.URL,
		statusCode:  c.StatusCode,
		statusLine:  proto + " " + status,
		headers:     headers,
		cookies:     cookies,
		contentType: c.Header.Get("Content-Type"),
		body:        bytes.Clone(c.Body),
		elapsed:     c.Elapsed,
	}
}

func sameSite(s http.SameSite) string {
	switch s {
	case http.SameSiteLaxMode:
		return "Lax"
	case http.SameSiteStrictMode:
		return "Strict"
	case http.SameSiteNoneMode:
		return "None"
	}
	return ""
}

// Method and URL identify the request that produced the response.
func (r *Response) Method() string { return r.method }
func (r *Response) URL() string    { return r.url }

func (r *Response) StatusCode() int { return r.statusCode }

// StatusLine returns e.g. "HTTP/1.1 200 OK".
func (r *Response) StatusLine() string { return r.statusLine }

// Headers returns every header line ordered by name.
func (r *Response) Headers() []Header { return append([]Header(nil), r.headers...) }

// HeaderValues returns all values of a header, matched case-insensitively.
func (r *Response) HeaderValues(name string) []string {
	var out []string
	for _, h := range r.headers {
		if strings.EqualFold(h.Name, name) {
			out = append(out, h.Value)
		}
	}
	return out
}

// HasHeader reports whether the header is present.
func (r *Response) HasHeader(name string) bool { return len(r.HeaderValues(name)) > 0 }

// Header returns the values of a header joined with ", ", or "" when absent.
func (r *Response) Header(name string) string {
	return strings.Join(r.HeaderValues(name), ", ")
}

// Cookies returns the cookies set by the response with their attributes.
func (r *Response) Cookies() []Cookie { return append([]Cookie(nil), r.cookies...) }

// Cookie returns the first cookie with the given name.
func (r *Response) Cookie(name string) (Cookie, bool) {
	for _, c := range r.cookies {
		if c.Name == name {
			return c, true
		}
	}
	return Cookie{}, false
}

// CookieValues maps cookie names to values; the last cookie of a name wins.
func (r *Response) CookieValues() map[string]string {
	out := make(map[string]string, len(r.cookies))
	for _, c := range r.cookies {
		out[c.Name] = c.Value
	}
	return out
}

func (r *Response) ContentType() string { return r.contentType }

// Body returns a copy of the raw body.
func (r *Response) Body() []byte { return bytes.Clone(r.body) }

// String returns the body as text.
func (r *Response) String() string { return string(r.body) }

// Elapsed is the wall-clock duration of the exchange, body read included.
func (r *Response) Elapsed() time.Duration { return r.elapsed }

// Time returns the elapsed time in milliseconds.
func (r *Response) Time() int64 { return r.elapsed.Milliseconds() }

// TimeIn returns the elapsed time in the given unit, truncated.
func (r *Response) TimeIn(unit time.Duration) int64 {
	if unit <= 0 {
		return int64(r.elapsed)
	}
	return int64(r.elapsed / unit)
}

// Document parses the body according to its content type. The result is
// cached, so repeated path queries parse once.
func (r *Response) Document() (*gpath.Document, error) {
	r.docOnce.Do(func() {
		r.doc, r.docErr = gpath.Parse(r.contentType, r.body)
	})
	return r.doc, r.docErr
}

// JSONPath is Document under the name used by fluent extract chains.
func (r *Response) JSONPath() (*gpath.Document, error) { return r.Document() }

// Path evaluates a path expression against the parsed body.
func (r *Response) Path(expr string) (any, error) {
	doc, err := r.Document()
	if err != nil {
		return nil, err
	}
	return doc.Get(expr)
}

// PathString evaluates expr and renders the result as a string.
func (r *Response) PathString(expr string) (string, error) {
	doc, err := r.Document()
	if err != nil {
		return "", err
	}
	return doc.GetString(expr)
}
