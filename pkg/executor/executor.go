// Package executor sends RequestSpecs over HTTP and captures the responses.
package executor

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/apicontract/internal/common"
	"github.com/loykin/apicontract/internal/httpc"
	"github.com/loykin/apicontract/pkg/spec"
)

// RedirectPolicy selects how 3xx responses are handled.
type RedirectPolicy int

const (
	// FollowRedirects follows up to MaxRedirects hops (10 by default).
	FollowRedirects RedirectPolicy = iota
	// NoRedirects returns the 3xx response as captured.
	NoRedirects
)

// Config is fixed when the Executor is built.
type Config struct {
	BaseURI  string
	BasePath string
	// Defaults is merged under every request; the request wins on conflicts.
	Defaults       spec.RequestSpec
	Timeout        time.Duration
	RedirectPolicy RedirectPolicy
	MaxRedirects   int
	Insecure       bool
	MinTLSVersion  string
	MaxTLSVersion  string
	Logger         *common.Logger
}

// Executor runs requests with a fixed configuration. It may be reused for
// any number of sequential requests.
type Executor struct {
	defaults spec.RequestSpec
	timeout  time.Duration
	client   *resty.Client
	logger   *common.Logger
}

// New builds an Executor from cfg.
func New(cfg Config) *Executor {
	base := spec.Given().BaseURI(cfg.BaseURI).BasePath(cfg.BasePath).Build()
	var tlsCfg *tls.Config
	if cfg.Insecure || cfg.MinTLSVersion != "" || cfg.MaxTLSVersion != "" {
		tlsCfg = httpc.TLSConfig(cfg.Insecure, cfg.MinTLSVersion, cfg.MaxTLSVersion)
	}
	h := &httpc.Httpc{
		TlsConfig:    tlsCfg,
		NoRedirects:  cfg.RedirectPolicy == NoRedirects,
		MaxRedirects: cfg.MaxRedirects,
	}
	logger := cfg.Logger
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Executor{
		defaults: spec.Merge(base, cfg.Defaults),
		timeout:  cfg.Timeout,
		client:   h.New(),
		logger:   logger.WithComponent("executor"),
	}
}

// Defaults returns the spec merged under every request.
func (e *Executor) Defaults() spec.RequestSpec { return e.defaults }

// Execute sends rs and captures the response. Any status code is a valid
// response; only failures to obtain one are errors, reported as
// *TransportError. A request without an absolute URL fails with
// ErrUnresolvableURL.
func (e *Executor) Execute(ctx context.Context, rs spec.RequestSpec) (*Response, error) {
	merged := spec.Merge(e.defaults, rs)
	method := merged.Method()
	target, err := ResolveURL(merged)
	if err != nil {
		return nil, err
	}
	log := e.logger.WithRequest(method, target)

	timeout := merged.Timeout()
	if timeout <= 0 {
		timeout = e.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req := e.client.R().SetContext(ctx)
	if err := applyRequest(req, merged); err != nil {
		return nil, err
	}

	log.Debug("sending request")
	start := time.Now()
	resp, err := req.Execute(method, target)
	elapsed := time.Since(start)
	if err != nil {
		te := &TransportError{Method: method, URL: target, Timeout: isTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded), Err: err}
		log.Warn("request failed", "error", err, "timeout", te.Timeout, "elapsed", elapsed)
		return nil, te
	}

	raw := resp.RawResponse
	out := NewResponse(Capture{
		Method:     method,
		URL:        target,
		StatusCode: resp.StatusCode(),
		Proto:      raw.Proto,
		Status:     raw.Status,
		Header:     resp.Header(),
		Body:       resp.Body(),
		Elapsed:    elapsed,
	})
	log.Debug("request completed", "status", out.StatusCode(), "elapsed", elapsed)
	return out, nil
}

func applyRequest(req *resty.Request, rs spec.RequestSpec) error {
	rs.Headers().Each(func(k string, values []string) {
		if len(values) == 0 {
			req.Header.Set(k, "")
			return
		}
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	})
	rs.Cookies().Each(func(k string, values []string) {
		v := ""
		if len(values) > 0 {
			v = values[len(values)-1]
		}
		req.SetCookie(&http.Cookie{Name: k, Value: v})
	})

	ct := rs.ContentType()
	form := rs.EffectiveForm()
	body := rs.Body()
	switch {
	case form.Len() > 0 && body != nil:
		return fmt.Errorf("executor: request has both a body and form params")
	case form.Len() > 0:
		if ct == "" {
			ct = "application/x-www-form-urlencoded; charset=UTF-8"
		}
		req.SetBody(EncodeParams(form))
	case body != nil:
		switch b := body.(type) {
		case []byte:
			req.SetBody(b)
		case string:
			req.SetBody([]byte(b))
		default:
			data, err := json.Marshal(b)
			if err != nil {
				return fmt.Errorf("executor: encode body: %w", err)
			}
			if ct == "" {
				ct = "application/json"
			}
			req.SetBody(data)
		}
	}
	if ct != "" {
		req.SetHeader("Content-Type", ct)
	}
	return nil
}

// ResolveURL combines base URI, base path and path (or the absolute URL),
// substitutes {name} path params and appends query params in order.
func ResolveURL(rs spec.RequestSpec) (string, error) {
	target := rs.URL()
	if target == "" {
		p := rs.Path()
		if isAbsolute(p) {
			target = p
		} else {
			base := strings.TrimRight(rs.BaseURI(), "/")
			if base == "" {
				return "", fmt.Errorf("%w: no base URI for path %q", ErrUnresolvableURL, p)
			}
			target = base + joinPath(rs.BasePath(), p)
		}
	}
	rs.PathParams().Each(func(k string, values []string) {
		v := ""
		if len(values) > 0 {
			v = values[0]
		}
		target = strings.ReplaceAll(target, "{"+k+"}", url.PathEscape(v))
	})
	u, err := url.Parse(target)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrUnresolvableURL, target)
	}
	if q := EncodeParams(rs.EffectiveQuery()); q != "" {
		if u.RawQuery != "" {
			u.RawQuery += "&" + q
		} else {
			u.RawQuery = q
		}
	}
	return u.String(), nil
}

func isAbsolute(p string) bool {
	l := strings.ToLower(p)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func joinPath(basePath, p string) string {
	out := ""
	for _, seg := range []string{basePath, p} {
		seg = strings.Trim(seg, "/")
		if seg != "" {
			out += "/" + seg
		}
	}
	if strings.HasSuffix(p, "/") && out != "" {
		out += "/"
	}
	return out
}

// EncodeParams url-encodes params in insertion order. A key with no values
// is written bare ("flag" rather than "flag=").
func EncodeParams(p spec.Params) string {
	var b strings.Builder
	p.Each(func(k string, values []string) {
		ek := url.QueryEscape(k)
		if len(values) == 0 {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(ek)
			return
		}
		for _, v := range values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(ek)
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	})
	return b.String()
}

// Request builds and executes a request for method and path in one call.
func (e *Executor) Request(ctx context.Context, method, path string, b *spec.Builder) (*Response, error) {
	if b == nil {
		b = spec.Given()
	}
	return e.Execute(ctx, b.Method(method).Path(path).Build())
}

func (e *Executor) Get(ctx context.Context, path string, b *spec.Builder) (*Response, error) {
	return e.Request(ctx, http.MethodGet, path, b)
}

func (e *Executor) Post(ctx context.Context, path string, b *spec.Builder) (*Response, error) {
	return e.Request(ctx, http.MethodPost, path, b)
}

func (e *Executor) Put(ctx context.Context, path string, b *spec.Builder) (*Response, error) {
	return e.Request(ctx, http.MethodPut, path, b)
}

func (e *Executor) Patch(ctx context.Context, path string, b *spec.Builder) (*Response, error) {
	return e.Request(ctx, http.MethodPatch, path, b)
}

func (e *Executor) Delete(ctx context.Context, path string, b *spec.Builder) (*Response, error) {
	return e.Request(ctx, http.MethodDelete, path, b)
}

func (e *Executor) Head(ctx context.Context, path string, b *spec.Builder) (*Response, error) {
	return e.Request(ctx, http.MethodHead, path, b)
}

func (e *Executor) Options(ctx context.Context, path string, b *spec.Builder) (*Response, error) {
	return e.Request(ctx, http.MethodOptions, path, b)
}
