package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/loykin/apicontract/internal/common"
	"github.com/loykin/apicontract/pkg/spec"
)

func newEcho(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cookies := map[string]string{}
		for _, c := range r.Cookies() {
			cookies[c.Name] = c.Value
		}
		http.SetCookie(w, &http.Cookie{
			Name:     "__cfduid",
			Value:    "d41d8cd98f00",
			Domain:   "example.test",
			Path:     "/",
			Expires:  time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
			HttpOnly: true,
		})
		w.Header().Set("X-Powered-By", "Express")
		w.Header().Add("Vary", "Origin")
		w.Header().Add("Vary", "Accept-Encoding")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		status := http.StatusOK
		if r.URL.Path == "/missing" {
			status = http.StatusNotFound
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"method":       r.Method,
			"path":         r.URL.Path,
			"query":        r.URL.RawQuery,
			"body":         string(body),
			"content_type": r.Header.Get("Content-Type"),
			"accept":       r.Header.Values("Accept"),
			"cookies":      cookies,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExecute_CapturesResponse(t *testing.T) {
	srv := newEcho(t)
	ex := New(Config{BaseURI: srv.URL})

	rs := spec.Given().
		Get("/photos/{id}").
		PathParam("id", 1).
		QueryParam("b", "2").
		QueryParam("a", "1", "x y").
		QueryParam("flag").
		AddHeader("Accept", "application/json", "text/plain").
		Cookie("session", "s1").
		Build()
	resp, err := ex.Execute(context.Background(), rs)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.StatusCode() != 200 || resp.StatusLine() != "HTTP/1.1 200 OK" {
		t.Fatalf("status = %d %q", resp.StatusCode(), resp.StatusLine())
	}
	if got, _ := resp.PathString("path"); got != "/photos/1" {
		t.Fatalf("path = %q", got)
	}
	if got, _ := resp.PathString("query"); got != "b=2&a=1&a=x+y&flag" {
		t.Fatalf("query = %q", got)
	}
	if got, _ := resp.PathString("cookies.session"); got != "s1" {
		t.Fatalf("cookie = %q", got)
	}
	if got, _ := resp.Path("accept"); len(got.([]any)) != 2 {
		t.Fatalf("accept = %#v", got)
	}
	if resp.Header("vary") != "Origin, Accept-Encoding" {
		t.Fatalf("vary = %q", resp.Header("vary"))
	}
	if resp.ContentType() != "application/json; charset=utf-8" {
		t.Fatalf("content type = %q", resp.ContentType())
	}
	hs := resp.Headers()
	for i := 1; i < len(hs); i++ {
		if hs[i-1].Name > hs[i].Name {
			t.Fatalf("headers not ordered: %v", hs)
		}
	}
	c, ok := resp.Cookie("__cfduid")
	if !ok || c.Value != "d41d8cd98f00" || c.Domain != "example.test" || !c.HttpOnly {
		t.Fatalf("cookie = %+v", c)
	}
	if !c.Expires.Equal(time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("expires = %v", c.Expires)
	}
	if resp.CookieValues()["__cfduid"] != "d41d8cd98f00" {
		t.Fatalf("cookie values = %v", resp.CookieValues())
	}
	if resp.Elapsed() <= 0 || resp.TimeIn(time.Nanosecond) <= 0 {
		t.Fatalf("elapsed not recorded")
	}
	if resp.Method() != http.MethodGet || !strings.HasPrefix(resp.URL(), srv.URL+"/photos/1?") {
		t.Fatalf("request identity = %s %s", resp.Method(), resp.URL())
	}
}

func TestExecute_NonSuccessIsAResponse(t *testing.T) {
	srv := newEcho(t)
	ex := New(Config{BaseURI: srv.URL})
	resp, err := ex.Get(context.Background(), "/missing", nil)
	if err != nil {
		t.Fatalf("non-2xx must not be an error: %v", err)
	}
	if resp.StatusCode() != 404 || resp.StatusLine() != "HTTP/1.1 404 Not Found" {
		t.Fatalf("status = %d %q", resp.StatusCode(), resp.StatusLine())
	}
}

func TestExecute_FormAndParams(t *testing.T) {
	srv := newEcho(t)
	ex := New(Config{BaseURI: srv.URL})
	resp, err := ex.Post(context.Background(), "/restnames/countries", spec.Given().FormParam("name", "Jersey").Param("text", "lands").FormParam("empty"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	body, _ := resp.PathString("body")
	if body != "name=Jersey&empty&text=lands" {
		t.Fatalf("form body = %q", body)
	}
	ct, _ := resp.PathString("content_type")
	if !strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		t.Fatalf("content type = %q", ct)
	}
	q, _ := resp.PathString("query")
	if q != "" {
		t.Fatalf("params leaked into query: %q", q)
	}
}

func TestExecute_JSONBody(t *testing.T) {
	srv := newEcho(t)
	ex := New(Config{BaseURI: srv.URL})
	rs := spec.Given().Post("/posts").Body(map[string]any{"title": "foo", "userId": 1}).Build()
	resp, err := ex.Execute(context.Background(), rs)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	body, _ := resp.PathString("body")
	if body != `{"title":"foo","userId":1}` {
		t.Fatalf("body = %q", body)
	}
	ct, _ := resp.PathString("content_type")
	if ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestExecute_BodyAndFormConflict(t *testing.T) {
	ex := New(Config{BaseURI: "http://127.0.0.1:1"})
	_, err := ex.Execute(context.Background(), spec.Given().Post("/x").Body("raw").FormParam("a", "b").Build())
	if err == nil {
		t.Fatalf("expected error for body with form params")
	}
	var te *TransportError
	if errors.As(err, &te) {
		t.Fatalf("conflict must not be a transport error")
	}
}

func TestExecute_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ex := New(Config{BaseURI: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := ex.Get(context.Background(), "/slow", nil)
	var te *TransportError
	if !errors.As(err, &te) || !te.Timeout {
		t.Fatalf("expected timeout TransportError, got %v", err)
	}
	if !IsTimeout(err) {
		t.Fatalf("IsTimeout = false")
	}

	// a per-request timeout overrides the executor default
	ex = New(Config{BaseURI: srv.URL})
	_, err = ex.Execute(context.Background(), spec.Given().Get("/slow").Timeout(10*time.Millisecond).Build())
	if !IsTimeout(err) {
		t.Fatalf("expected per-request timeout, got %v", err)
	}
}

func TestExecute_TimeoutUnreachableHost(t *testing.T) {
	// 10.255.255.1 is non-routable, so the dial hangs until the deadline.
	ex := New(Config{})
	start := time.Now()
	_, err := ex.Execute(context.Background(), spec.Given().Get("http://10.255.255.1/").Timeout(time.Millisecond).Build())
	if err == nil {
		t.Fatalf("expected error for unreachable host")
	}
	if !IsTimeout(err) && strings.Contains(err.Error(), "unreachable") {
		t.Skipf("no route in this environment: %v", err)
	}
	if !IsTimeout(err) {
		t.Fatalf("expected timeout TransportError, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("deadline not honoured, took %s", elapsed)
	}
}

func TestExecute_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(Config{}).Execute(context.Background(), spec.Given().URL(url+"/posts").Build())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Timeout || te.Method != http.MethodGet || te.URL != url+"/posts" {
		t.Fatalf("unexpected transport error: %+v", te)
	}
}

func TestExecute_Unresolvable(t *testing.T) {
	_, err := New(Config{}).Execute(context.Background(), spec.Given().Get("/posts").Build())
	if !errors.Is(err, ErrUnresolvableURL) {
		t.Fatalf("expected ErrUnresolvableURL, got %v", err)
	}
}

func TestExecute_Redirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) { http.Redirect(w, r, "/new", http.StatusMovedPermanently) })
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "moved") })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := New(Config{BaseURI: srv.URL}).Get(context.Background(), "/old", nil)
	if err != nil || resp.StatusCode() != 200 || resp.String() != "moved" {
		t.Fatalf("follow: %v %v", resp, err)
	}
	resp, err = New(Config{BaseURI: srv.URL, RedirectPolicy: NoRedirects}).Get(context.Background(), "/old", nil)
	if err != nil || resp.StatusCode() != http.StatusMovedPermanently || resp.Header("Location") != "/new" {
		t.Fatalf("no redirects: %v %v", resp, err)
	}
}

func TestExecute_DefaultsAndBasePath(t *testing.T) {
	srv := newEcho(t)
	defaults := spec.Given().Header("Accept", "application/json").QueryParam("lang", "en")
	ex := New(Config{BaseURI: srv.URL, BasePath: "/api/", Defaults: defaults.Build()})
	// later builder changes do not leak into the executor
	defaults.QueryParam("lang", "fr")

	resp, err := ex.Get(context.Background(), "comments", spec.Given().QueryParam("postId", 1))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if p, _ := resp.PathString("path"); p != "/api/comments" {
		t.Fatalf("path = %q", p)
	}
	if q, _ := resp.PathString("query"); q != "lang=en&postId=1" {
		t.Fatalf("query = %q", q)
	}
	if a, _ := resp.PathString("accept[0]"); a != "application/json" {
		t.Fatalf("accept = %q", a)
	}
}

func TestExecute_ArbitraryMethod(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer srv.Close()
	resp, err := New(Config{BaseURI: srv.URL}).Request(context.Background(), "CONNECT", "/tunnel", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.Header("X-Method") != "CONNECT" || resp.StatusCode() != http.StatusMethodNotAllowed {
		t.Fatalf("got %s %d", resp.Header("X-Method"), resp.StatusCode())
	}
}

func TestLogResponse(t *testing.T) {
	var buf bytes.Buffer
	logger := common.NewLoggerTo(&buf, common.LogLevelInfo)
	h := http.Header{}
	h.Set("X-Api-Key", "secret-key")
	h.Set("Content-Type", "text/plain")
	resp := NewResponse(Capture{Method: "GET", URL: "http://x/posts", StatusCode: 200, Header: h, Body: []byte("hello")})

	if LogResponse(logger, resp, LogOptions{When: IfError}) {
		t.Fatalf("IfError must not log a 200")
	}
	if buf.Len() != 0 {
		t.Fatalf("unexpected output: %s", buf.String())
	}
	if !LogResponse(logger, resp, LogOptions{When: IfStatus(200)}) {
		t.Fatalf("IfStatus(200) should log")
	}
	out := buf.String()
	for _, want := range []string{"status_line=\"HTTP/1.1 200 OK\"", "body=hello", common.MaskedValue} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q: %s", want, out)
		}
	}
	if strings.Contains(out, "secret-key") {
		t.Fatalf("api key leaked: %s", out)
	}

	buf.Reset()
	LogResponse(logger, resp, LogOptions{Detail: LogHeaders})
	if strings.Contains(buf.String(), "body=") {
		t.Fatalf("headers-only log included body: %s", buf.String())
	}
}

func TestResolveURL(t *testing.T) {
	cases := []struct {
		rs   spec.RequestSpec
		want string
	}{
		{spec.Given().BaseURI("http://h/").Path("/posts").Build(), "http://h/posts"},
		{spec.Given().BaseURI("http://h").BasePath("v1").Path("images/{size}/{color}").PathParam("size", "150").PathParam("color", "92c952").Build(), "http://h/v1/images/150/92c952"},
		{spec.Given().URL("http://h/search?x=1").QueryParam("text", "lands").Build(), "http://h/search?x=1&text=lands"},
		{spec.Given().BaseURI("http://ignored").Path("https://abs/p").Build(), "https://abs/p"},
	}
	for _, tc := range cases {
		got, err := ResolveURL(tc.rs)
		if err != nil || got != tc.want {
			t.Errorf("ResolveURL(%s) = %q, %v; want %q", tc.rs, got, err, tc.want)
		}
	}
}
