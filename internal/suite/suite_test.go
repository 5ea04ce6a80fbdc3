package suite

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loykin/apicontract/internal/common"
	"github.com/loykin/apicontract/internal/store"
	"github.com/loykin/apicontract/pkg/env"
	"github.com/loykin/apicontract/pkg/executor"
	"github.com/loykin/apicontract/pkg/fixture"
	"github.com/loykin/apicontract/pkg/props"
	"github.com/loykin/apicontract/pkg/verify"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

const postsSuite = `
name: posts
env:
  post: "8"
cases:
  - name: get post
    request:
      url: "{{.env.base}}/posts/{{.env.post}}"
    expect:
      status: 200
      content_type: application/json
      headers:
        X-Powered-By: Express
      cookies:
        __cfduid:
          exists: true
      body:
        - path: id
          equals: 8
        - path: userId
          one_of: [1, 2]
        - path: title
          starts_with: dolorem
        - path: missing
          exists: false
    extract:
      userId: userId
    properties:
      values:
        post.title: title
  - name: comments of user
    request:
      url: "{{.env.base}}/comments"
      queries:
        - name: postId
          value: "{{.env.userId}}"
    expect:
      status: [200, 304]
      body:
        - path: size()
          equals: 3
        - path: "[0].email"
          contains: "@"
      jmespath:
        - path: "[0].postId"
          equals: "{{.env.userId}}"
  - name: not yet
    skip: true
    request:
      url: "{{.env.base}}/posts"
`

const createSuite = `
cases:
  - name: create post
    request:
      method: POST
      url: "{{.env.base}}/posts"
      body:
        title: foo
        userId: "{{.env.userId}}"
    expect:
      status: 201
      body:
        - path: title
          equals: foo
        - path: userId
          equals: "1"
        - path: id
          gt: 10
  - name: unknown post
    request:
      url: "{{.env.base}}/posts/99"
    expect:
      status: 200
`

func newRunner(t *testing.T, dir string) (*Runner, *store.Store) {
	t.Helper()
	srv := httptest.NewServer(fixture.NewEngine(fixture.Options{}))
	t.Cleanup(srv.Close)

	st, err := store.Open(store.Config{
		Driver:       store.DriverSqlite,
		DriverConfig: &store.SqliteConfig{Path: filepath.Join(t.TempDir(), store.DbFileName)},
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	e := env.New()
	_ = e.SetString("global", "base", srv.URL)
	return &Runner{
		Dir:            dir,
		Executor:       executor.New(executor.Config{}),
		Env:            e,
		Store:          st,
		PropertiesFile: filepath.Join(t.TempDir(), "out.properties"),
	}, st
}

func TestRunner_RunsSuitesInOrder(t *testing.T) {
	dir := t.TempDir()
	// written out of order on purpose
	writeFile(t, dir, "002_create.yaml", createSuite)
	writeFile(t, dir, "001_posts.yaml", postsSuite)
	writeFile(t, dir, "notes.txt", "ignored")

	r, st := newRunner(t, dir)
	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Suites) != 2 || report.Suites[0].Name != "posts" || report.Suites[1].Name != "create" {
		t.Fatalf("unexpected suites: %+v", report.Suites)
	}
	passed, failed, skipped := report.Counts()
	if passed != 3 || failed != 1 || skipped != 1 {
		for _, s := range report.Suites {
			for _, c := range s.Cases {
				t.Logf("%s/%s: %v", s.Name, c.Case, c.Failures())
			}
		}
		t.Fatalf("counts = %d/%d/%d, want 3/1/1", passed, failed, skipped)
	}
	if report.Passed() {
		t.Fatalf("report with a failure must not pass")
	}

	first := report.Suites[0].Cases[0]
	if first.Extracted["userId"] != "1" || first.StatusCode != 200 || !strings.HasSuffix(first.URL, "/posts/8") {
		t.Fatalf("first case: %+v", first)
	}
	second := report.Suites[0].Cases[1]
	if !strings.Contains(second.URL, "postId=1") {
		t.Fatalf("extracted value not applied to query: %s", second.URL)
	}

	// userId extracted by the posts suite is visible to the next suite
	created := report.Suites[1].Cases[0]
	if !created.Passed() {
		t.Fatalf("create post did not see userId from posts suite: %v", created.Failures())
	}
	if _, ok := r.Env.Lookup("userId"); ok {
		t.Fatalf("extracted values must not leak into the runner's env")
	}

	failing := report.Suites[1].Cases[1]
	if failing.Passed() || failing.StatusCode != 404 {
		t.Fatalf("expected failing case, got %+v", failing)
	}
	if f := failing.Failures(); len(f) != 1 || !strings.Contains(f[0], "404") {
		t.Fatalf("failures = %v", f)
	}

	v, ok, err := props.Lookup(r.PropertiesFile, "post.title")
	if err != nil || !ok || v != "dolorem dolore est ipsam" {
		t.Fatalf("properties: %q %v %v", v, ok, err)
	}

	runs, err := st.ListRuns("", 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 4 {
		t.Fatalf("recorded %d runs, want 4 (skipped cases are not recorded)", len(runs))
	}
	if runs[0].Case != "unknown post" || runs[0].Passed || len(runs[0].Failures) != 1 {
		t.Fatalf("latest run: %+v", runs[0])
	}
	postsRuns, _ := st.ListRuns("posts", 0)
	if len(postsRuns) != 2 || postsRuns[1].Extracted["userId"] != "1" {
		t.Fatalf("posts runs: %+v", postsRuns)
	}
}

func TestRunner_BadSuiteFileIsReported(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "001_bad.yaml", "cases:\n  - name: x\n    unknown_key: 1\n")
	writeFile(t, dir, "002_ok.yaml", "cases:\n  - name: ok\n    request:\n      url: \"{{.env.base}}/posts/1\"\n    expect:\n      status: 200\n")

	r, _ := newRunner(t, dir)
	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Suites[0].Err == nil || report.Suites[0].Name != "bad" {
		t.Fatalf("expected load error for bad suite: %+v", report.Suites[0])
	}
	passed, failed, _ := report.Counts()
	if passed != 1 || failed != 1 {
		t.Fatalf("counts = %d passed, %d failed", passed, failed)
	}
}

func TestRunner_ExtractMissing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "001_extract.yaml", `
cases:
  - name: lenient
    request:
      url: "{{.env.base}}/posts/1"
    extract:
      nothing: no.such.field
  - name: strict
    extract_missing: fail
    request:
      url: "{{.env.base}}/posts/1"
    extract:
      nothing: no.such.field
`)
	r, _ := newRunner(t, dir)
	r.Store = nil
	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	cases := report.Suites[0].Cases
	if !cases[0].Passed() {
		t.Fatalf("skip policy should pass: %v", cases[0].Failures())
	}
	if cases[1].Passed() || cases[1].Err == nil || !strings.Contains(cases[1].Err.Error(), "nothing") {
		t.Fatalf("fail policy should fail: %+v", cases[1])
	}
}

func TestRunner_ContextCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "001_posts.yaml", postsSuite)
	r, _ := newRunner(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Run(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestLoadFile_NamesAndDecode(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "010_users_api.yml", "env:\n  a: b\ncases: []\n")
	s, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if s.Name != "users_api" || s.Env.Local["a"] != "b" {
		t.Fatalf("suite: %+v", s)
	}
	if _, err := Decode(strings.NewReader("cases: [")); err == nil {
		t.Fatalf("expected YAML error")
	}
}

func TestFiles_Order(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"10_b.yaml", "2_a.yaml", "2_0.yml", "x_1.yaml", "3_c.json"} {
		writeFile(t, dir, n, "cases: []\n")
	}
	files, err := Files(dir)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	if got := strings.Join(names, ","); got != "2_0.yml,2_a.yaml,10_b.yaml" {
		t.Fatalf("order = %s", got)
	}
}

func TestRequestSpec_Render(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "body.json", `{"name":"{{.env.user}}"}`)
	e := env.New()
	_ = e.SetString("global", "user", "ann")

	r := RequestSpec{
		Method:     "post",
		URL:        "http://api.test/users/{id}",
		Headers:    []Header{{Name: "X-User", Value: "{{.env.user}}"}},
		Queries:    []Param{{Name: "tag", Values: []string{"a", "b"}}, {Name: "flag"}},
		PathParams: map[string]string{"id": "7"},
		BodyFile:   "body.json",
		Timeout:    "2s",
	}
	b, err := r.Render(e, dir)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	rs := b.Build()
	if rs.Method() != "POST" || rs.ContentType() != "application/json" || rs.Body() != `{"name":"ann"}` {
		t.Fatalf("request: %s %q %v", rs.Method(), rs.ContentType(), rs.Body())
	}
	if v, _ := rs.Headers().First("X-User"); v != "ann" {
		t.Fatalf("header = %q", v)
	}
	if got := rs.QueryParams().Get("tag"); len(got) != 2 {
		t.Fatalf("tag values = %v", got)
	}
	if !rs.QueryParams().Has("flag") || rs.Timeout().String() != "2s" {
		t.Fatalf("flag/timeout: %v %v", rs.QueryParams().Keys(), rs.Timeout())
	}
	u, err := executor.ResolveURL(rs)
	if err != nil || !strings.HasPrefix(u, "http://api.test/users/7?") {
		t.Fatalf("url = %q, %v", u, err)
	}

	bad := RequestSpec{URL: "http://x", Body: "{{.env.user"}
	if _, err := bad.Render(e, dir); err == nil {
		t.Fatalf("expected body template error")
	}
	if _, err := (RequestSpec{URL: "http://x", Timeout: "soon"}).Render(e, dir); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestDecodeMatcherSpec(t *testing.T) {
	e := env.New()
	_ = e.SetString("global", "id", "42")
	cases := []struct {
		name  string
		raw   any
		value any
		want  bool
	}{
		{"scalar equals", 5, float64(5), true},
		{"templated number", "{{.env.id}}", float64(42), true},
		{"not equals", map[string]any{"not_equals": "a"}, "b", true},
		{"contains string", map[string]any{"contains": "ell"}, "hello", true},
		{"contains item", map[string]any{"contains": "x"}, []any{"x", "y"}, true},
		{"combined", map[string]any{"gt": 1, "lte": 3}, float64(3), true},
		{"combined fails", map[string]any{"gt": 1, "lte": 3}, float64(4), false},
		{"size", map[string]any{"size": 2}, []any{1, 2}, true},
		{"not empty", map[string]any{"empty": false}, "x", true},
		{"matches", map[string]any{"matches": "^a.c$"}, "abc", true},
		{"one of", map[string]any{"one_of": []any{"a", "b"}}, "c", false},
		{"equals null", map[string]any{"equals": nil}, nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := valueMatcher(tc.raw, e)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			ok, err := m.Matches(tc.value)
			if err != nil || ok != tc.want {
				t.Fatalf("%s on %v = %v, %v; want %v", m.Describe(), tc.value, ok, err, tc.want)
			}
		})
	}

	for _, raw := range []any{map[string]any{}, map[string]any{"bogus": 1}} {
		if _, err := valueMatcher(raw, e); err == nil {
			t.Fatalf("expected error for %v", raw)
		}
	}
}

func TestDecodeCheck(t *testing.T) {
	e := env.New()
	c, err := decodeCheck(map[string]any{"path": "a.b", "exists": false}, e)
	if err != nil || !c.Absent || c.Path != "a.b" {
		t.Fatalf("absent check: %+v %v", c, err)
	}
	c, err = decodeCheck(map[string]any{"path": "a.b", "exists": true}, e)
	if err != nil || c.Absent || c.Matcher == nil {
		t.Fatalf("exists check: %+v %v", c, err)
	}
	if _, err := decodeCheck(map[string]any{"equals": 1}, e); err == nil {
		t.Fatalf("expected missing path error")
	}
	if _, err := decodeCheck(map[string]any{"path": 3, "equals": 1}, e); err == nil {
		t.Fatalf("expected path type error")
	}
}

func TestExpectSpec_Build(t *testing.T) {
	x := ExpectSpec{
		Status:    []any{200, 201},
		Headers:   map[string]any{"X-B": "2", "X-A": map[string]any{"exists": false}},
		TimeUnder: "1s",
		RootPath:  "data",
		Body:      []map[string]any{{"path": "id", "equals": 1}},
	}
	rs, err := x.Build(env.New(), "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	resp := executor.NewResponse(executor.Capture{StatusCode: 201, Body: []byte(`{"data":{"id":1}}`)})
	results := verify.Verify(resp, rs)
	if len(results) != 5 {
		t.Fatalf("got %d results", len(results))
	}
	for _, r := range results {
		// X-B is the only header that cannot hold on this response
		if r.Passed == (r.Path == "X-B") {
			t.Fatalf("unexpected result %s", r)
		}
	}

	if _, err := (ExpectSpec{TimeUnder: "fast"}).Build(env.New(), ""); err == nil {
		t.Fatalf("expected time_under error")
	}
	if _, err := (ExpectSpec{Status: []any{}}).Build(env.New(), ""); err == nil {
		t.Fatalf("expected empty status list error")
	}
}

func TestLogSpec_Options(t *testing.T) {
	for _, l := range []LogSpec{{}, {Detail: "headers", When: "if_error"}, {Detail: "body", When: "404"}} {
		if _, err := l.options(); err != nil {
			t.Fatalf("%+v: %v", l, err)
		}
	}
	for _, l := range []LogSpec{{Detail: "everything"}, {When: "sometimes"}} {
		if _, err := l.options(); err == nil {
			t.Fatalf("%+v: expected error", l)
		}
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "001_posts.yaml", postsSuite)
	writeFile(t, dir, "002_create.yaml", createSuite)

	res, err := Validate(dir)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.HasErrors() {
		t.Fatalf("unexpected errors: %+v", res.Results)
	}
	if len(res.Results) != 2 || !res.Results[0].Valid {
		t.Fatalf("results: %+v", res.Results)
	}

	writeFile(t, dir, "002_dup.yaml", `
cases:
  - request:
      method: FETCH
    expect:
      status: {bogus: 1}
    extract_missing: sometimes
  - name: slow
    request:
      url: http://x
      timeout: later
`)
	writeFile(t, dir, "003_broken.yaml", "cases: [\n")
	res, err = Validate(dir)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !res.HasErrors() || res.WarningCount() == 0 {
		t.Fatalf("expected errors and warnings: %+v", res.Results)
	}
	var dup ValidationResult
	for _, r := range res.Results {
		if filepath.Base(r.File) == "002_dup.yaml" {
			dup = r
		}
	}
	// missing url, unknown method, bad status matcher, bad policy, bad timeout
	if dup.Valid || len(dup.Errors) != 5 {
		t.Fatalf("dup errors: %v", dup.Errors)
	}
	if !strings.Contains(res.Summary, "errors") {
		t.Fatalf("summary = %q", res.Summary)
	}

	if _, err := Validate(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
	empty, err := Validate(t.TempDir())
	if err != nil || !strings.HasPrefix(empty.Summary, "No suite files") {
		t.Fatalf("empty dir: %+v %v", empty, err)
	}
}

func TestRunner_ExtractedStringsKeepTheirText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", "42")
		_, _ = w.Write([]byte(`{"token":"123456","zip":"01234","id":1234,"userId":7}`))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	writeFile(t, dir, "001_extract.yaml", `
cases:
  - name: first
    request:
      url: "{{.env.base}}/a"
    extract:
      token: token
      zip: zip
      user: userId
  - name: second
    request:
      url: "{{.env.base}}/b"
    expect:
      status: ["{{.env.code}}"]
      headers:
        X-Request-Id: 42
      body:
        - path: token
          equals: "{{.env.token}}"
        - path: zip
          equals: "{{.env.zip}}"
        - path: id
          not_equals: "{{.env.zip}}"
        - path: id
          lt: "{{.env.token}}"
        - path: userId
          equals: "{{.env.user}}"
        - path: userId
          one_of: ["{{.env.user}}", "8"]
`)
	r, _ := newRunner(t, dir)
	r.Store = nil
	_ = r.Env.SetString("global", "base", srv.URL)
	_ = r.Env.SetString("global", "code", "200")
	r.Env.Seal()

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	cases := report.Suites[0].Cases
	if len(cases) != 2 {
		t.Fatalf("cases = %d", len(cases))
	}
	if got := cases[0].Extracted["zip"]; got != "01234" {
		t.Fatalf("extracted zip = %q", got)
	}
	if !cases[1].Passed() {
		t.Fatalf("second case failed: %v", cases[1].Failures())
	}
	if _, ok := r.Env.Lookup("token"); ok {
		t.Fatalf("extracted values must not leak into the runner's env")
	}
}

func TestScalarEqual(t *testing.T) {
	cases := []struct {
		expected, actual any
		want             bool
	}{
		{"123456", "123456", true},
		{"01234", "01234", true},
		{"01234", float64(1234), false},
		{"1", float64(1), true},
		{42, "42", true},
		{"true", true, true},
		{"1.0", float64(1), false},
		{"a", []any{"a"}, false},
		{float64(2), 2, true},
	}
	for _, tc := range cases {
		ok, err := scalarEqual(tc.expected).Matches(tc.actual)
		if err != nil || ok != tc.want {
			t.Errorf("scalarEqual(%#v).Matches(%#v) = %v, %v; want %v", tc.expected, tc.actual, ok, err, tc.want)
		}
	}
}

func TestRunner_RecordMasksSensitiveValues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "001_secret.yaml", `
name: secret
cases:
  - name: login
    request:
      url: "{{.env.base}}/posts/1"
    extract:
      token: title
      user: userId
    expect:
      body:
        - path: title
          equals: "password=hunter2"
`)
	r, st := newRunner(t, dir)
	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	cr := report.Suites[0].Cases[0]
	if cr.Extracted["token"] == common.MaskedValue {
		t.Fatalf("report should keep raw extracted values")
	}

	runs, err := st.ListRuns("secret", 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns: %+v %v", runs, err)
	}
	if runs[0].Extracted["token"] != common.MaskedValue || runs[0].Extracted["user"] != "1" {
		t.Fatalf("stored extracted = %v", runs[0].Extracted)
	}
	if len(runs[0].Failures) != 1 || strings.Contains(runs[0].Failures[0], "hunter2") {
		t.Fatalf("stored failures = %v", runs[0].Failures)
	}
}
