package suite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/loykin/apicontract/internal/common"
	"github.com/loykin/apicontract/internal/constants"
	"github.com/loykin/apicontract/internal/store"
	"github.com/loykin/apicontract/pkg/env"
	"github.com/loykin/apicontract/pkg/executor"
	"github.com/loykin/apicontract/pkg/gpath"
	"github.com/loykin/apicontract/pkg/props"
	"github.com/loykin/apicontract/pkg/spec"
	"github.com/loykin/apicontract/pkg/verify"
)

// CaseResult is the outcome of one case. Err is an engine error (template,
// transport, extraction) that kept the case from being verified fully.
type CaseResult struct {
	Suite      string
	Case       string
	Method     string
	URL        string
	StatusCode int
	Elapsed    time.Duration
	Skipped    bool
	Results    []verify.ExpectationResult
	Extracted  map[string]string
	Err        error
}

// Passed reports whether the case ran without error and every expectation held.
func (c CaseResult) Passed() bool {
	return c.Skipped || (c.Err == nil && len(verify.Failed(c.Results)) == 0)
}

// Failures lists one line per failure.
func (c CaseResult) Failures() []string {
	var out []string
	if c.Err != nil {
		out = append(out, c.Err.Error())
	}
	for _, r := range verify.Failed(c.Results) {
		out = append(out, r.String())
	}
	return out
}

// SuiteResult holds the case results of one suite file.
type SuiteResult struct {
	File  string
	Name  string
	Cases []CaseResult
	// Err is set when the file could not be loaded.
	Err error
}

// Report is the outcome of a whole run.
type Report struct {
	Suites []SuiteResult
}

// Counts returns passed, failed and skipped case counts. A suite that
// failed to load counts as one failure.
func (r *Report) Counts() (passed, failed, skipped int) {
	for _, s := range r.Suites {
		if s.Err != nil {
			failed++
		}
		for _, c := range s.Cases {
			switch {
			case c.Skipped:
				skipped++
			case c.Passed():
				passed++
			default:
				failed++
			}
		}
	}
	return passed, failed, skipped
}

// Passed reports whether the run had no failures.
func (r *Report) Passed() bool {
	_, failed, _ := r.Counts()
	return failed == 0
}

// Runner executes suites sequentially with one executor.
type Runner struct {
	Dir      string
	Executor *executor.Executor
	// Env holds global variables; extracted values are added to a copy.
	Env *env.Env
	// Store records every case when set.
	Store *store.Store
	// PropertiesFile is used by cases whose properties omit a file.
	PropertiesFile string
	Logger         *common.Logger
}

func (r *Runner) logger() *common.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return common.GetLogger()
}

// Run executes every suite file of Dir in order. Only a failure to list the
// directory is returned as an error; everything else is in the report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	files, err := listSuiteFiles(r.Dir)
	if err != nil {
		return nil, fmt.Errorf("list suites in %s: %w", r.Dir, err)
	}
	runEnv := r.Env.Clone()
	report := &Report{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		s, err := LoadFile(f.path)
		if err != nil {
			r.logger().Error("failed to load suite", "file", f.name, "error", err)
			report.Suites = append(report.Suites, SuiteResult{File: f.path, Name: suiteName(f.name), Err: err})
			continue
		}
		sr := r.runSuite(ctx, s, runEnv, filepath.Dir(f.path))
		sr.File = f.path
		report.Suites = append(report.Suites, sr)
	}
	return report, nil
}

// RunSuite executes a single loaded suite. baseDir resolves relative files.
func (r *Runner) RunSuite(ctx context.Context, s *Suite, baseDir string) SuiteResult {
	return r.runSuite(ctx, s, r.Env.Clone(), baseDir)
}

func (r *Runner) runSuite(ctx context.Context, s *Suite, runEnv *env.Env, baseDir string) SuiteResult {
	log := r.logger().WithSuite(s.Name, "")
	log.Info("running suite", "cases", len(s.Cases))

	suiteEnv := runEnv.Clone()
	if s.Env != nil {
		suiteEnv.Local = env.FromStringMap(s.Env.Local)
	}

	res := SuiteResult{Name: s.Name}
	for i, c := range s.Cases {
		if c.Name == "" {
			c.Name = fmt.Sprintf("case %d", i+1)
		}
		cr := r.runCase(ctx, s.Name, c, suiteEnv, baseDir)
		for k, v := range cr.Extracted {
			_ = suiteEnv.SetString("global", k, v)
			_ = runEnv.SetString("global", k, v)
		}
		r.record(cr)
		res.Cases = append(res.Cases, cr)
	}
	return res
}

func (r *Runner) runCase(ctx context.Context, suiteName string, c Case, e *env.Env, baseDir string) CaseResult {
	log := r.logger().WithSuite(suiteName, c.Name)
	cr := CaseResult{Suite: suiteName, Case: c.Name}
	if c.Skip {
		cr.Skipped = true
		log.Info("case skipped")
		return cr
	}

	b, err := c.Request.Render(e, baseDir)
	if err != nil {
		cr.Err = fmt.Errorf("render request: %w", err)
		log.Error("failed to render request", "error", err)
		return cr
	}
	rs := b.Build()
	cr.Method = rs.Method()
	if u, err := executor.ResolveURL(mergeDefaults(r.Executor, rs)); err == nil {
		cr.URL = u
	}

	expect, err := c.Expect.Build(e, baseDir)
	if err != nil {
		cr.Err = fmt.Errorf("decode expectations: %w", err)
		log.Error("invalid expectations", "error", err)
		return cr
	}

	resp, err := r.Executor.Execute(ctx, rs)
	if err != nil {
		cr.Err = err
		log.Error("request failed", "error", err)
		return cr
	}
	cr.URL = resp.URL()
	cr.StatusCode = resp.StatusCode()
	cr.Elapsed = resp.Elapsed()

	cr.Results = verify.Verify(resp, expect)
	if c.Log != nil {
		opts, err := c.Log.options()
		if err != nil {
			log.Warn("invalid log settings", "error", err)
		} else {
			executor.LogResponse(log, resp, opts)
		}
	}

	extracted, err := extract(resp, c.Extract, c.ExtractMissing)
	cr.Extracted = extracted
	if err != nil {
		cr.Err = err
	}
	if c.Properties != nil {
		if err := r.writeProperties(resp, c.Properties, e); err != nil && cr.Err == nil {
			cr.Err = err
		}
	}

	if cr.Passed() {
		log.Info("case passed", "status", cr.StatusCode, "elapsed", cr.Elapsed)
	} else {
		masker := common.GetGlobalMasker()
		log.Warn("case failed", masker.MaskKeyValuePairs("status", cr.StatusCode, "failures", strings.Join(cr.Failures(), "; "))...)
	}
	return cr
}

func mergeDefaults(ex *executor.Executor, rs spec.RequestSpec) spec.RequestSpec {
	if ex == nil {
		return rs
	}
	return spec.Merge(ex.Defaults(), rs)
}

// extract evaluates each mapping on the response. Missing values are
// skipped unless policy is "fail".
func extract(resp *executor.Response, m map[string]string, policy string) (map[string]string, error) {
	out := map[string]string{}
	if len(m) == 0 {
		return out, nil
	}
	fail := strings.EqualFold(strings.TrimSpace(policy), "fail")
	var missing []string
	for _, name := range sortedKeys(m) {
		expr := strings.TrimSpace(m[name])
		if expr == "" {
			continue
		}
		v, err := resp.Path(expr)
		if err != nil {
			var nf *gpath.PathNotFoundError
			if errors.As(err, &nf) {
				missing = append(missing, name)
				continue
			}
			return out, fmt.Errorf("extract %s: %w", name, err)
		}
		out[name] = gpath.ToString(v)
	}
	if fail && len(missing) > 0 {
		return out, fmt.Errorf("extract: no value for %s", strings.Join(missing, ", "))
	}
	return out, nil
}

func (r *Runner) writeProperties(resp *executor.Response, p *PropertiesSpec, e *env.Env) error {
	file := e.RenderGoTemplate(p.File)
	if file == "" {
		file = r.PropertiesFile
	}
	if file == "" {
		file = constants.DefaultPropertiesFile
	}
	for _, key := range sortedKeys(p.Values) {
		v, err := resp.PathString(p.Values[key])
		if err != nil {
			return fmt.Errorf("properties %s: %w", key, err)
		}
		if err := props.Update(file, key, v); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) record(cr CaseResult) {
	if r.Store == nil || cr.Skipped {
		return
	}
	run := store.Run{
		Suite:      cr.Suite,
		Case:       cr.Case,
		Method:     cr.Method,
		URL:        cr.URL,
		StatusCode: cr.StatusCode,
		ElapsedMS:  cr.Elapsed.Milliseconds(),
		Passed:     cr.Passed(),
		Failures:   maskedFailures(cr.Failures()),
		Extracted:  maskedExtracted(cr.Extracted),
	}
	if _, err := r.Store.RecordRun(run); err != nil {
		r.logger().WithSuite(cr.Suite, cr.Case).Warn("failed to record run", "error", err)
	}
}

// maskedFailures scrubs credentials that expectations may have echoed from
// the response before they are persisted.
func maskedFailures(fs []string) []string {
	if len(fs) == 0 {
		return fs
	}
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = common.MaskSensitiveData(f)
	}
	return out
}

// maskedExtracted hides values stored under sensitive names such as "token".
func maskedExtracted(m map[string]string) map[string]string {
	if len(m) == 0 {
		return m
	}
	masker := common.GetGlobalMasker()
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := masker.MaskValue(k, v).(string); ok {
			out[k] = s
		} else {
			out[k] = v
		}
	}
	return out
}

func (l LogSpec) options() (executor.LogOptions, error) {
	var opts executor.LogOptions
	switch strings.ToLower(strings.TrimSpace(l.Detail)) {
	case "", "all":
		opts.Detail = executor.LogAll
	case "status":
		opts.Detail = executor.LogStatus
	case "headers":
		opts.Detail = executor.LogHeaders
	case "cookies":
		opts.Detail = executor.LogCookies
	case "body":
		opts.Detail = executor.LogBody
	default:
		return opts, fmt.Errorf("unknown log detail %q", l.Detail)
	}
	when := strings.ToLower(strings.TrimSpace(l.When))
	switch when {
	case "", "always":
		opts.When = executor.Always
	case "if_error":
		opts.When = executor.IfError
	default:
		code, err := strconv.Atoi(when)
		if err != nil {
			return opts, fmt.Errorf("unknown log condition %q", l.When)
		}
		opts.When = executor.IfStatus(code)
	}
	return opts, nil
}
