// Package apicontract is the public entry point of the contract testing
// engine: build a request with Given, send it with an Executor and check the
// response against an Expect specification.
//
//	ex := apicontract.NewExecutor(apicontract.ExecutorConfig{BaseURI: "http://localhost:8080"})
//	resp, err := ex.Get(ctx, "/posts/8", nil)
//	...
//	apicontract.AssertResponse(t, resp, apicontract.Expect().StatusCode(200).Path("userId", matcher.EqualTo(1)).Build())
package apicontract

import (
	"context"
	"testing"

	"github.com/loykin/apicontract/internal/common"
	"github.com/loykin/apicontract/internal/store"
	"github.com/loykin/apicontract/internal/suite"
	"github.com/loykin/apicontract/pkg/env"
	"github.com/loykin/apicontract/pkg/executor"
	"github.com/loykin/apicontract/pkg/gpath"
	"github.com/loykin/apicontract/pkg/spec"
	"github.com/loykin/apicontract/pkg/verify"
)

// Env is the variable set used for template rendering.
type Env = env.Env

type RequestSpec = spec.RequestSpec
type RequestBuilder = spec.Builder

type Executor = executor.Executor
type ExecutorConfig = executor.Config
type Response = executor.Response

type ResponseSpec = verify.ResponseSpec
type ResponseBuilder = verify.Builder
type ExpectationResult = verify.ExpectationResult
type ExpectationFailure = verify.ExpectationFailure

// Document is a parsed response body queried with path expressions.
type Document = gpath.Document

// Given starts a request specification.
func Given() *RequestBuilder { return spec.Given() }

// Expect starts a response specification.
func Expect() *ResponseBuilder { return verify.Expect() }

// NewExecutor builds an executor with a fixed configuration.
func NewExecutor(cfg ExecutorConfig) *Executor { return executor.New(cfg) }

// Verify evaluates every expectation of rs against resp.
func Verify(resp *Response, rs ResponseSpec) []ExpectationResult { return verify.Verify(resp, rs) }

// Check returns nil or an *ExpectationFailure listing every failed expectation.
func Check(resp *Response, rs ResponseSpec) error { return verify.Check(resp, rs) }

// AssertResponse reports every failed expectation of rs on t and stops the test.
func AssertResponse(t testing.TB, resp *Response, rs ResponseSpec) {
	t.Helper()
	failed := verify.Failed(verify.Verify(resp, rs))
	if len(failed) == 0 {
		return
	}
	for _, r := range failed {
		t.Errorf("%s", r)
	}
	t.FailNow()
}

// Suite runner types
type (
	SuiteRunner = suite.Runner
	SuiteReport = suite.Report
	SuiteResult = suite.SuiteResult
	CaseResult  = suite.CaseResult
)

// RunSuites executes the YAML suites of dir in order with ex and base.
func RunSuites(ctx context.Context, dir string, ex *Executor, base *Env) (*SuiteReport, error) {
	r := &suite.Runner{Dir: dir, Executor: ex, Env: base}
	return r.Run(ctx)
}

// ValidateSuites checks the suites of dir without sending requests.
func ValidateSuites(dir string) (*suite.ValidationResults, error) { return suite.Validate(dir) }

// Store exposes the run history store.
type Store = store.Store
type StoreConfig = store.Config
type Run = store.Run
type TableNames = store.TableNames
type SqliteConfig = store.SqliteConfig
type PostgresConfig = store.PostgresConfig

const (
	DriverSqlite    = store.DriverSqlite
	DriverPostgres  = store.DriverPostgresql
	StoreDBFileName = store.DbFileName
)

// DefaultTableNames returns the run store table names for prefix.
func DefaultTableNames(prefix string) TableNames { return store.DefaultTableNames(prefix) }

// OpenStore connects to the configured store and creates its tables.
func OpenStore(cfg StoreConfig) (*Store, error) { return store.Open(cfg) }

// Logging API re-exports
type Logger = common.Logger
type LogLevel = common.LogLevel

const (
	LogLevelError = common.LogLevelError
	LogLevelWarn  = common.LogLevelWarn
	LogLevelInfo  = common.LogLevelInfo
	LogLevelDebug = common.LogLevelDebug
)

func NewLogger(level LogLevel) *Logger      { return common.NewLogger(level) }
func NewJSONLogger(level LogLevel) *Logger  { return common.NewJSONLogger(level) }
func NewColorLogger(level LogLevel) *Logger { return common.NewColorLogger(level) }
func SetDefaultLogger(logger *Logger)       { common.SetDefaultLogger(logger) }
func GetLogger() *Logger                    { return common.GetLogger() }

// ParseLogLevel maps error, warn, info or debug to a LogLevel.
func ParseLogLevel(s string) (LogLevel, bool) { return common.ParseLogLevel(s) }

// EnableMasking toggles masking of sensitive values in log output.
func EnableMasking(enabled bool) { common.EnableMasking(enabled) }
