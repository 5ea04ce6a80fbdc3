package verify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/loykin/apicontract/pkg/gpath"
)

// Kind names what an expectation inspects.
type Kind string

const (
	KindStatus      Kind = "status"
	KindStatusLine  Kind = "status_line"
	KindHeader      Kind = "header"
	KindCookie      Kind = "cookie"
	KindContentType Kind = "content_type"
	KindBody        Kind = "body"
	KindPath        Kind = "path"
	KindJMESPath    Kind = "jmespath"
	KindSchema      Kind = "schema"
	KindTime        Kind = "time"
)

// ExpectationResult is the outcome of one expectation. Err is set when the
// expectation could not be evaluated, e.g. an unresolvable path.
type ExpectationResult struct {
	Kind     Kind
	Path     string
	Expected string
	Actual   any
	Passed   bool
	Err      error
}

func (r ExpectationResult) String() string {
	target := string(r.Kind)
	if r.Path != "" {
		target += " " + r.Path
	}
	if r.Passed {
		return target + ": ok"
	}
	if r.Err != nil {
		return fmt.Sprintf("%s: expected %s, but %v", target, r.Expected, r.Err)
	}
	return fmt.Sprintf("%s: expected %s, actual %s", target, r.Expected, render(r.Actual))
}

func render(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return gpath.ToString(v)
}

// ExpectationFailure aggregates every failed expectation of one verification.
type ExpectationFailure struct {
	Results []ExpectationResult
	Total   int
}

func (e *ExpectationFailure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d expectations failed:", len(e.Results), e.Total)
	for _, r := range e.Results {
		b.WriteString("\n  - ")
		b.WriteString(r.String())
	}
	return b.String()
}

// Unwrap exposes evaluation errors so callers can use errors.As to find a
// PathNotFoundError or TypeMismatchError behind a failure.
func (e *ExpectationFailure) Unwrap() []error {
	var errs []error
	for _, r := range e.Results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}

// Failed returns the failing results of rs.
func Failed(results []ExpectationResult) []ExpectationResult {
	var out []ExpectationResult
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// IsExpectationFailure reports whether err carries failed expectations.
func IsExpectationFailure(err error) bool {
	var ef *ExpectationFailure
	return errors.As(err, &ef)
}
