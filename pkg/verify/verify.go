// Package verify checks captured responses against response specifications.
// Every expectation is evaluated, so one run reports every mismatch.
package verify

import (
	"github.com/loykin/apicontract/pkg/executor"
)

// Verify evaluates every expectation in rs against resp, in order, without
// stopping at the first failure.
func Verify(resp *executor.Response, rs ResponseSpec) []ExpectationResult {
	results := make([]ExpectationResult, 0, len(rs.exps))
	for _, e := range rs.exps {
		r := ExpectationResult{Kind: e.kind, Path: e.path}
		actual, m, err := e.eval(resp)
		r.Actual = actual
		if m != nil {
			r.Expected = m.Describe()
		} else {
			r.Expected = e.desc
		}
		if err == nil && m != nil {
			r.Passed, err = m.Matches(actual)
		}
		if err != nil {
			r.Passed = false
			r.Err = err
		}
		results = append(results, r)
	}
	return results
}

// Check is Verify returning nil when everything passed and an
// *ExpectationFailure listing every failure otherwise.
func Check(resp *executor.Response, rs ResponseSpec) error {
	results := Verify(resp, rs)
	failed := Failed(results)
	if len(failed) == 0 {
		return nil
	}
	return &ExpectationFailure{Results: failed, Total: len(results)}
}
