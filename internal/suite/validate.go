package suite

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/loykin/apicontract/pkg/env"
)

// ValidationResult represents the validation result for a single suite file
type ValidationResult struct {
	File     string   `json:"file"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Valid    bool     `json:"valid"`
}

// ValidationResults aggregates results from multiple suite files
type ValidationResults struct {
	Results []ValidationResult `json:"results"`
	Summary string             `json:"summary"`
}

// HasErrors returns true if any validation result contains errors
func (vr *ValidationResults) HasErrors() bool {
	return vr.ErrorCount() > 0
}

// ErrorCount returns the total number of errors across all results
func (vr *ValidationResults) ErrorCount() int {
	count := 0
	for _, result := range vr.Results {
		count += len(result.Errors)
	}
	return count
}

// WarningCount returns the total number of warnings across all results
func (vr *ValidationResults) WarningCount() int {
	count := 0
	for _, result := range vr.Results {
		count += len(result.Warnings)
	}
	return count
}

var knownMethods = map[string]bool{
	http.MethodGet: true, http.MethodHead: true, http.MethodPost: true, http.MethodPut: true,
	http.MethodPatch: true, http.MethodDelete: true, http.MethodConnect: true, http.MethodOptions: true,
	http.MethodTrace: true,
}

// Validate checks every suite file of dir for YAML syntax, structure and
// decodable expectations without sending any request.
func Validate(dir string) (*ValidationResults, error) {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("suite directory does not exist: %s", dir)
	}
	files, err := listSuiteFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to find suite files: %w", err)
	}

	results := &ValidationResults{}
	if len(files) == 0 {
		results.Summary = fmt.Sprintf("No suite files found in directory: %s", dir)
		return results, nil
	}

	seen := map[int]string{}
	for _, f := range files {
		result := validateFile(f.path)
		if prev, dup := seen[f.index]; dup {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Duplicate numeric prefix %d (also used by %s)", f.index, prev))
		} else {
			seen[f.index] = f.name
		}
		results.Results = append(results.Results, result)
	}

	errs, warns := results.ErrorCount(), results.WarningCount()
	if errs == 0 && warns == 0 {
		results.Summary = fmt.Sprintf("All %d suite files are valid", len(files))
	} else {
		results.Summary = fmt.Sprintf("Validation completed for %d files: %d errors, %d warnings", len(files), errs, warns)
	}
	return results, nil
}

func validateFile(path string) ValidationResult {
	result := ValidationResult{File: path, Valid: true}
	s, err := LoadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid suite: %v", err))
		result.Valid = false
		return result
	}
	if len(s.Cases) == 0 {
		result.Warnings = append(result.Warnings, "Suite has no cases")
	}

	// Templates stay unrendered here; only structure is checked.
	e := env.New()
	names := map[string]bool{}
	for i, c := range s.Cases {
		label := fmt.Sprintf("case %d", i+1)
		if c.Name != "" {
			label = fmt.Sprintf("case %d (%s)", i+1, c.Name)
			if names[c.Name] {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: duplicate case name", label))
			}
			names[c.Name] = true
		} else {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: missing name", label))
		}
		for _, msg := range validateCase(c, e) {
			result.Errors = append(result.Errors, label+": "+msg)
		}
		if c.Expect.isEmpty() {
			result.Warnings = append(result.Warnings, label+": no expectations")
		}
	}
	result.Valid = len(result.Errors) == 0
	return result
}

func validateCase(c Case, e *env.Env) []string {
	var errs []string
	r := c.Request
	if strings.TrimSpace(r.URL) == "" && strings.TrimSpace(r.Path) == "" {
		errs = append(errs, "request needs url or path")
	}
	errs = append(errs, checkRequestTemplates(r)...)
	if m := strings.ToUpper(strings.TrimSpace(r.Method)); m != "" && !strings.Contains(m, "{{") && !knownMethods[m] {
		errs = append(errs, fmt.Sprintf("unknown method %q", r.Method))
	}
	if r.Body != nil && r.BodyFile != "" {
		errs = append(errs, "body and body_file are mutually exclusive")
	}
	if (r.Body != nil || r.BodyFile != "") && len(r.Form) > 0 {
		errs = append(errs, "body and form are mutually exclusive")
	}
	if t := strings.TrimSpace(r.Timeout); t != "" {
		if _, err := time.ParseDuration(t); err != nil {
			errs = append(errs, fmt.Sprintf("invalid timeout %q", t))
		}
	}
	if _, err := c.Expect.Build(e, ""); err != nil {
		errs = append(errs, err.Error())
	}
	switch strings.ToLower(strings.TrimSpace(c.ExtractMissing)) {
	case "", "skip", "fail":
	default:
		errs = append(errs, fmt.Sprintf("extract_missing must be skip or fail, got %q", c.ExtractMissing))
	}
	if c.Log != nil {
		if _, err := c.Log.options(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if c.Properties != nil && len(c.Properties.Values) == 0 {
		errs = append(errs, "properties without values")
	}
	return errs
}

func (x ExpectSpec) isEmpty() bool {
	return x.Status == nil && x.StatusLine == nil && x.ContentType == "" && len(x.Headers) == 0 &&
		len(x.Cookies) == 0 && x.TimeUnder == "" && len(x.Body) == 0 && len(x.JMESPath) == 0 &&
		x.Schema == "" && x.SchemaFile == ""
}
