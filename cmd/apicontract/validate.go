package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/loykin/apicontract/internal/suite"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate suite files for syntax and structure",
	Long: `Validate suite files in the suite directory without sending requests.
This command checks:
- YAML syntax validity and unknown keys
- Suite file naming convention and duplicate numeric prefixes
- Request structure (url or path, method, body, timeout)
- Expectations and matcher operators`,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadConfig()
		if err != nil {
			return err
		}
		dir := doc.SuiteDirectory()
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Validating suite files in: %s\n", dir)
		results, err := suite.Validate(dir)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		printValidationResults(out, results)
		if results.HasErrors() {
			return fmt.Errorf("validation completed with %d error(s)", results.ErrorCount())
		}
		return nil
	},
}

func printValidationResults(w io.Writer, results *suite.ValidationResults) {
	_, _ = fmt.Fprintln(w, results.Summary)
	_, _ = fmt.Fprintln(w)
	if len(results.Results) == 0 {
		return
	}

	var valid, invalid []suite.ValidationResult
	for _, r := range results.Results {
		if r.Valid {
			valid = append(valid, r)
		} else {
			invalid = append(invalid, r)
		}
	}

	if len(invalid) > 0 {
		_, _ = fmt.Fprintln(w, "Files with errors:")
		_, _ = fmt.Fprintln(w, "==================")
		for _, r := range invalid {
			printFileResult(w, r, true)
		}
	}

	withWarnings := 0
	for _, r := range valid {
		if len(r.Warnings) > 0 {
			withWarnings++
		}
	}
	if withWarnings > 0 {
		_, _ = fmt.Fprintln(w, "Files with warnings:")
		_, _ = fmt.Fprintln(w, "====================")
		for _, r := range valid {
			if len(r.Warnings) > 0 {
				printFileResult(w, r, false)
			}
		}
	}

	_, _ = fmt.Fprintf(w, "Total files:       %d\n", len(results.Results))
	_, _ = fmt.Fprintf(w, "Files with errors: %d\n", len(invalid))
	_, _ = fmt.Fprintf(w, "Total errors:      %d\n", results.ErrorCount())
	_, _ = fmt.Fprintf(w, "Total warnings:    %d\n", results.WarningCount())
}

func printFileResult(w io.Writer, r suite.ValidationResult, showErrors bool) {
	_, _ = fmt.Fprintf(w, "%s\n", filepath.Base(r.File))
	if showErrors {
		for _, e := range r.Errors {
			_, _ = fmt.Fprintf(w, "   error: %s\n", e)
		}
	}
	for _, warn := range r.Warnings {
		_, _ = fmt.Fprintf(w, "   warning: %s\n", warn)
	}
	_, _ = fmt.Fprintln(w)
}
