package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/loykin/apicontract"
	"github.com/loykin/apicontract/internal/suite"
	"github.com/loykin/apicontract/pkg/executor"
	"github.com/spf13/cobra"
)

var errCasesFailed = errors.New("contract cases failed")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute every suite in the suite directory and print a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := runSuites(ctx, doc)
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), report)
		if !report.Passed() {
			_, failed, _ := report.Counts()
			return fmt.Errorf("%w: %d", errCasesFailed, failed)
		}
		return nil
	},
}

// runSuites builds the executor, env and optional store from doc and runs
// every suite of the configured directory.
func runSuites(ctx context.Context, doc *ConfigDoc) (*suite.Report, error) {
	exCfg, err := doc.ExecutorConfig()
	if err != nil {
		return nil, err
	}
	base, err := doc.GetEnv()
	if err != nil {
		return nil, err
	}

	dir := doc.SuiteDirectory()
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	r := &suite.Runner{
		Dir:            dir,
		Executor:       executor.New(exCfg),
		Env:            base,
		PropertiesFile: doc.PropertiesFile,
	}
	if sc := doc.Store.ToStoreConfig(); sc != nil {
		st, err := apicontract.OpenStore(*sc)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		defer func() { _ = st.Close() }()
		r.Store = st
	}
	return r.Run(ctx)
}

func printReport(w io.Writer, report *suite.Report) {
	pass := color.New(color.FgGreen, color.Bold).SprintFunc()
	fail := color.New(color.FgRed, color.Bold).SprintFunc()
	skip := color.New(color.FgYellow).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	for _, s := range report.Suites {
		_, _ = fmt.Fprintf(w, "%s\n", color.New(color.Bold).Sprint(s.Name))
		if s.Err != nil {
			_, _ = fmt.Fprintf(w, "  %s %v\n", fail("ERROR"), s.Err)
			continue
		}
		for _, c := range s.Cases {
			switch {
			case c.Skipped:
				_, _ = fmt.Fprintf(w, "  %s %s\n", skip("SKIP"), c.Case)
			case c.Passed():
				_, _ = fmt.Fprintf(w, "  %s %s %s\n", pass("PASS"), c.Case, dim(fmt.Sprintf("(%d, %s)", c.StatusCode, c.Elapsed.Round(time.Millisecond))))
			default:
				_, _ = fmt.Fprintf(w, "  %s %s\n", fail("FAIL"), c.Case)
				for _, f := range c.Failures() {
					_, _ = fmt.Fprintf(w, "      - %s\n", f)
				}
			}
		}
	}

	passed, failed, skipped := report.Counts()
	summary := fmt.Sprintf("%d passed, %d failed, %d skipped", passed, failed, skipped)
	if failed > 0 {
		_, _ = fmt.Fprintf(w, "\n%s\n", fail(summary))
		return
	}
	_, _ = fmt.Fprintf(w, "\n%s\n", pass(summary))
}
