package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/loykin/apicontract"
	"github.com/loykin/apicontract/internal/constants"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded case runs from the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadConfig()
		if err != nil {
			return err
		}
		sc := doc.Store.ToStoreConfig()
		if sc == nil {
			return fmt.Errorf("no store configured (set store.type in the config)")
		}
		st, err := apicontract.OpenStore(*sc)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() { _ = st.Close() }()

		suiteName, _ := cmd.Flags().GetString("suite")
		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(suiteName, limit)
		if err != nil {
			return err
		}
		printHistory(cmd.OutOrStdout(), runs)
		return nil
	},
}

func init() {
	historyCmd.Flags().String("suite", "", "only show runs of this suite")
	historyCmd.Flags().Int("limit", constants.DefaultHistoryLimit, "maximum number of runs (0 = all)")
}

func printHistory(w io.Writer, runs []apicontract.Run) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "no runs recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tRAN AT\tSUITE\tCASE\tSTATUS\tMS\tRESULT")
	for _, r := range runs {
		result := color.GreenString("pass")
		if !r.Passed {
			result = color.RedString("fail")
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.RanAt.Local().Format(time.DateTime), r.Suite, r.Case, r.StatusCode, r.ElapsedMS, result)
		if !r.Passed && len(r.Failures) > 0 {
			_, _ = fmt.Fprintf(tw, "\t\t\t  %s\t\t\t\n", strings.Join(r.Failures, "; "))
		}
	}
	_ = tw.Flush()
}
