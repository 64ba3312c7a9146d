package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/store"
)

var (
	runsFilter store.RunFilter
	statusFlag string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect verification run history",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if statusFlag != "" {
			if !validStatus(model.RunStatus(statusFlag)) {
				return fmt.Errorf("unknown --status %q", statusFlag)
			}
			runsFilter.Status = model.RunStatus(statusFlag)
		}
		if runsFilter.Limit < 0 || runsFilter.Offset < 0 {
			return fmt.Errorf("--limit and --offset must be >= 0")
		}
		if shapeFlag != "" {
			shape, err := parseShapeFlag()
			if err != nil {
				return err
			}
			runsFilter.Shape = shape
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(cmd.Context(), runsFilter)
		if err != nil {
			return err
		}
		if outputFormat != formatText {
			return render(cmd.OutOrStdout(), runs, "")
		}
		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run with its stored result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if outputFormat == formatText {
			// The stored result is JSON already; text mode prints it as is.
			outputFormat = formatJSON
		}
		return render(cmd.OutOrStdout(), run, "")
	},
}

func validStatus(s model.RunStatus) bool {
	switch s {
	case model.RunStatusQueued, model.RunStatusExtracting, model.RunStatusVerifying, model.RunStatusComplete, model.RunStatusFailed:
		return true
	}
	return false
}

func formatRunsList(out io.Writer, runs []model.Run) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(out, "No runs found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSOURCE\tSHAPE\tSTATUS\tCONFIDENCE\tRECOMMENDATION\tUPDATED")
	_, _ = fmt.Fprintln(w, "--\t------\t-----\t------\t----------\t--------------\t-------")
	for _, r := range runs {
		conf := "-"
		if r.Confidence != nil {
			conf = fmt.Sprintf("%.1f%%", *r.Confidence)
		}
		rec := r.Recommendation
		if r.Status == model.RunStatusFailed && r.Error != "" {
			rec = "ERROR: " + r.Error
		}
		if len(rec) > 60 {
			rec = rec[:57] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Source, r.Shape, r.Status, conf, rec, r.UpdatedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "\n%d runs\n", len(runs))
}

func init() {
	runsListCmd.Flags().StringVar(&statusFlag, "status", "", "filter by status (queued, extracting, verifying, complete, failed)")
	runsListCmd.Flags().StringVar(&shapeFlag, "shape", "", "filter by shape")
	runsListCmd.Flags().StringVar(&runsFilter.Source, "source", "", "filter by source document")
	runsListCmd.Flags().IntVar(&runsFilter.Limit, "limit", 20, "maximum runs to list")
	runsListCmd.Flags().IntVar(&runsFilter.Offset, "offset", 0, "runs to skip")

	runsCmd.AddCommand(runsListCmd, runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
