package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/recon-cli/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Work with the Notion review queue",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs still waiting for manual review",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("review"); err != nil {
			return err
		}
		entries, err := newFiler().Open(cmd.Context())
		if err != nil {
			return err
		}
		if outputFormat != formatText {
			return render(cmd.OutOrStdout(), entries, "")
		}
		formatReviewList(cmd.OutOrStdout(), entries)
		return nil
	},
}

func formatReviewList(out io.Writer, entries []review.Entry) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(out, "Review queue is empty.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tSOURCE\tSHAPE\tCONFIDENCE\tREASONS")
	for _, e := range entries {
		conf := "-"
		if e.Confidence != nil {
			conf = fmt.Sprintf("%.1f", *e.Confidence)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.RunID, e.Source, e.Shape, conf, e.Reasons)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "\n%d runs awaiting review\n", len(entries))
}

func init() {
	reviewCmd.AddCommand(reviewListCmd)
	rootCmd.AddCommand(reviewCmd)
}
