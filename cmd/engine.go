package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/recon-cli/internal/export"
	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/reconcile"
)

var compareCmd = &cobra.Command{
	Use:   "compare <left> <right>",
	Short: "Compare two extractions of the same document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := cfg.ReconcileOptions(time.Now())
		if err != nil {
			return err
		}
		left, err := loadDocument(args[0])
		if err != nil {
			return err
		}
		right, err := loadRecord(args[1])
		if err != nil {
			return err
		}

		report := reconcile.NewComparator(opts.Rules).Compare(left.Record, right, left.Shape)
		if err := saveWorkbook(func(wb *export.Workbook) error { return wb.AddComparison(report) }); err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), struct {
			Report  *model.ComparisonReport     `json:"report"`
			Summary reconcile.ComparisonSummary `json:"summary"`
		}{report, reconcile.SummarizeComparison(report)}, reconcile.FormatComparison(report))
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit <record>",
	Short: "Check a record's breakdown sums, years and occupancy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := cfg.ReconcileOptions(time.Now())
		if err != nil {
			return err
		}
		doc, err := loadDocument(args[0])
		if err != nil {
			return err
		}

		v := reconcile.AuditCalculations(doc.Record, doc.Shape, opts.Audit)
		if err := saveWorkbook(func(wb *export.Workbook) error { return wb.AddAudit(v) }); err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), v, reconcile.FormatAudit(v))
	},
}

var correctCmd = &cobra.Command{
	Use:   "correct <record> <report>",
	Short: "Apply a verification report's corrections to a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := loadRecord(args[0])
		if err != nil {
			return err
		}
		report, err := loadReport(args[1])
		if err != nil {
			return err
		}

		res := reconcile.CorrectRecord(rec, report)
		if err := saveWorkbook(func(wb *export.Workbook) error { return wb.AddCorrections(res) }); err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), res, formatCorrections(res))
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <record> [report]",
	Short: "Validate, correct, audit and score a record",
	Long: "Runs the full reconciliation of one record. Without a report, or with one that cannot be parsed, " +
		"the record is audited as is and its confidence is unknown.",
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := cfg.ReconcileOptions(time.Now())
		if err != nil {
			return err
		}
		doc, err := loadDocument(args[0])
		if err != nil {
			return err
		}

		var res *reconcile.Result
		if len(args) == 2 {
			text, err := os.ReadFile(args[1])
			if err != nil {
				return eris.Wrapf(err, "read %s", args[1])
			}
			res = reconcile.ReconcileRaw(doc, string(text), opts)
		} else {
			res = reconcile.Reconcile(doc, nil, opts)
		}

		if err := saveWorkbook(func(wb *export.Workbook) error { return wb.AddResult(res) }); err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), res, reconcile.FormatResult(res))
	},
}

func formatCorrections(res *reconcile.CorrectionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Applied %d corrections, skipped %d.\n", len(res.Applied), len(res.Skipped))
	for _, c := range res.Applied {
		fmt.Fprintf(&b, "  %-8s %s: %v -> %v\n", c.Action, c.Path, c.OldValue, c.NewValue)
	}
	for _, c := range res.Skipped {
		fmt.Fprintf(&b, "  skipped  %s: %s\n", c.Path, c.Reason)
	}
	return b.String()
}

func init() {
	for _, c := range []*cobra.Command{compareCmd, auditCmd, reconcileCmd} {
		c.Flags().StringVar(&shapeFlag, "shape", "", "record shape: composite or collection (default: detect)")
	}
	for _, c := range []*cobra.Command{compareCmd, auditCmd, correctCmd, reconcileCmd} {
		c.Flags().StringVar(&xlsxPath, "xlsx", "", "also write an XLSX workbook to this path")
		rootCmd.AddCommand(c)
	}
}
