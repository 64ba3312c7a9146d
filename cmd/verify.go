package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/recon-cli/internal/export"
	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/reconcile"
	"github.com/sells-group/recon-cli/internal/verify"
)

var noStore bool

var verifyCmd = &cobra.Command{
	Use:   "verify <document>",
	Short: "Extract, verify and reconcile one source document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shape, err := parseShapeFlag()
		if err != nil {
			return err
		}
		env, err := initPipeline(ctx, !noStore)
		if err != nil {
			return err
		}
		defer env.Close()

		out, err := env.Pipeline.Process(ctx, args[0], shape)
		if err != nil {
			return err
		}
		if err := saveWorkbook(func(wb *export.Workbook) error { return wb.AddResult(out.Result) }); err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), out, reconcile.FormatResult(out.Result))
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <document>...",
	Short: "Verify many documents concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shape, err := parseShapeFlag()
		if err != nil {
			return err
		}
		env, err := initPipeline(ctx, !noStore)
		if err != nil {
			return err
		}
		defer env.Close()

		results := processBatch(ctx, env.Pipeline, args, shape, cfg.Batch.Concurrency)
		if outputFormat != formatText {
			return render(cmd.OutOrStdout(), results, "")
		}
		formatBatch(cmd.OutOrStdout(), results)
		return nil
	},
}

type batchResult struct {
	Path    string          `json:"path"`
	Outcome *verify.Outcome `json:"outcome,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// processBatch runs every document through the pipeline with at most
// concurrency in flight. One document failing does not stop the others.
func processBatch(ctx context.Context, p *verify.Pipeline, paths []string, shape model.Shape, concurrency int) []batchResult {
	results := make([]batchResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	for i, path := range paths {
		g.Go(func() error {
			results[i].Path = path
			out, err := p.Process(gctx, path, shape)
			if err != nil {
				zap.L().Error("batch: document failed", zap.String("path", path), zap.Error(err))
				results[i].Error = err.Error()
				return nil
			}
			results[i].Outcome = out
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func formatBatch(out io.Writer, results []batchResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DOCUMENT\tSHAPE\tCONFIDENCE\tAPPLIED\tREVIEW\tRECOMMENDATION")
	_, _ = fmt.Fprintln(w, "--------\t-----\t----------\t-------\t------\t--------------")

	failed := 0
	for _, r := range results {
		name := filepath.Base(r.Path)
		if r.Outcome == nil {
			failed++
			_, _ = fmt.Fprintf(w, "%s\t-\t-\t-\t-\tERROR: %s\n", name, r.Error)
			continue
		}
		res := r.Outcome.Result
		conf := "unknown"
		if c := res.Assessment.Confidence; c != nil {
			conf = fmt.Sprintf("%.1f%%", *c)
		}
		reviewed := ""
		if r.Outcome.Reviewed {
			reviewed = "filed"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			name, res.Shape, conf, len(res.Corrections.Applied), reviewed, res.Assessment.Recommendation)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "\n%d documents, %d failed\n", len(results), failed)
}

func parseShapeFlag() (model.Shape, error) {
	if shapeFlag == "" {
		return "", nil
	}
	shape, ok := model.ParseShape(shapeFlag)
	if !ok {
		return "", fmt.Errorf("unknown --shape %q (want composite or collection)", shapeFlag)
	}
	return shape, nil
}

func init() {
	for _, c := range []*cobra.Command{verifyCmd, batchCmd} {
		c.Flags().StringVar(&shapeFlag, "shape", "", "record shape: composite or collection (default: detect)")
		c.Flags().BoolVar(&noStore, "no-store", false, "do not persist runs or file reviews")
		rootCmd.AddCommand(c)
	}
	verifyCmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write an XLSX workbook to this path")
}
