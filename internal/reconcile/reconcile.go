package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/recon-cli/internal/model"
)

// Options carries the explicit thresholds of one reconciliation.
type Options struct {
	Audit AuditConfig
	Rules Rules
}

// DefaultOptions returns the built-in thresholds relative to now.
func DefaultOptions(now time.Time) Options {
	return Options{Audit: DefaultAuditConfig(now), Rules: DefaultRules()}
}

// At returns a copy of o whose year checks are relative to now.
func (o Options) At(now time.Time) Options {
	o.Audit.CurrentYear = now.Year()
	return o
}

// Result is the full outcome of reconciling one document.
type Result struct {
	Shape                 model.Shape                `json:"shape"`
	Corrected             any                        `json:"corrected"`
	Corrections           *CorrectionResult          `json:"corrections"`
	ShapeIssues           []model.Issue              `json:"shape_issues"`
	Audit                 model.ValidationResult     `json:"audit"`
	Changes               *model.ComparisonReport    `json:"changes"`
	Verification          *model.VerificationSummary `json:"verification,omitempty"`
	VerificationAvailable bool                       `json:"verification_available"`
	Assessment            Assessment                 `json:"assessment"`
}

// Reconcile validates the shape of doc, applies the report's corrections to a
// copy of the record, audits the corrected copy and scores the outcome. A nil
// report yields an uncorrected copy with unknown confidence.
func Reconcile(doc model.Document, report *model.VerificationReport, opts Options) *Result {
	shape := doc.Shape
	if !shape.Valid() {
		shape = model.DetectShape(doc.Record)
	}

	res := &Result{
		Shape:                 shape,
		ShapeIssues:           ValidateShape(doc.Record, shape, opts.Rules),
		VerificationAvailable: report != nil,
	}
	if res.ShapeIssues == nil {
		res.ShapeIssues = []model.Issue{}
	}

	res.Corrections = CorrectRecord(doc.Record, report)
	res.Corrected = res.Corrections.Record
	res.Audit = AuditCalculations(res.Corrected, shape, opts.Audit)
	res.Changes = NewComparator(opts.Rules).Compare(doc.Record, res.Corrected, shape)

	if report == nil {
		res.Assessment = Assessment{Recommendation: RecUnknownConfidence}
		return res
	}
	summary := report.Summarize()
	res.Verification = &summary
	res.Assessment = Score(summary, &res.Audit)
	return res
}

// ReconcileRaw parses raw verifier output before reconciling. Output that
// cannot be parsed is treated as no verification at all.
func ReconcileRaw(doc model.Document, reportText string, opts Options) *Result {
	var report *model.VerificationReport
	if reportText != "" {
		parsed, err := ParseVerificationReport(reportText)
		if err != nil {
			zap.L().Warn("reconcile: verification report unusable, skipping corrections", zap.Error(err))
		} else {
			report = parsed
		}
	}
	return Reconcile(doc, report, opts)
}

// Job is one unit of work for ReconcileAll. ReportText is parsed when
// Report is nil.
type Job struct {
	Document   model.Document
	Report     *model.VerificationReport
	ReportText string
}

// ReconcileAll reconciles jobs concurrently with at most concurrency workers.
// Results are returned in job order. The only error is ctx cancellation.
func ReconcileAll(ctx context.Context, jobs []Job, opts Options, concurrency int) ([]*Result, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]*Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if job.Report == nil {
				results[i] = ReconcileRaw(job.Document, job.ReportText, opts)
				return nil
			}
			results[i] = Reconcile(job.Document, job.Report, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
