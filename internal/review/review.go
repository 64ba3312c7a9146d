// Package review files reconciliation runs that need a human look into a
// Notion database.
package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/reconcile"
	"github.com/sells-group/recon-cli/pkg/notion"
)

// Notion property names of the review database.
const (
	PropName           = "Name"
	PropRunID          = "Run ID"
	PropShape          = "Shape"
	PropStatus         = "Status"
	PropConfidence     = "Confidence"
	PropRecommendation = "Recommendation"
	PropReasons        = "Reasons"
	PropCorrections    = "Corrections"
)

// StatusNeedsReview is the select value given to newly filed runs.
const StatusNeedsReview = "Needs Review"

// Reasons lists why res needs manual review. An empty result means the run
// can be accepted as is.
func Reasons(res *reconcile.Result, threshold float64) []string {
	var reasons []string
	conf := res.Assessment.Confidence
	switch {
	case conf == nil:
		reasons = append(reasons, "confidence unknown")
	case *conf < threshold:
		reasons = append(reasons, fmt.Sprintf("confidence %.1f below %.0f", *conf, threshold))
	}
	if !res.Audit.IsValid {
		reasons = append(reasons, fmt.Sprintf("calculation audit failed (%d high issues)", res.Audit.HighIssueCount()))
	}
	for _, issue := range res.ShapeIssues {
		if issue.Severity == model.SeverityCritical {
			reasons = append(reasons, "shape: "+issue.Description)
		}
	}
	if len(res.Corrections.Skipped) > 0 {
		reasons = append(reasons, fmt.Sprintf("%d corrections could not be applied", len(res.Corrections.Skipped)))
	}
	return reasons
}

// Filer submits runs to the review database.
type Filer struct {
	db        *notion.Database
	threshold float64
}

// NewFiler creates a Filer. Runs below threshold confidence are filed.
func NewFiler(db *notion.Database, threshold float64) *Filer {
	return &Filer{db: db, threshold: threshold}
}

// Submit files run when it needs review. A run filed before is updated in
// place. It reports whether the run was filed.
func (f *Filer) Submit(ctx context.Context, run *model.Run, res *reconcile.Result) (bool, error) {
	reasons := Reasons(res, f.threshold)
	if len(reasons) == 0 {
		return false, nil
	}

	props := properties(run, res, reasons)
	existing, err := f.db.FindByText(ctx, PropRunID, run.ID)
	if err != nil {
		return false, eris.Wrap(err, "review: look up run")
	}

	if existing != nil {
		if _, err := f.db.Patch(ctx, existing.ID, props); err != nil {
			return false, eris.Wrapf(err, "review: update run %s", run.ID)
		}
		zap.L().Info("review: updated review page", zap.String("run_id", run.ID), zap.String("page_id", string(existing.ID)))
		return true, nil
	}

	page, err := f.db.Insert(ctx, props)
	if err != nil {
		return false, eris.Wrapf(err, "review: file run %s", run.ID)
	}
	zap.L().Info("review: filed run for review",
		zap.String("run_id", run.ID),
		zap.String("page_id", string(page.ID)),
		zap.Strings("reasons", reasons),
	)
	return true, nil
}

// Entry is one open row of the review database.
type Entry struct {
	PageID     string   `json:"page_id"`
	RunID      string   `json:"run_id"`
	Source     string   `json:"source"`
	Shape      string   `json:"shape"`
	Confidence *float64 `json:"confidence,omitempty"`
	Reasons    string   `json:"reasons"`
}

// Open lists every run still marked as needing review.
func (f *Filer) Open(ctx context.Context) ([]Entry, error) {
	rows, err := f.db.Rows(ctx, notionapi.PropertyFilter{
		Property: PropStatus,
		Select:   &notionapi.SelectFilterCondition{Equals: StatusNeedsReview},
	})
	if err != nil {
		return nil, eris.Wrap(err, "review: list open runs")
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		e := Entry{
			PageID:  string(row.ID),
			RunID:   notion.PlainText(row.Properties[PropRunID]),
			Source:  notion.PlainText(row.Properties[PropName]),
			Shape:   notion.PlainText(row.Properties[PropShape]),
			Reasons: notion.PlainText(row.Properties[PropReasons]),
		}
		if c, ok := notion.NumberValue(row.Properties[PropConfidence]); ok {
			e.Confidence = &c
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func properties(run *model.Run, res *reconcile.Result, reasons []string) notionapi.Properties {
	props := notionapi.Properties{
		PropName:           notion.Title(run.Source),
		PropRunID:          notion.Text(run.ID),
		PropShape:          notion.Select(string(res.Shape)),
		PropStatus:         notion.Select(StatusNeedsReview),
		PropRecommendation: notion.Text(res.Assessment.Recommendation),
		PropReasons:        notion.Text(strings.Join(reasons, "; ")),
		PropCorrections:    notion.Number(float64(len(res.Corrections.Applied))),
	}
	if c := res.Assessment.Confidence; c != nil {
		props[PropConfidence] = notion.Number(*c)
	}
	return props
}
