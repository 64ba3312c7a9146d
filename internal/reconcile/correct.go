package reconcile

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/model"
)

// CorrectionAction describes what happened to one field.
type CorrectionAction string

const (
	ActionOverwrite CorrectionAction = "overwrite"
	ActionErase     CorrectionAction = "erase"
	ActionFill      CorrectionAction = "fill"
	ActionSkipped   CorrectionAction = "skipped"
)

// Correction is one entry of the correction log.
type Correction struct {
	Path      string              `json:"path"`
	Status    model.FindingStatus `json:"status,omitempty"`
	Action    CorrectionAction    `json:"action"`
	OldValue  any                 `json:"old_value"`
	NewValue  any                 `json:"new_value"`
	IssueType model.IssueType     `json:"issue_type,omitempty"`
	Source    string              `json:"source"`
	Reason    string              `json:"reason,omitempty"`
}

// CorrectionResult is a corrected copy of a record plus its correction log.
type CorrectionResult struct {
	Record  any          `json:"record"`
	Applied []Correction `json:"applied"`
	Skipped []Correction `json:"skipped"`
}

const (
	sourceFinding = "finding"
	sourceNote    = "critical_issue_note"
)

// ApplyCorrections returns a corrected copy of record. The input is never
// mutated. Findings are applied independently, in order:
// INCORRECT and MISSING write their correct value when one is given,
// FABRICATED always writes null, CORRECT and UNCERTAIN are no-ops.
func ApplyCorrections(record any, findings []model.Finding) *CorrectionResult {
	res := &CorrectionResult{Record: model.DeepCopy(record), Applied: []Correction{}, Skipped: []Correction{}}
	applyFindings(res, findings)
	return res
}

// CorrectRecord applies structured findings and then the free-text fallback
// over the report's critical issue notes, all on one copy of record.
func CorrectRecord(record any, report *model.VerificationReport) *CorrectionResult {
	res := &CorrectionResult{Record: model.DeepCopy(record), Applied: []Correction{}, Skipped: []Correction{}}
	if report == nil {
		return res
	}
	applyFindings(res, report.Findings)
	applyNoteFallback(res, report.CriticalIssues)
	return res
}

func applyFindings(res *CorrectionResult, findings []model.Finding) {
	for _, f := range findings {
		var (
			action CorrectionAction
			value  any
		)
		switch f.Status {
		case model.StatusIncorrect:
			if !f.CorrectValue.Set {
				continue
			}
			action, value = ActionOverwrite, f.CorrectValue.Value
		case model.StatusFabricated:
			// Fabricated fields are erased, never replaced by another guess.
			action, value = ActionErase, nil
		case model.StatusMissing:
			if !f.CorrectValue.Set {
				continue
			}
			action, value = ActionFill, f.CorrectValue.Value
		default:
			continue
		}
		res.set(model.ParsePath(f.Path), f.Status, action, value, sourceFinding)
	}
}

func (res *CorrectionResult) set(path model.FieldPath, status model.FindingStatus, action CorrectionAction, value any, source string) {
	old, _ := path.Get(res.Record)
	c := Correction{
		Path:      path.String(),
		Status:    status,
		Action:    action,
		OldValue:  old,
		NewValue:  value,
		IssueType: Categorize(old, value),
		Source:    source,
	}
	if err := path.Set(res.Record, model.DeepCopy(value)); err != nil {
		zap.L().Warn("reconcile: correction skipped",
			zap.String("path", c.Path),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		c.Action = ActionSkipped
		c.IssueType = ""
		c.Reason = err.Error()
		res.Skipped = append(res.Skipped, c)
		return
	}
	res.Applied = append(res.Applied, c)
}

// noteRule nulls target when a critical-issue note mentions one of subjects
// together with an absence marker.
//
// This matches free text written by the verifier and is only a fallback for
// fields the structured findings missed. It should be replaced by a
// structured issue code once the verification output carries one.
type noteRule struct {
	subjects []string
	target   model.FieldPath
}

var noteRules = []noteRule{
	{
		subjects: []string{"land area", "landarea", "plot area", "site area"},
		target:   model.FieldPath{model.SectionMetrics, model.FieldLandAreaSqm},
	},
	{
		subjects: []string{"parking"},
		target:   model.FieldPath{model.SectionUnits, model.FieldParkingSpaces},
	},
	{
		subjects: []string{"purchase price", "purchaseprice"},
		target:   model.FieldPath{model.SectionFinancials, model.FieldPurchasePrice},
	},
}

var absenceMarkers = []string{
	"not stated",
	"not mentioned",
	"not found in",
	"not present in",
	"does not appear",
	"no mention",
}

func applyNoteFallback(res *CorrectionResult, notes []string) {
	if _, ok := res.Record.(map[string]any); !ok {
		return
	}
	for _, note := range notes {
		lower := strings.ToLower(note)
		if !containsAny(lower, absenceMarkers) {
			continue
		}
		for _, rule := range noteRules {
			if !containsAny(lower, rule.subjects) {
				continue
			}
			if cur, ok := rule.target.Get(res.Record); !ok || cur == nil {
				continue
			}
			res.set(rule.target, model.StatusFabricated, ActionErase, nil, sourceNote)
		}
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
