package reconcile

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/sells-group/recon-cli/internal/model"
)

// LargeDiscrepancyThreshold separates "large" from "small" numeric
// discrepancies in difference notes.
const LargeDiscrepancyThreshold = 1000.0

// CompareOption configures a single field comparison.
type CompareOption func(*compareOptions)

type compareOptions struct {
	tolerance float64
	severity  model.Severity
	numeric   bool
}

// WithTolerance sets the absolute numeric deviation treated as equal.
func WithTolerance(t float64) CompareOption {
	return func(o *compareOptions) {
		if t >= 0 {
			o.tolerance = t
		}
	}
}

// WithSeverity sets the severity reported for ordinary differences.
// Fabrication and type mismatches keep their fixed severities.
func WithSeverity(s model.Severity) CompareOption {
	return func(o *compareOptions) {
		if s.Rank() > 0 {
			o.severity = s
		}
	}
}

// WithNumeric forces the numeric comparison path even when both values are
// strings, so "1,200" and "1200" compare as equal numbers.
func WithNumeric() CompareOption {
	return func(o *compareOptions) {
		o.numeric = true
	}
}

// CompareField compares the values found at path on two sides and returns the
// difference, or nil when they are equivalent.
func CompareField(path string, left, right any, opts ...CompareOption) *model.Difference {
	o := compareOptions{severity: model.SeverityLow}
	for _, opt := range opts {
		opt(&o)
	}

	if canonicalEqual(left, right) {
		return nil
	}

	// Null transitions take precedence over type handling.
	if left == nil || right == nil {
		d := &model.Difference{
			Path:       path,
			LeftValue:  left,
			RightValue: right,
			IssueType:  Categorize(left, right),
			Severity:   o.severity,
		}
		if d.IssueType == model.IssueRemovedFabrication {
			d.Severity = model.SeverityCritical
			d.Notes = "value present on the left is absent on the right; treated as fabricated"
		} else {
			d.Notes = "value absent on the left was supplied on the right"
		}
		return d
	}

	if o.numeric || isNumber(left) || isNumber(right) {
		return compareNumeric(path, left, right, o)
	}

	d := &model.Difference{
		Path:       path,
		LeftValue:  left,
		RightValue: right,
		IssueType:  Categorize(left, right),
		Severity:   o.severity,
	}
	if d.IssueType == model.IssueStringModification {
		d.Notes = "one value contains the other; likely normalization"
	}
	return d
}

func compareNumeric(path string, left, right any, o compareOptions) *model.Difference {
	l, okL := toFloat64(left)
	r, okR := toFloat64(right)
	if !okL || !okR {
		return &model.Difference{
			Path:       path,
			LeftValue:  left,
			RightValue: right,
			IssueType:  model.IssueTypeMismatch,
			Severity:   model.SeverityMedium,
			Notes:      fmt.Sprintf("cannot compare %T with %T numerically", left, right),
		}
	}

	abs := math.Abs(l - r)
	if abs <= o.tolerance {
		return nil
	}
	var pct float64
	if l != 0 {
		pct = abs / math.Abs(l) * 100
	}

	label := "small discrepancy"
	if abs > LargeDiscrepancyThreshold {
		label = "large discrepancy"
	}
	return &model.Difference{
		Path:         path,
		LeftValue:    left,
		RightValue:   right,
		IssueType:    model.IssueNumericDiscrepancy,
		Severity:     o.severity,
		Notes:        fmt.Sprintf("%s: %s (%.1f%%)", label, formatNumber(abs), pct),
		AbsoluteDiff: ptr(abs),
		PercentDiff:  ptr(pct),
	}
}

// canonicalEqual compares the canonical JSON encodings of a and b. Map keys
// are sorted by encoding/json, so key order never matters.
func canonicalEqual(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return string(ja) == string(jb)
}
