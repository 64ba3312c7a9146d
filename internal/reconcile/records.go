package reconcile

import (
	"fmt"
	"sort"

	"github.com/sells-group/recon-cli/internal/model"
)

// Comparator walks the field manifest of a record shape. It is not a generic
// tree differ: only manifest fields and breakdown map keys are visited.
type Comparator struct {
	rules Rules
}

// NewComparator creates a Comparator for the given manifest.
func NewComparator(rules Rules) *Comparator {
	return &Comparator{rules: rules}
}

// CompareRecords compares two records of the same shape using DefaultRules.
func CompareRecords(left, right any, shape model.Shape) *model.ComparisonReport {
	return NewComparator(DefaultRules()).Compare(left, right, shape)
}

// Compare produces a ComparisonReport for left vs right.
func (c *Comparator) Compare(left, right any, shape model.Shape) *model.ComparisonReport {
	w := &walk{report: &model.ComparisonReport{Shape: shape, Differences: []model.Difference{}}}
	switch shape {
	case model.ShapeCollection:
		c.compareCollection(w, left, right)
	default:
		w.report.Shape = model.ShapeComposite
		c.compareComposite(w, left, right)
	}
	return w.report
}

// walk accumulates differences and keeps the stats invariant: each call to
// record or structural counts exactly one comparison.
type walk struct {
	report *model.ComparisonReport
}

func (w *walk) record(d *model.Difference) {
	w.report.Stats.Compared++
	if d == nil {
		w.report.Stats.Identical++
		return
	}
	w.report.Stats.Different++
	w.report.Differences = append(w.report.Differences, *d)
}

func (w *walk) structural(path string, left, right any, issue model.IssueType, notes string) {
	w.record(&model.Difference{
		Path:       path,
		LeftValue:  left,
		RightValue: right,
		IssueType:  issue,
		Severity:   model.SeverityCritical,
		Notes:      notes,
		Structural: true,
	})
}

// asMap treats nil as an empty mapping. The second result is false for any
// other non-mapping value.
func asMap(v any) (map[string]any, bool) {
	if v == nil {
		return nil, true
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func (c *Comparator) compareComposite(w *walk, left, right any) {
	lm, okL := asMap(left)
	rm, okR := asMap(right)
	if !okL || !okR {
		w.structural("<root>", typeName(left), typeName(right), model.IssueTypeMismatch,
			"composite record must be an object on both sides")
		return
	}

	for _, sec := range c.rules.Sections {
		base := model.FieldPath{sec.Name}
		ls, okL := asMap(lm[sec.Name])
		rs, okR := asMap(rm[sec.Name])
		if !okL || !okR {
			w.structural(base.String(), typeName(lm[sec.Name]), typeName(rm[sec.Name]), model.IssueTypeMismatch,
				fmt.Sprintf("section %s must be an object on both sides", sec.Name))
			continue
		}

		for _, f := range sec.Fields {
			w.record(CompareField(base.Child(f.Name).String(), ls[f.Name], rs[f.Name], f.Rule.options()...))
		}

		if sec.Breakdown == "" {
			continue
		}
		c.compareBreakdown(w, base.Child(sec.Breakdown), ls[sec.Breakdown], rs[sec.Breakdown], sec.BreakdownRule)
	}
}

// compareBreakdown compares a dynamically keyed map over the union of both
// key sets; a key missing on one side compares against null.
func (c *Comparator) compareBreakdown(w *walk, path model.FieldPath, left, right any, rule FieldRule) {
	lb, okL := asMap(left)
	rb, okR := asMap(right)
	if !okL || !okR {
		w.structural(path.String(), typeName(left), typeName(right), model.IssueTypeMismatch,
			"breakdown must be an object on both sides")
		return
	}
	for _, key := range unionKeys(lb, rb) {
		w.record(CompareField(path.Child(key).String(), lb[key], rb[key], rule.options()...))
	}
}

func (c *Comparator) compareCollection(w *walk, left, right any) {
	ll, okL := asList(left)
	rl, okR := asList(right)
	if !okL || !okR {
		w.structural("<root>", typeName(left), typeName(right), model.IssueTypeMismatch,
			"collection record must be a list on both sides")
		return
	}

	if len(ll) != len(rl) {
		w.structural("<length>", len(ll), len(rl), model.IssueValueChange,
			fmt.Sprintf("entry count mismatch: %d vs %d", len(ll), len(rl)))
	}

	n := max(len(ll), len(rl))
	for i := 0; i < n; i++ {
		var le, re any
		if i < len(ll) {
			le = ll[i]
		}
		if i < len(rl) {
			re = rl[i]
		}
		base := model.FieldPath{model.Index(i)}

		if (le == nil) != (re == nil) {
			notes := "entry missing on the right"
			if le == nil {
				notes = "entry missing on the left"
			}
			w.structural(base.String(), le, re, Categorize(le, re), notes)
			continue
		}
		if le == nil {
			w.record(nil)
			continue
		}
		lm, okL := le.(map[string]any)
		rm, okR := re.(map[string]any)
		if !okL || !okR {
			w.structural(base.String(), typeName(le), typeName(re), model.IssueTypeMismatch,
				"collection entries must be objects")
			continue
		}
		for _, f := range c.rules.CollectionFields {
			w.record(CompareField(base.Child(f.Name).String(), lm[f.Name], rm[f.Name], f.Rule.options()...))
		}
	}
}

func asList(v any) ([]any, bool) {
	if v == nil {
		return nil, true
	}
	l, ok := v.([]any)
	return l, ok
}

func unionKeys(a, b map[string]any) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "list"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		if isNumber(v) {
			return "number"
		}
		return fmt.Sprintf("%T", v)
	}
}
