package reconcile

import (
	"fmt"

	"github.com/sells-group/recon-cli/internal/model"
)

// requiredSections must be present on a composite record.
var requiredSections = []string{model.SectionIdentity, model.SectionMetrics}

// ValidateShape checks that record has the layout its shape tag promises:
// required sections exist and manifest fields hold plausible primitives.
// Structural problems are critical issues; type problems are medium.
func ValidateShape(record any, shape model.Shape, rules Rules) []model.Issue {
	var issues []model.Issue
	add := func(sev model.Severity, path, format string, args ...any) {
		issues = append(issues, model.Issue{Severity: sev, Path: path, Description: fmt.Sprintf(format, args...)})
	}

	switch shape {
	case model.ShapeComposite:
		root, ok := record.(map[string]any)
		if !ok {
			add(model.SeverityCritical, "<root>", "composite record must be an object, got %s", typeName(record))
			return issues
		}
		for _, name := range requiredSections {
			if root[name] == nil {
				add(model.SeverityCritical, name, "required section %s is missing", name)
			}
		}
		for _, sec := range rules.Sections {
			raw, present := root[sec.Name]
			if !present || raw == nil {
				continue
			}
			section, ok := raw.(map[string]any)
			if !ok {
				add(model.SeverityCritical, sec.Name, "section %s must be an object, got %s", sec.Name, typeName(raw))
				continue
			}
			base := model.FieldPath{sec.Name}
			for _, f := range sec.Fields {
				if msg := checkPrimitive(section[f.Name], f.Rule.Numeric); msg != "" {
					add(model.SeverityMedium, base.Child(f.Name).String(), "%s", msg)
				}
			}
			if sec.Breakdown == "" || section[sec.Breakdown] == nil {
				continue
			}
			bd, ok := section[sec.Breakdown].(map[string]any)
			if !ok {
				add(model.SeverityMedium, base.Child(sec.Breakdown).String(),
					"breakdown must be an object, got %s", typeName(section[sec.Breakdown]))
				continue
			}
			for _, key := range unionKeys(bd, nil) {
				if msg := checkPrimitive(bd[key], true); msg != "" {
					add(model.SeverityLow, base.Child(sec.Breakdown, key).String(), "%s", msg)
				}
			}
		}

	case model.ShapeCollection:
		entries, ok := record.([]any)
		if !ok {
			add(model.SeverityCritical, "<root>", "collection record must be a list, got %s", typeName(record))
			return issues
		}
		if len(entries) == 0 {
			add(model.SeverityMedium, "<root>", "collection has no entries")
		}
		for i, e := range entries {
			base := model.FieldPath{model.Index(i)}
			entry, ok := e.(map[string]any)
			if !ok {
				add(model.SeverityCritical, base.String(), "collection entry must be an object, got %s", typeName(e))
				continue
			}
			for _, f := range rules.CollectionFields {
				if msg := checkPrimitive(entry[f.Name], f.Rule.Numeric); msg != "" {
					add(model.SeverityMedium, base.Child(f.Name).String(), "%s", msg)
				}
			}
		}

	default:
		add(model.SeverityCritical, "<root>", "unknown shape %q", shape)
	}
	return issues
}

// checkPrimitive returns a problem description, or "" when v is acceptable.
// Null is always acceptable.
func checkPrimitive(v any, numeric bool) string {
	switch v.(type) {
	case nil:
		return ""
	case map[string]any, []any:
		return fmt.Sprintf("expected a primitive value, got %s", typeName(v))
	}
	if numeric {
		if _, ok := toFloat64(v); !ok {
			return fmt.Sprintf("expected a numeric value, got %s %v", typeName(v), v)
		}
	}
	return ""
}
