package reconcile

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/recon-cli/internal/model"
)

var severityOrder = []model.Severity{
	model.SeverityCritical,
	model.SeverityHigh,
	model.SeverityMedium,
	model.SeverityLow,
}

// FormatComparison renders a comparison report as markdown.
func FormatComparison(r *model.ComparisonReport) string {
	p := message.NewPrinter(language.English)
	s := SummarizeComparison(r)
	var b strings.Builder

	b.WriteString("# Comparison Report\n\n")
	p.Fprintf(&b, "**Shape:** %s\n\n", r.Shape)
	p.Fprintf(&b, "**Fields compared:** %d | **Identical:** %d | **Different:** %d\n\n",
		s.Stats.Compared, s.Stats.Identical, s.Stats.Different)
	p.Fprintf(&b, "**Agreement:** %.1f%%\n\n", s.Confidence)
	fmt.Fprintf(&b, "**Recommendation:** %s\n\n", s.Recommendation)

	if len(r.Differences) == 0 {
		b.WriteString("No differences found.\n")
		return b.String()
	}

	b.WriteString("## By Severity\n\n")
	for _, sev := range severityOrder {
		if n := s.BySeverity[sev]; n > 0 {
			p.Fprintf(&b, "- %s: %d\n", sev, n)
		}
	}
	b.WriteString("\n## Differences\n\n")
	b.WriteString("| Path | Severity | Issue | Left | Right | Notes |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, d := range r.Differences {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			d.Path, d.Severity, d.IssueType, cell(d.LeftValue), cell(d.RightValue), escapeCell(d.Notes))
	}
	return b.String()
}

// FormatAudit renders an audit result as markdown.
func FormatAudit(v model.ValidationResult) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	b.WriteString("# Calculation Audit\n\n")
	status := "valid"
	if !v.IsValid {
		status = "INVALID"
	}
	fmt.Fprintf(&b, "**Status:** %s\n\n", status)

	if len(v.Checks) > 0 {
		b.WriteString("## Checks\n\n")
		b.WriteString("| Check | Computed | Stated | Difference | Tolerance | OK |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, c := range v.Checks {
			ok := "yes"
			if !c.WithinTolerance {
				ok = "no"
			}
			p.Fprintf(&b, "| %s | %.2f | %.2f | %.2f | %.2f | %s |\n",
				c.Description, c.ComputedSum, c.StatedTotal, c.AbsoluteDiff, c.Tolerance, ok)
		}
		b.WriteString("\n")
	}

	if len(v.Issues) == 0 {
		b.WriteString("No issues found.\n")
		return b.String()
	}
	b.WriteString("## Issues\n\n")
	for _, is := range v.Issues {
		fmt.Fprintf(&b, "- **%s** `%s`: %s\n", is.Severity, is.Path, is.Description)
	}
	return b.String()
}

// FormatResult renders a reconciliation result as markdown.
func FormatResult(r *Result) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	b.WriteString("# Reconciliation Result\n\n")
	fmt.Fprintf(&b, "**Shape:** %s\n\n", r.Shape)
	if r.Assessment.Confidence != nil {
		p.Fprintf(&b, "**Confidence:** %.1f%%\n\n", *r.Assessment.Confidence)
	} else {
		b.WriteString("**Confidence:** unknown\n\n")
	}
	fmt.Fprintf(&b, "**Recommendation:** %s\n\n", r.Assessment.Recommendation)

	if v := r.Verification; v != nil {
		b.WriteString("## Verification\n\n")
		p.Fprintf(&b, "- Correct: %d\n- Incorrect: %d\n- Uncertain: %d\n- Missing: %d\n- Fabricated: %d\n- Critical issues: %d\n\n",
			v.Correct, v.Incorrect, v.Uncertain, v.Missing, v.Fabricated, v.CriticalIssues)
	}

	if len(r.ShapeIssues) > 0 {
		b.WriteString("## Shape Issues\n\n")
		for _, is := range r.ShapeIssues {
			fmt.Fprintf(&b, "- **%s** `%s`: %s\n", is.Severity, is.Path, is.Description)
		}
		b.WriteString("\n")
	}

	if c := r.Corrections; c != nil && (len(c.Applied) > 0 || len(c.Skipped) > 0) {
		b.WriteString("## Corrections\n\n")
		b.WriteString("| Path | Action | Old | New | Source |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, e := range c.Applied {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", e.Path, e.Action, cell(e.OldValue), cell(e.NewValue), e.Source)
		}
		for _, e := range c.Skipped {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", e.Path, e.Action, cell(e.OldValue), cell(e.NewValue), escapeCell(e.Reason))
		}
		b.WriteString("\n")
	}

	b.WriteString(strings.Replace(FormatAudit(r.Audit), "# Calculation Audit", "## Calculation Audit", 1))
	return b.String()
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return escapeCell(x)
	default:
		if f, ok := toFloat64(v); ok && isNumber(v) {
			return formatNumber(f)
		}
		return escapeCell(fmt.Sprintf("%v", v))
	}
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
