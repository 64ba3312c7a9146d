// Package export writes reconciliation reports to XLSX workbooks and reads
// collection records from spreadsheets.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/reconcile"
)

// Sheet names used in exported workbooks.
const (
	SheetSummary     = "Summary"
	SheetDifferences = "Differences"
	SheetChecks      = "Checks"
	SheetIssues      = "Issues"
	SheetCorrections = "Corrections"
)

// Workbook accumulates report sheets.
type Workbook struct {
	file *xlsx.File
}

// NewWorkbook returns an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{file: xlsx.NewFile()}
}

// Save writes the workbook to path.
func (w *Workbook) Save(path string) error {
	return eris.Wrapf(w.file.Save(path), "export: save %s", path)
}

// Write streams the workbook to out.
func (w *Workbook) Write(out io.Writer) error {
	return eris.Wrap(w.file.Write(out), "export: write workbook")
}

func (w *Workbook) sheet(name string, header ...string) (*xlsx.Sheet, error) {
	sh, err := w.file.AddSheet(name)
	if err != nil {
		return nil, eris.Wrapf(err, "export: add sheet %s", name)
	}
	row := sh.AddRow()
	for _, h := range header {
		c := row.AddCell()
		c.SetString(h)
		c.GetStyle().Font.Bold = true
	}
	return sh, nil
}

// AddComparison adds a summary sheet and one row per difference.
func (w *Workbook) AddComparison(r *model.ComparisonReport) error {
	s := reconcile.SummarizeComparison(r)
	summary, err := w.sheet(SheetSummary, "Metric", "Value")
	if err != nil {
		return err
	}
	pair(summary, "Shape", string(r.Shape))
	pair(summary, "Fields compared", r.Stats.Compared)
	pair(summary, "Identical", r.Stats.Identical)
	pair(summary, "Different", r.Stats.Different)
	pair(summary, "Agreement %", s.Confidence)
	pair(summary, "Recommendation", s.Recommendation)

	diffs, err := w.sheet(SheetDifferences, "Path", "Severity", "Issue", "Left", "Right", "Abs diff", "% diff", "Notes")
	if err != nil {
		return err
	}
	for _, d := range r.Differences {
		row := diffs.AddRow()
		setValue(row.AddCell(), d.Path)
		setValue(row.AddCell(), string(d.Severity))
		setValue(row.AddCell(), string(d.IssueType))
		setValue(row.AddCell(), d.LeftValue)
		setValue(row.AddCell(), d.RightValue)
		setOptional(row.AddCell(), d.AbsoluteDiff)
		setOptional(row.AddCell(), d.PercentDiff)
		setValue(row.AddCell(), d.Notes)
	}
	return nil
}

// AddAudit adds the calculation checks and the issue list.
func (w *Workbook) AddAudit(v model.ValidationResult) error {
	checks, err := w.sheet(SheetChecks, "Check", "Path", "Computed sum", "Stated total", "Abs diff", "Tolerance", "Within tolerance")
	if err != nil {
		return err
	}
	for _, c := range v.Checks {
		row := checks.AddRow()
		setValue(row.AddCell(), c.Description)
		setValue(row.AddCell(), c.Path)
		row.AddCell().SetFloat(c.ComputedSum)
		row.AddCell().SetFloat(c.StatedTotal)
		row.AddCell().SetFloat(c.AbsoluteDiff)
		row.AddCell().SetFloat(c.Tolerance)
		row.AddCell().SetBool(c.WithinTolerance)
	}

	issues, err := w.sheet(SheetIssues, "Severity", "Path", "Description", "Magnitude")
	if err != nil {
		return err
	}
	for _, is := range v.Issues {
		row := issues.AddRow()
		setValue(row.AddCell(), string(is.Severity))
		setValue(row.AddCell(), is.Path)
		setValue(row.AddCell(), is.Description)
		setOptional(row.AddCell(), is.Magnitude)
	}
	return nil
}

// AddCorrections lists applied corrections followed by skipped ones.
func (w *Workbook) AddCorrections(c *reconcile.CorrectionResult) error {
	sh, err := w.sheet(SheetCorrections, "Path", "Action", "Status", "Issue", "Old", "New", "Source", "Reason")
	if err != nil {
		return err
	}
	for _, list := range [][]reconcile.Correction{c.Applied, c.Skipped} {
		for _, corr := range list {
			row := sh.AddRow()
			setValue(row.AddCell(), corr.Path)
			setValue(row.AddCell(), string(corr.Action))
			setValue(row.AddCell(), string(corr.Status))
			setValue(row.AddCell(), string(corr.IssueType))
			setValue(row.AddCell(), corr.OldValue)
			setValue(row.AddCell(), corr.NewValue)
			setValue(row.AddCell(), corr.Source)
			setValue(row.AddCell(), corr.Reason)
		}
	}
	return nil
}

// AddResult adds every sheet describing a reconciliation.
func (w *Workbook) AddResult(r *reconcile.Result) error {
	if err := w.AddComparison(r.Changes); err != nil {
		return err
	}
	summary := w.file.Sheet[SheetSummary]
	if c := r.Assessment.Confidence; c != nil {
		pair(summary, "Confidence %", *c)
	} else {
		pair(summary, "Confidence %", "unknown")
	}
	pair(summary, "Assessment", r.Assessment.Recommendation)
	pair(summary, "Shape issues", len(r.ShapeIssues))

	if err := w.AddCorrections(r.Corrections); err != nil {
		return err
	}
	return w.AddAudit(r.Audit)
}

func pair(sh *xlsx.Sheet, key string, value any) {
	row := sh.AddRow()
	row.AddCell().SetString(key)
	setValue(row.AddCell(), value)
}

func setOptional(c *xlsx.Cell, f *float64) {
	if f != nil {
		c.SetFloat(*f)
	}
}

func setValue(c *xlsx.Cell, v any) {
	switch x := v.(type) {
	case nil:
	case string:
		c.SetString(x)
	case bool:
		c.SetBool(x)
	case int:
		c.SetInt(x)
	case float64:
		c.SetFloat(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			c.SetFloat(f)
		} else {
			c.SetString(x.String())
		}
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			c.SetString(fmt.Sprintf("%v", x))
			return
		}
		c.SetString(string(b))
	default:
		c.SetString(fmt.Sprintf("%v", x))
	}
}

// ReadCollection reads a sheet whose first row names the fields into a
// collection record. Empty cells are left out of the entry; numeric cells
// become float64. sheetName may be empty for the first sheet.
func ReadCollection(path, sheetName string) ([]any, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open %s", path)
	}

	var sh *xlsx.Sheet
	if sheetName != "" {
		var ok bool
		if sh, ok = f.Sheet[sheetName]; !ok {
			return nil, eris.Errorf("export: sheet %q not found", sheetName)
		}
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.Errorf("export: %s has no sheets", path)
		}
		sh = f.Sheets[0]
	}
	if len(sh.Rows) == 0 {
		return []any{}, nil
	}

	header := make([]string, len(sh.Rows[0].Cells))
	for i, c := range sh.Rows[0].Cells {
		header[i] = strings.TrimSpace(c.String())
	}

	entries := make([]any, 0, len(sh.Rows)-1)
	for _, row := range sh.Rows[1:] {
		entry := make(map[string]any)
		for i, c := range row.Cells {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if v, ok := cellValue(c); ok {
				entry[header[i]] = v
			}
		}
		if len(entry) > 0 {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func cellValue(c *xlsx.Cell) (any, bool) {
	switch c.Type() {
	case xlsx.CellTypeNumeric:
		if f, err := c.Float(); err == nil {
			return f, true
		}
	case xlsx.CellTypeBool:
		return c.Bool(), true
	}
	s := strings.TrimSpace(c.String())
	if s == "" {
		return nil, false
	}
	return s, true
}
