package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recon-cli/internal/model"
)

func audit(t *testing.T, record string, shape model.Shape) model.ValidationResult {
	t.Helper()
	return AuditCalculations(decode(t, record), shape, DefaultAuditConfig(testNow))
}

func TestAudit_AreaSumMismatch(t *testing.T) {
	res := audit(t, `{"metrics": {"totalAreaSqm": 200, "areaByUsage": {"office": 100, "retail": 50}}}`, model.ShapeComposite)

	require.Len(t, res.Issues, 1)
	is := res.Issues[0]
	assert.Equal(t, model.SeverityHigh, is.Severity)
	assert.Equal(t, "metrics.totalAreaSqm", is.Path)
	require.NotNil(t, is.Magnitude)
	assert.InDelta(t, 50, *is.Magnitude, 1e-9)
	assert.False(t, res.IsValid)
	assert.Equal(t, 1, res.Summary[model.SeverityHigh])

	require.Len(t, res.Checks, 1)
	c := res.Checks[0]
	assert.InDelta(t, 150, c.ComputedSum, 1e-9)
	assert.InDelta(t, 200, c.StatedTotal, 1e-9)
	assert.InDelta(t, 50, c.AbsoluteDiff, 1e-9)
	// max(10, 200 * 0.02)
	assert.InDelta(t, 10, c.Tolerance, 1e-9)
	assert.False(t, c.WithinTolerance)
}

func TestAudit_NonFiniteBreakdownValuesAreIgnored(t *testing.T) {
	res := audit(t, `{"metrics": {"totalAreaSqm": 200, "areaByUsage": {"office": "Infinity", "retail": 195}}}`, model.ShapeComposite)

	require.Len(t, res.Checks, 1)
	assert.InDelta(t, 195, res.Checks[0].ComputedSum, 1e-9)
	assert.True(t, res.IsValid)

	res = audit(t, `{"metrics": {"totalAreaSqm": 200, "areaByUsage": {"office": "NaN"}}}`, model.ShapeComposite)
	assert.Empty(t, res.Checks)

	_, err := json.Marshal(res)
	assert.NoError(t, err)
}

func TestAudit_AreaSumWithinTolerance(t *testing.T) {
	res := audit(t, `{"metrics": {"totalAreaSqm": 10000, "areaByUsage": {"office": 7000, "retail": 2850}}}`, model.ShapeComposite)

	assert.Empty(t, res.Issues)
	assert.True(t, res.IsValid)
	require.Len(t, res.Checks, 1)
	assert.InDelta(t, 200, res.Checks[0].Tolerance, 1e-9)
	assert.True(t, res.Checks[0].WithinTolerance)
}

func TestAudit_IncomeSumMismatch(t *testing.T) {
	res := audit(t, `{"financials": {"annualIncome": 100000, "incomeByUsage": {"office": 50000, "retail": 30000}}}`, model.ShapeComposite)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, "financials.annualIncome", res.Issues[0].Path)
	assert.Equal(t, model.SeverityHigh, res.Issues[0].Severity)
	assert.InDelta(t, 2000, res.Checks[0].Tolerance, 1e-9)
	assert.False(t, res.IsValid)
}

func TestAudit_IncomeFloorTolerance(t *testing.T) {
	res := audit(t, `{"financials": {"annualIncome": 10000, "incomeByUsage": {"office": 9100}}}`, model.ShapeComposite)
	assert.Empty(t, res.Issues)
	assert.InDelta(t, 1000, res.Checks[0].Tolerance, 1e-9)
}

func TestAudit_OccupancyOutOfRange(t *testing.T) {
	res := audit(t, `{"metrics": {"occupancyPercent": 105}}`, model.ShapeComposite)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, model.SeverityHigh, res.Issues[0].Severity)
	assert.Equal(t, "metrics.occupancyPercent", res.Issues[0].Path)
	assert.Contains(t, res.Issues[0].Description, "outside valid range")
	assert.False(t, res.IsValid)
}

func TestAudit_CompletionBeforeBuilt(t *testing.T) {
	res := audit(t, `{"metrics": {"builtYear": 2015}, "project": {"completionYear": 2010}}`, model.ShapeComposite)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, model.SeverityHigh, res.Issues[0].Severity)
	assert.Equal(t, "project.completionYear", res.Issues[0].Path)
	assert.Contains(t, res.Issues[0].Description, "logically impossible")
	assert.False(t, res.IsValid)
}

func TestAudit_CompletionYearInMetrics(t *testing.T) {
	res := audit(t, `{"metrics": {"builtYear": 2015, "completionYear": 2010}}`, model.ShapeComposite)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, "metrics.completionYear", res.Issues[0].Path)
}

func TestAudit_BuiltYearRange(t *testing.T) {
	tests := []struct {
		year  string
		issue bool
	}{
		{"1799", true},
		{"1800", false},
		{"2034", false},
		{"2035", true},
	}
	for _, tt := range tests {
		t.Run(tt.year, func(t *testing.T) {
			res := audit(t, `{"metrics": {"builtYear": `+tt.year+`}}`, model.ShapeComposite)
			if !tt.issue {
				assert.Empty(t, res.Issues)
				return
			}
			require.Len(t, res.Issues, 1)
			assert.Equal(t, model.SeverityMedium, res.Issues[0].Severity)
			assert.True(t, res.IsValid, "medium issues do not invalidate")
		})
	}
}

func TestAudit_Collection(t *testing.T) {
	res := audit(t, `[
		{"name": "A", "builtYear": 1750, "occupancyPercent": 95},
		{"name": "B", "builtYear": 2001, "completionYear": 1999, "occupancyPercent": -5},
		"not an entry"
	]`, model.ShapeCollection)

	assert.Empty(t, res.Checks, "no sum checks for collections")
	require.Len(t, res.Issues, 3)
	assert.Equal(t, "[0].builtYear", res.Issues[0].Path)
	assert.Equal(t, model.SeverityMedium, res.Issues[0].Severity)
	assert.Equal(t, "[1].completionYear", res.Issues[1].Path)
	assert.Equal(t, "[1].occupancyPercent", res.Issues[2].Path)
	assert.False(t, res.IsValid)
	assert.Equal(t, 2, res.Summary[model.SeverityHigh])
	assert.Equal(t, 1, res.Summary[model.SeverityMedium])
}

func TestAudit_AbsentSectionsAreSilent(t *testing.T) {
	for _, rec := range []any{nil, map[string]any{}, []any{}, "text"} {
		res := AuditCalculations(rec, model.ShapeComposite, DefaultAuditConfig(testNow))
		assert.True(t, res.IsValid)
		assert.Empty(t, res.Issues)
	}
	res := AuditCalculations(nil, model.ShapeCollection, DefaultAuditConfig(testNow))
	assert.True(t, res.IsValid)
}

func TestAudit_DoesNotAdjustTotals(t *testing.T) {
	rec := decode(t, `{"metrics": {"totalAreaSqm": 200, "areaByUsage": {"office": 100, "retail": 50}}}`)
	before := snapshot(t, rec)
	AuditCalculations(rec, model.ShapeComposite, DefaultAuditConfig(testNow))
	assert.Equal(t, before, snapshot(t, rec))
}
