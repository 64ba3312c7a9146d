package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recon-cli/internal/model"
)

func findDiff(r *model.ComparisonReport, path string) *model.Difference {
	for i := range r.Differences {
		if r.Differences[i].Path == path {
			return &r.Differences[i]
		}
	}
	return nil
}

func assertStatsInvariant(t *testing.T, r *model.ComparisonReport) {
	t.Helper()
	assert.Equal(t, r.Stats.Compared, r.Stats.Identical+r.Stats.Different)
	assert.Equal(t, r.Stats.Different, len(r.Differences))
}

func TestCompareRecords_CompositeIdentical(t *testing.T) {
	left := sampleComposite(t)
	right := sampleComposite(t)

	r := CompareRecords(left, right, model.ShapeComposite)
	assert.Empty(t, r.Differences)
	// 19 manifest fields, 3 area keys, 2 income keys.
	assert.Equal(t, 24, r.Stats.Compared)
	assert.Equal(t, 24, r.Stats.Identical)
	assertStatsInvariant(t, r)
}

func TestCompareRecords_CompositeDifferences(t *testing.T) {
	left := sampleComposite(t)
	right := sampleComposite(t)

	rm := right.(map[string]any)
	metrics := rm["metrics"].(map[string]any)
	delete(metrics, "landAreaSqm")
	metrics["totalAreaSqm"] = 18500.5
	metrics["areaByUsage"].(map[string]any)["parking"] = 3000.0
	delete(metrics["areaByUsage"].(map[string]any), "storage")
	rm["identity"].(map[string]any)["city"] = "Ingolstadt"
	rm["financials"].(map[string]any)["annualIncome"] = 2600000.0

	r := CompareRecords(left, right, model.ShapeComposite)
	assertStatsInvariant(t, r)

	d := findDiff(r, "metrics.landAreaSqm")
	require.NotNil(t, d)
	assert.Equal(t, model.IssueRemovedFabrication, d.IssueType)
	assert.Equal(t, model.SeverityCritical, d.Severity)

	assert.Nil(t, findDiff(r, "metrics.totalAreaSqm"), "within area tolerance")

	d = findDiff(r, "metrics.areaByUsage.parking")
	require.NotNil(t, d)
	assert.Equal(t, model.IssueAddedMissingData, d.IssueType)
	assert.Equal(t, model.SeverityHigh, d.Severity)

	d = findDiff(r, "metrics.areaByUsage.storage")
	require.NotNil(t, d)
	assert.Equal(t, model.IssueRemovedFabrication, d.IssueType)

	d = findDiff(r, "identity.city")
	require.NotNil(t, d)
	assert.Equal(t, model.IssueStringModification, d.IssueType)
	assert.Equal(t, model.SeverityMedium, d.Severity)

	d = findDiff(r, "financials.annualIncome")
	require.NotNil(t, d)
	assert.Equal(t, model.IssueNumericDiscrepancy, d.IssueType)
	assert.Contains(t, d.Notes, "large discrepancy")

	assert.Equal(t, 25, r.Stats.Compared)
	assert.Equal(t, 5, r.Stats.Different)
}

func TestCompareRecords_CompositeSectionNotObject(t *testing.T) {
	left := sampleComposite(t)
	right := sampleComposite(t)
	right.(map[string]any)["metrics"] = "see attachment"

	r := CompareRecords(left, right, model.ShapeComposite)
	assertStatsInvariant(t, r)

	d := findDiff(r, "metrics")
	require.NotNil(t, d)
	assert.True(t, d.Structural)
	assert.Equal(t, model.SeverityCritical, d.Severity)
	assert.Equal(t, model.IssueTypeMismatch, d.IssueType)
	assert.Nil(t, findDiff(r, "metrics.landAreaSqm"))
}

func TestCompareRecords_CompositeMissingSectionComparesAgainstNull(t *testing.T) {
	left := decode(t, `{"identity": {"name": "A"}}`)
	right := decode(t, `{"identity": {"name": "A"}, "units": {"parkingSpaces": 12}}`)

	r := CompareRecords(left, right, model.ShapeComposite)
	assertStatsInvariant(t, r)
	require.Len(t, r.Differences, 1)
	assert.Equal(t, "units.parkingSpaces", r.Differences[0].Path)
	assert.Equal(t, model.IssueAddedMissingData, r.Differences[0].IssueType)
}

func TestCompareRecords_CompositeRootNotObject(t *testing.T) {
	r := CompareRecords([]any{}, map[string]any{}, model.ShapeComposite)
	require.Len(t, r.Differences, 1)
	assert.Equal(t, "<root>", r.Differences[0].Path)
	assert.Equal(t, model.SeverityCritical, r.Differences[0].Severity)
	assertStatsInvariant(t, r)
}

func TestCompareRecords_CollectionLengthMismatch(t *testing.T) {
	left := decode(t, `[
		{"name": "A", "builtYear": 1999, "landAreaSqm": 1200},
		{"name": "B", "builtYear": 2005}
	]`)
	right := decode(t, `[
		{"name": "A", "builtYear": 1999, "landAreaSqm": 1200}
	]`)

	r := CompareRecords(left, right, model.ShapeCollection)
	assertStatsInvariant(t, r)
	assert.Equal(t, model.ShapeCollection, r.Shape)

	d := findDiff(r, "<length>")
	require.NotNil(t, d)
	assert.True(t, d.Structural)
	assert.Equal(t, model.SeverityCritical, d.Severity)
	assert.Equal(t, 2, d.LeftValue)
	assert.Equal(t, 1, d.RightValue)

	d = findDiff(r, "[1]")
	require.NotNil(t, d)
	assert.True(t, d.Structural)
	assert.Equal(t, model.IssueRemovedFabrication, d.IssueType)
	assert.Nil(t, findDiff(r, "[1].name"), "missing entry is not compared field by field")

	// length + 10 fields of entry 0 + structural entry 1
	assert.Equal(t, 12, r.Stats.Compared)
	assert.Equal(t, 2, r.Stats.Different)
}

func TestCompareRecords_CollectionFieldDifferences(t *testing.T) {
	left := decode(t, `[{"name": "A", "occupancyPercent": 90, "annualIncome": 50000}]`)
	right := decode(t, `[{"name": "A", "occupancyPercent": 90.4, "annualIncome": 52000}]`)

	r := CompareRecords(left, right, model.ShapeCollection)
	assertStatsInvariant(t, r)
	require.Len(t, r.Differences, 1)
	assert.Equal(t, "[0].annualIncome", r.Differences[0].Path)
	assert.Equal(t, model.IssueNumericDiscrepancy, r.Differences[0].IssueType)
}

func TestCompareRecords_CollectionEntryNotObject(t *testing.T) {
	left := decode(t, `[{"name": "A"}]`)
	right := decode(t, `["A"]`)

	r := CompareRecords(left, right, model.ShapeCollection)
	require.Len(t, r.Differences, 1)
	assert.Equal(t, "[0]", r.Differences[0].Path)
	assert.Equal(t, model.IssueTypeMismatch, r.Differences[0].IssueType)
	assert.True(t, r.Differences[0].Structural)
}

func TestCompareRecords_CollectionRootNotList(t *testing.T) {
	r := CompareRecords(map[string]any{}, []any{}, model.ShapeCollection)
	require.Len(t, r.Differences, 1)
	assert.Equal(t, "<root>", r.Differences[0].Path)
}

func TestComparator_CustomRules(t *testing.T) {
	rules := DefaultRules()
	tol := 5000.0
	require.NoError(t, rules.Apply(map[string]RuleOverride{"financials.annualIncome": {Tolerance: &tol}}))

	left := decode(t, `{"financials": {"annualIncome": 100000}}`)
	right := decode(t, `{"financials": {"annualIncome": 104000}}`)

	assert.NotEmpty(t, CompareRecords(left, right, model.ShapeComposite).Differences)
	assert.Empty(t, NewComparator(rules).Compare(left, right, model.ShapeComposite).Differences)
}
