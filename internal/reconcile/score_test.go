package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recon-cli/internal/model"
)

func TestRecommendComparison(t *testing.T) {
	tests := []struct {
		name string
		in   ComparisonSignals
		want string
	}{
		{"many fabrications", ComparisonSignals{Confidence: 99, Fabricated: 6}, RecStronglyUseCorrected},
		{"many critical", ComparisonSignals{Confidence: 99, Critical: 4}, RecStronglyUseCorrected},
		{"some fabrications", ComparisonSignals{Confidence: 99, Fabricated: 3}, RecUseCorrected},
		{"one critical", ComparisonSignals{Confidence: 99, Critical: 1}, RecUseCorrected},
		{"fabrication boundary", ComparisonSignals{Confidence: 99, Fabricated: 2, Differences: 2}, RecConsiderIncremental},
		{"low agreement", ComparisonSignals{Confidence: 79.9, Differences: 5}, RecCautionManualReview},
		{"identical", ComparisonSignals{Confidence: 100}, RecOptionalIdentical},
		{"few differences", ComparisonSignals{Confidence: 95, Differences: 1}, RecConsiderIncremental},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecommendComparison(tt.in))
		})
	}
}

func TestRecommendPostCorrection(t *testing.T) {
	tests := []struct {
		name string
		in   PostCorrectionSignals
		want string
	}{
		{"very low confidence", PostCorrectionSignals{Confidence: 59}, RecLowConfidence},
		{"many fabrications", PostCorrectionSignals{Confidence: 95, Fabricated: 6}, RecLowConfidence},
		{"many critical", PostCorrectionSignals{Confidence: 95, Critical: 6}, RecLowConfidence},
		{"low confidence", PostCorrectionSignals{Confidence: 74}, RecMediumConfidence},
		{"some fabrications", PostCorrectionSignals{Confidence: 95, Fabricated: 3}, RecMediumConfidence},
		{"some critical", PostCorrectionSignals{Confidence: 95, Critical: 3}, RecMediumConfidence},
		{"calculation issues", PostCorrectionSignals{Confidence: 95, HighCalcIssues: 3}, RecMediumConfidence},
		{"clean", PostCorrectionSignals{Confidence: 90}, RecHighConfidence},
		{"clean with calc issues", PostCorrectionSignals{Confidence: 92, HighCalcIssues: 2}, RecHighConfidence},
		{"one fabrication", PostCorrectionSignals{Confidence: 95, Fabricated: 1}, RecAcceptableConfidence},
		{"two critical", PostCorrectionSignals{Confidence: 95, Critical: 2}, RecAcceptableConfidence},
		{"middling", PostCorrectionSignals{Confidence: 80}, RecAcceptableConfidence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecommendPostCorrection(tt.in))
		})
	}
}

func TestTablesDiverge(t *testing.T) {
	// A single critical note already pushes the comparison table to
	// "use corrected" while the post-correction table stays in the high band.
	assert.Equal(t, RecUseCorrected, RecommendComparison(ComparisonSignals{Confidence: 95, Critical: 1, Differences: 1}))
	assert.Equal(t, RecAcceptableConfidence, RecommendPostCorrection(PostCorrectionSignals{Confidence: 95, Critical: 1}))
}

func TestConfidence(t *testing.T) {
	supplied := 87.5
	c, ok := Confidence(model.VerificationSummary{Correct: 1, Incorrect: 9, Confidence: &supplied})
	require.True(t, ok)
	assert.Equal(t, 87.5, c)

	c, ok = Confidence(model.VerificationSummary{Correct: 8, Incorrect: 1, Fabricated: 1})
	require.True(t, ok)
	assert.InDelta(t, 80, c, 1e-9)

	_, ok = Confidence(model.VerificationSummary{})
	assert.False(t, ok)
}

func TestScore(t *testing.T) {
	a := Score(model.VerificationSummary{Correct: 9, Fabricated: 1}, nil)
	require.NotNil(t, a.Confidence)
	assert.InDelta(t, 90, *a.Confidence, 1e-9)
	assert.Equal(t, RecAcceptableConfidence, a.Recommendation)

	audit := &model.ValidationResult{Issues: []model.Issue{
		{Severity: model.SeverityHigh}, {Severity: model.SeverityHigh}, {Severity: model.SeverityHigh},
	}}
	a = Score(model.VerificationSummary{Correct: 10}, audit)
	assert.Equal(t, RecMediumConfidence, a.Recommendation)

	a = Score(model.VerificationSummary{}, nil)
	assert.Nil(t, a.Confidence)
	assert.Equal(t, RecUnknownConfidence, a.Recommendation)
}

func TestSummarizeComparison(t *testing.T) {
	r := &model.ComparisonReport{
		Stats: model.ComparisonStats{Compared: 10, Identical: 7, Different: 3},
		Differences: []model.Difference{
			{Path: "a", Severity: model.SeverityCritical, IssueType: model.IssueRemovedFabrication},
			{Path: "b", Severity: model.SeverityHigh, IssueType: model.IssueNumericDiscrepancy},
			{Path: "c", Severity: model.SeverityLow, IssueType: model.IssueStringModification},
		},
	}
	s := SummarizeComparison(r)
	assert.InDelta(t, 70, s.Confidence, 1e-9)
	assert.Equal(t, 1, s.Fabricated)
	assert.Equal(t, 1, s.Critical)
	assert.Equal(t, RecUseCorrected, s.Recommendation)

	empty := SummarizeComparison(&model.ComparisonReport{})
	assert.Equal(t, 100.0, empty.Confidence)
	assert.Equal(t, RecOptionalIdentical, empty.Recommendation)
}
