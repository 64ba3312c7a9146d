package reconcile

import (
	"github.com/sells-group/recon-cli/internal/model"
)

// Comparison-report recommendations.
const (
	RecStronglyUseCorrected = "strongly recommended: use corrected"
	RecUseCorrected         = "recommended: use corrected"
	RecCautionManualReview  = "caution: manual review"
	RecOptionalIdentical    = "optional: identical results"
	RecConsiderIncremental  = "consider: incremental improvement"
)

// Post-correction recommendations.
const (
	RecLowConfidence        = "low confidence: manual review strongly recommended"
	RecMediumConfidence     = "medium confidence: review recommended"
	RecHighConfidence       = "high confidence"
	RecAcceptableConfidence = "acceptable confidence: spot checks recommended"
	RecUnknownConfidence    = "unknown confidence: verification unavailable, manual review recommended"
)

// ComparisonSignals are the inputs of the comparison-report table.
type ComparisonSignals struct {
	Confidence  float64
	Fabricated  int
	Critical    int
	Differences int
}

// RecommendComparison applies the comparison-report table, used before any
// correction has been applied. The first matching rule wins.
func RecommendComparison(s ComparisonSignals) string {
	switch {
	case s.Fabricated > 5 || s.Critical > 3:
		return RecStronglyUseCorrected
	case s.Fabricated > 2 || s.Critical > 0:
		return RecUseCorrected
	case s.Confidence < 80:
		return RecCautionManualReview
	case s.Differences == 0:
		return RecOptionalIdentical
	default:
		return RecConsiderIncremental
	}
}

// PostCorrectionSignals are the inputs of the post-correction table.
type PostCorrectionSignals struct {
	Confidence     float64
	Fabricated     int
	Critical       int
	HighCalcIssues int
}

// RecommendPostCorrection applies the post-correction table, used after the
// correction applicator has run. Its thresholds differ from
// RecommendComparison on purpose; the two are not interchangeable.
func RecommendPostCorrection(s PostCorrectionSignals) string {
	switch {
	case s.Confidence < 60 || s.Fabricated > 5 || s.Critical > 5:
		return RecLowConfidence
	case s.Confidence < 75 || s.Fabricated > 2 || s.Critical > 2 || s.HighCalcIssues > 2:
		return RecMediumConfidence
	case s.Confidence >= 90 && s.Fabricated == 0 && s.Critical == 0:
		return RecHighConfidence
	default:
		return RecAcceptableConfidence
	}
}

// Confidence returns the supplied confidence when present, otherwise
// correct/total*100. It reports false when neither is available.
func Confidence(s model.VerificationSummary) (float64, bool) {
	if s.Confidence != nil {
		return *s.Confidence, true
	}
	total := s.Total()
	if total == 0 {
		return 0, false
	}
	return float64(s.Correct) / float64(total) * 100, true
}

// Assessment is the scored outcome of a reconciliation.
type Assessment struct {
	Confidence     *float64 `json:"confidence"`
	Recommendation string   `json:"recommendation"`
}

// Score combines a verification summary and an audit result into a
// confidence value and a post-correction recommendation.
func Score(summary model.VerificationSummary, audit *model.ValidationResult) Assessment {
	conf, ok := Confidence(summary)
	if !ok {
		return Assessment{Recommendation: RecUnknownConfidence}
	}
	return Assessment{
		Confidence: ptr(conf),
		Recommendation: RecommendPostCorrection(PostCorrectionSignals{
			Confidence:     conf,
			Fabricated:     summary.Fabricated,
			Critical:       summary.CriticalIssues,
			HighCalcIssues: audit.HighIssueCount(),
		}),
	}
}

// ComparisonSummary aggregates a comparison report for display.
type ComparisonSummary struct {
	Stats          model.ComparisonStats   `json:"stats"`
	BySeverity     map[model.Severity]int  `json:"by_severity"`
	ByIssueType    map[model.IssueType]int `json:"by_issue_type"`
	Fabricated     int                     `json:"fabricated"`
	Critical       int                     `json:"critical"`
	Confidence     float64                 `json:"confidence"`
	Recommendation string                  `json:"recommendation"`
}

// SummarizeComparison derives counts, an agreement-based confidence and the
// comparison-report recommendation.
func SummarizeComparison(r *model.ComparisonReport) ComparisonSummary {
	s := ComparisonSummary{
		Stats:       r.Stats,
		BySeverity:  r.CountBySeverity(),
		ByIssueType: r.CountByIssueType(),
		Confidence:  100,
	}
	s.Fabricated = s.ByIssueType[model.IssueRemovedFabrication]
	s.Critical = s.BySeverity[model.SeverityCritical]
	if r.Stats.Compared > 0 {
		s.Confidence = float64(r.Stats.Identical) / float64(r.Stats.Compared) * 100
	}
	s.Recommendation = RecommendComparison(ComparisonSignals{
		Confidence:  s.Confidence,
		Fabricated:  s.Fabricated,
		Critical:    s.Critical,
		Differences: len(r.Differences),
	})
	return s
}
