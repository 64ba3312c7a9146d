package model

// Issue is a single problem raised by the calculation auditor or the shape
// validator.
type Issue struct {
	Severity    Severity `json:"severity"`
	Path        string   `json:"path"`
	Description string   `json:"description"`
	Magnitude   *float64 `json:"magnitude,omitempty"`
}

// CalculationCheck records one breakdown-sum-vs-total comparison.
type CalculationCheck struct {
	Description     string  `json:"description"`
	Path            string  `json:"path"`
	ComputedSum     float64 `json:"computed_sum"`
	StatedTotal     float64 `json:"stated_total"`
	AbsoluteDiff    float64 `json:"absolute_diff"`
	Tolerance       float64 `json:"tolerance"`
	WithinTolerance bool    `json:"within_tolerance"`
}

// ValidationResult is the outcome of auditing one record.
type ValidationResult struct {
	IsValid bool               `json:"is_valid"`
	Checks  []CalculationCheck `json:"checks"`
	Issues  []Issue            `json:"issues"`
	Summary map[Severity]int   `json:"summary"`
}

// HighIssueCount returns the number of high-severity issues.
func (v *ValidationResult) HighIssueCount() int {
	if v == nil {
		return 0
	}
	n := 0
	for _, is := range v.Issues {
		if is.Severity == SeverityHigh {
			n++
		}
	}
	return n
}
