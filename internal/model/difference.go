package model

// Severity ranks how much a difference or issue matters.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from low (1) to critical (4). Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// ParseSeverity returns the severity named by s, or false if unknown.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(s)
	return sev, sev.Rank() > 0
}

// IssueType classifies the transition between two values.
type IssueType string

const (
	IssueRemovedFabrication IssueType = "removed_fabrication"
	IssueAddedMissingData   IssueType = "added_missing_data"
	IssueStringModification IssueType = "string_modification"
	IssueValueChange        IssueType = "value_change"
	IssueNumericDiscrepancy IssueType = "numeric_discrepancy"
	IssueTypeMismatch       IssueType = "type_mismatch"
)

// Difference describes one location where two records disagree.
type Difference struct {
	Path         string    `json:"path"`
	Severity     Severity  `json:"severity"`
	LeftValue    any       `json:"left_value"`
	RightValue   any       `json:"right_value"`
	IssueType    IssueType `json:"issue_type"`
	Notes        string    `json:"notes,omitempty"`
	AbsoluteDiff *float64  `json:"absolute_diff,omitempty"`
	PercentDiff  *float64  `json:"percent_diff,omitempty"`
	Structural   bool      `json:"structural,omitempty"`
}

// ComparisonStats counts compared locations. Every comparison increments
// exactly one of Identical or Different.
type ComparisonStats struct {
	Compared  int `json:"compared"`
	Different int `json:"different"`
	Identical int `json:"identical"`
}

// ComparisonReport is the result of comparing two whole records.
type ComparisonReport struct {
	Shape       Shape           `json:"shape"`
	Differences []Difference    `json:"differences"`
	Stats       ComparisonStats `json:"stats"`
}

// CountBySeverity tallies differences per severity.
func (r *ComparisonReport) CountBySeverity() map[Severity]int {
	out := make(map[Severity]int)
	for _, d := range r.Differences {
		out[d.Severity]++
	}
	return out
}

// CountByIssueType tallies differences per issue type.
func (r *ComparisonReport) CountByIssueType() map[IssueType]int {
	out := make(map[IssueType]int)
	for _, d := range r.Differences {
		out[d.IssueType]++
	}
	return out
}
