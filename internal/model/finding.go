package model

import (
	"bytes"
	"encoding/json"
)

// FindingStatus is the verifier's judgment about one field.
type FindingStatus string

const (
	StatusCorrect    FindingStatus = "CORRECT"
	StatusIncorrect  FindingStatus = "INCORRECT"
	StatusUncertain  FindingStatus = "UNCERTAIN"
	StatusMissing    FindingStatus = "MISSING"
	StatusFabricated FindingStatus = "FABRICATED"
)

// OptionalValue is a JSON value that remembers whether it was present at all.
// An explicit null is present; an omitted key is not.
type OptionalValue struct {
	Value any
	Set   bool
}

// Some wraps v as a present value.
func Some(v any) OptionalValue {
	return OptionalValue{Value: v, Set: true}
}

// UnmarshalJSON marks the value as present, including for a literal null.
func (o *OptionalValue) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON encodes the wrapped value. Absent values encode as null; use
// omitempty-free fields and IsZero to drop them.
func (o OptionalValue) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// IsZero lets encoding/json's omitzero drop absent values.
func (o OptionalValue) IsZero() bool {
	return !o.Set
}

// Finding is one per-field judgment produced by the external verification pass.
type Finding struct {
	Path           string        `json:"path"`
	Status         FindingStatus `json:"status"`
	ExtractedValue any           `json:"extracted_value"`
	CorrectValue   OptionalValue `json:"correct_value,omitzero"`
	SourceLocation string        `json:"source_location,omitempty"`
	Notes          string        `json:"notes,omitempty"`
}

// VerificationReport is the structured output of the verification pass.
type VerificationReport struct {
	Findings       []Finding `json:"findings"`
	CriticalIssues []string  `json:"critical_issues,omitempty"`
	Confidence     *float64  `json:"confidence,omitempty"`
	Summary        string    `json:"summary,omitempty"`
}

// VerificationSummary counts findings by status.
type VerificationSummary struct {
	Correct        int      `json:"correct"`
	Incorrect      int      `json:"incorrect"`
	Uncertain      int      `json:"uncertain"`
	Missing        int      `json:"missing"`
	Fabricated     int      `json:"fabricated"`
	CriticalIssues int      `json:"critical_issues"`
	Confidence     *float64 `json:"confidence,omitempty"`
}

// Total is the number of findings that carried a status.
func (s VerificationSummary) Total() int {
	return s.Correct + s.Incorrect + s.Uncertain + s.Missing + s.Fabricated
}

// Summarize counts the report's findings. Unknown statuses are ignored.
func (r *VerificationReport) Summarize() VerificationSummary {
	var s VerificationSummary
	if r == nil {
		return s
	}
	for _, f := range r.Findings {
		switch f.Status {
		case StatusCorrect:
			s.Correct++
		case StatusIncorrect:
			s.Incorrect++
		case StatusUncertain:
			s.Uncertain++
		case StatusMissing:
			s.Missing++
		case StatusFabricated:
			s.Fabricated++
		}
	}
	s.CriticalIssues = len(r.CriticalIssues)
	s.Confidence = r.Confidence
	return s
}
