package reconcile

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/model"
)

// ParseVerificationReport decodes verifier output. The text may be wrapped in
// markdown code fences or prose. A bare JSON array is read as the finding
// list. Statuses are normalized to upper case.
func ParseVerificationReport(text string) (*model.VerificationReport, error) {
	cleaned := CleanJSON(text)
	if cleaned == "" {
		return nil, eris.New("reconcile: empty verification report")
	}

	var report model.VerificationReport
	if strings.HasPrefix(cleaned, "[") {
		if err := json.Unmarshal([]byte(cleaned), &report.Findings); err != nil {
			return nil, eris.Wrap(err, "reconcile: parse finding list")
		}
	} else {
		var keys map[string]json.RawMessage
		if err := json.Unmarshal([]byte(cleaned), &keys); err != nil {
			return nil, eris.Wrap(err, "reconcile: parse verification report")
		}
		if _, ok := keys["findings"]; !ok {
			return nil, eris.New("reconcile: verification report has no findings")
		}
		if err := json.Unmarshal([]byte(cleaned), &report); err != nil {
			return nil, eris.Wrap(err, "reconcile: decode verification report")
		}
	}

	for i := range report.Findings {
		report.Findings[i].Status = model.FindingStatus(strings.ToUpper(strings.TrimSpace(string(report.Findings[i].Status))))
	}
	return &report, nil
}

// CleanJSON extracts a JSON object or array from text that may contain
// markdown code fences or surrounding prose.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")
	if arrStart >= 0 && (objStart < 0 || arrStart < objStart) {
		if end := strings.LastIndex(text, "]"); end > arrStart {
			return strings.TrimSpace(text[arrStart : end+1])
		}
	}
	if objStart >= 0 {
		if end := strings.LastIndex(text, "}"); end > objStart {
			return strings.TrimSpace(text[objStart : end+1])
		}
	}
	return strings.TrimSpace(text)
}
