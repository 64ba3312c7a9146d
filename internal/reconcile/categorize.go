package reconcile

import (
	"strings"

	"github.com/sells-group/recon-cli/internal/model"
)

// Categorize classifies the transition from before to after. A value that
// disappears is read as fabrication on the before side; a value that appears
// is read as previously missing data; a string that contains (or is contained
// in) the other is a normalization rather than a semantic change.
func Categorize(before, after any) model.IssueType {
	switch {
	case before != nil && after == nil:
		return model.IssueRemovedFabrication
	case before == nil && after != nil:
		return model.IssueAddedMissingData
	}
	if bs, ok := before.(string); ok {
		if as, ok := after.(string); ok && isSubstringPair(bs, as) {
			return model.IssueStringModification
		}
	}
	return model.IssueValueChange
}

func isSubstringPair(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}
