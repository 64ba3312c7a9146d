package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/recon-cli/internal/model"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name   string
		before any
		after  any
		want   model.IssueType
	}{
		{"value removed", 42277.0, nil, model.IssueRemovedFabrication},
		{"value added", nil, "Ingolstadt", model.IssueAddedMissingData},
		{"right substring of left", "Gaimersheim/Ingolstadt", "Ingolstadt", model.IssueStringModification},
		{"left substring of right", "Westpark", "Westpark Office Campus", model.IssueStringModification},
		{"unrelated strings", "Munich", "Berlin", model.IssueValueChange},
		{"numbers", 10.0, 12.0, model.IssueValueChange},
		{"mixed types", "10", 10.0, model.IssueValueChange},
		{"both nil", nil, nil, model.IssueValueChange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.before, tt.after))
		})
	}
}
