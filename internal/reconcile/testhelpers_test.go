package reconcile

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

// decode turns a JSON literal into plain decoded values.
func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func snapshot(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func sampleComposite(t *testing.T) any {
	return decode(t, `{
		"identity": {"name": "Westpark Office Campus", "address": "Am Westpark 8", "city": "Gaimersheim/Ingolstadt", "postalCode": "85080", "country": "DE"},
		"metrics": {
			"landAreaSqm": 42277,
			"totalAreaSqm": 18500,
			"occupancyPercent": 94.5,
			"builtYear": 2015,
			"areaByUsage": {"office": 15000, "retail": 2500, "storage": 1000}
		},
		"financials": {
			"annualIncome": 2400000,
			"purchasePrice": 41000000,
			"incomeByUsage": {"office": 2100000, "retail": 300000}
		},
		"project": {"projectName": "Westpark", "completionYear": 2016},
		"units": {"commercial": 12, "parkingSpaces": 240}
	}`)
}
