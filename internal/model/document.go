// Package model defines the JSON-shaped records, findings and reports that flow
// through the reconciliation engine.
package model

// Shape classifies the layout of an extracted record.
type Shape string

const (
	// ShapeComposite is a single property with nested sections and breakdown maps.
	ShapeComposite Shape = "composite"
	// ShapeCollection is a flat, ordered list of simpler property entries.
	ShapeCollection Shape = "collection"
)

// Valid reports whether s is one of the known shapes.
func (s Shape) Valid() bool {
	return s == ShapeComposite || s == ShapeCollection
}

// ParseShape maps user input onto a Shape. Common aliases used by the
// extraction prompts are accepted.
func ParseShape(s string) (Shape, bool) {
	switch s {
	case "composite", "single", "property", "single_property":
		return ShapeComposite, true
	case "collection", "list", "portfolio", "flat":
		return ShapeCollection, true
	default:
		return "", false
	}
}

// DetectShape infers the shape from the root type of a decoded record.
// Anything that is not a JSON array is treated as composite.
func DetectShape(record any) Shape {
	if _, ok := record.([]any); ok {
		return ShapeCollection
	}
	return ShapeComposite
}

// Document pairs an extracted record with its shape tag. Record holds plain
// decoded JSON: map[string]any for composite, []any of map[string]any for
// collection.
type Document struct {
	Shape  Shape `json:"shape"`
	Record any   `json:"record"`
}

// Section and field names of the composite shape.
const (
	SectionIdentity   = "identity"
	SectionMetrics    = "metrics"
	SectionFinancials = "financials"
	SectionProject    = "project"
	SectionUnits      = "units"

	FieldAreaByUsage      = "areaByUsage"
	FieldIncomeByUsage    = "incomeByUsage"
	FieldLandAreaSqm      = "landAreaSqm"
	FieldTotalAreaSqm     = "totalAreaSqm"
	FieldOccupancyPercent = "occupancyPercent"
	FieldBuiltYear        = "builtYear"
	FieldCompletionYear   = "completionYear"
	FieldAnnualIncome     = "annualIncome"
	FieldPurchasePrice    = "purchasePrice"
	FieldParkingSpaces    = "parkingSpaces"
)
