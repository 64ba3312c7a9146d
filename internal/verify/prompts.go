package verify

import (
	"fmt"

	"github.com/sells-group/recon-cli/internal/model"
)

const compositeSchema = `{
  "identity":   {"name": string, "address": string, "city": string, "postalCode": string, "country": string},
  "metrics":    {"landAreaSqm": number, "totalAreaSqm": number, "occupancyPercent": number, "builtYear": number,
                 "areaByUsage": {"<usage>": number}},
  "financials": {"annualIncome": number, "purchasePrice": number, "marketValue": number,
                 "incomeByUsage": {"<usage>": number}},
  "project":    {"projectName": string, "developer": string, "status": string, "completionYear": number},
  "units":      {"residential": number, "commercial": number, "parkingSpaces": number}
}`

const collectionSchema = `[
  {"name": string, "address": string, "city": string, "landAreaSqm": number, "totalAreaSqm": number,
   "occupancyPercent": number, "builtYear": number, "completionYear": number, "annualIncome": number, "units": number}
]`

const extractSystem = `You extract structured real estate data from property documents.
Return only JSON matching the schema you are given. Use null for values the document does not state.
Numbers are plain JSON numbers without units, thousands separators or currency symbols.
Never estimate or invent values.`

const verifySystem = `You verify structured real estate data against the source document it was extracted from.
For every field in the extracted record, decide whether the source supports it. Respond with only this JSON:
{
  "findings": [
    {"path": "metrics.landAreaSqm", "status": "CORRECT|INCORRECT|UNCERTAIN|MISSING|FABRICATED",
     "extracted_value": <value>, "correct_value": <value or null>, "source_location": "page or section",
     "notes": "short explanation"}
  ],
  "critical_issues": ["free-text description naming the field path and the correct value"],
  "confidence": <0-100>,
  "summary": "one paragraph"
}
Use dotted paths; index list entries as [i]. MISSING means the source states a value the record lacks.
FABRICATED means the record states a value the source does not contain; give "correct_value": null.`

func schemaFor(shape model.Shape) string {
	if shape == model.ShapeCollection {
		return collectionSchema
	}
	return compositeSchema
}

func extractPrompt(shape model.Shape, source string) string {
	return fmt.Sprintf("Schema (%s):\n%s\n\nDocument:\n<document>\n%s\n</document>", shape, schemaFor(shape), source)
}

func verifyPrompt(source string, extracted []byte) string {
	return fmt.Sprintf("Document:\n<document>\n%s\n</document>\n\nExtracted record:\n<record>\n%s\n</record>", source, extracted)
}
