package reconcile

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/recon-cli/internal/model"
)

// FieldRule controls how one manifest field is compared.
type FieldRule struct {
	Tolerance float64        `yaml:"tolerance"`
	Severity  model.Severity `yaml:"severity"`
	Numeric   bool           `yaml:"numeric"`
}

func (r FieldRule) options() []CompareOption {
	opts := []CompareOption{WithTolerance(r.Tolerance), WithSeverity(r.Severity)}
	if r.Numeric {
		opts = append(opts, WithNumeric())
	}
	return opts
}

// FieldSpec names a manifest field and its rule.
type FieldSpec struct {
	Name string
	Rule FieldRule
}

// SectionSpec is one named section of the composite shape. Breakdown, when
// set, names the dynamically keyed map inside the section.
type SectionSpec struct {
	Name          string
	Fields        []FieldSpec
	Breakdown     string
	BreakdownRule FieldRule
}

// Rules is the field manifest for both record shapes.
type Rules struct {
	Sections         []SectionSpec
	CollectionFields []FieldSpec
}

var (
	textRule     = FieldRule{Severity: model.SeverityMedium}
	lowTextRule  = FieldRule{Severity: model.SeverityLow}
	areaRule     = FieldRule{Tolerance: 1, Severity: model.SeverityHigh, Numeric: true}
	moneyRule    = FieldRule{Tolerance: 100, Severity: model.SeverityHigh, Numeric: true}
	yearRule     = FieldRule{Severity: model.SeverityMedium, Numeric: true}
	percentRule  = FieldRule{Tolerance: 0.5, Severity: model.SeverityMedium, Numeric: true}
	unitRule     = FieldRule{Severity: model.SeverityMedium, Numeric: true}
	identityRule = FieldRule{Severity: model.SeverityMedium}
)

// DefaultRules returns the built-in manifest.
func DefaultRules() Rules {
	return Rules{
		Sections: []SectionSpec{
			{
				Name: model.SectionIdentity,
				Fields: []FieldSpec{
					{"name", identityRule},
					{"address", identityRule},
					{"city", identityRule},
					{"postalCode", identityRule},
					{"country", lowTextRule},
				},
			},
			{
				Name: model.SectionMetrics,
				Fields: []FieldSpec{
					{model.FieldLandAreaSqm, areaRule},
					{model.FieldTotalAreaSqm, areaRule},
					{model.FieldOccupancyPercent, percentRule},
					{model.FieldBuiltYear, yearRule},
				},
				Breakdown:     model.FieldAreaByUsage,
				BreakdownRule: areaRule,
			},
			{
				Name: model.SectionFinancials,
				Fields: []FieldSpec{
					{model.FieldAnnualIncome, moneyRule},
					{model.FieldPurchasePrice, moneyRule},
					{"marketValue", moneyRule},
				},
				Breakdown:     model.FieldIncomeByUsage,
				BreakdownRule: moneyRule,
			},
			{
				Name: model.SectionProject,
				Fields: []FieldSpec{
					{"projectName", textRule},
					{"developer", lowTextRule},
					{"status", lowTextRule},
					{model.FieldCompletionYear, yearRule},
				},
			},
			{
				Name: model.SectionUnits,
				Fields: []FieldSpec{
					{"residential", unitRule},
					{"commercial", unitRule},
					{model.FieldParkingSpaces, unitRule},
				},
			},
		},
		CollectionFields: []FieldSpec{
			{"name", identityRule},
			{"address", identityRule},
			{"city", identityRule},
			{model.FieldLandAreaSqm, areaRule},
			{model.FieldTotalAreaSqm, areaRule},
			{model.FieldOccupancyPercent, percentRule},
			{model.FieldBuiltYear, yearRule},
			{model.FieldCompletionYear, yearRule},
			{model.FieldAnnualIncome, moneyRule},
			{"units", unitRule},
		},
	}
}

// RuleOverride adjusts a manifest field. Nil members keep the default.
type RuleOverride struct {
	Tolerance *float64 `yaml:"tolerance"`
	Severity  *string  `yaml:"severity"`
}

// rulesFile is the YAML layout of a rules file:
//
//	rules:
//	  fields:
//	    metrics.landAreaSqm: {tolerance: 5, severity: high}
//	    metrics.areaByUsage.*: {tolerance: 2}
//	    collection.builtYear: {severity: high}
type rulesFile struct {
	Rules struct {
		Fields map[string]RuleOverride `yaml:"fields"`
	} `yaml:"rules"`
}

// LoadRules reads manifest overrides from a YAML file and applies them to
// DefaultRules. An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return rules, eris.Wrapf(err, "reconcile: read rules %s", path)
	}
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return rules, eris.Wrap(err, "reconcile: parse rules")
	}
	if err := rules.Apply(f.Rules.Fields); err != nil {
		return rules, err
	}
	return rules, nil
}

// Apply merges overrides keyed by "section.field", "section.<breakdown>.*"
// or "collection.field". Unknown keys are an error so typos surface early.
func (r *Rules) Apply(overrides map[string]RuleOverride) error {
	for key, ov := range overrides {
		rule, ok := r.lookup(key)
		if !ok {
			return eris.Errorf("reconcile: unknown rule key %q", key)
		}
		if ov.Tolerance != nil {
			if *ov.Tolerance < 0 {
				return eris.Errorf("reconcile: negative tolerance for %q", key)
			}
			rule.Tolerance = *ov.Tolerance
		}
		if ov.Severity != nil {
			sev, ok := model.ParseSeverity(*ov.Severity)
			if !ok {
				return eris.Errorf("reconcile: unknown severity %q for %q", *ov.Severity, key)
			}
			rule.Severity = sev
		}
	}
	return nil
}

// lookup returns a pointer into r for the rule addressed by key.
func (r *Rules) lookup(key string) (*FieldRule, bool) {
	parts := strings.Split(key, ".")
	if len(parts) == 2 && parts[0] == "collection" {
		for i := range r.CollectionFields {
			if r.CollectionFields[i].Name == parts[1] {
				return &r.CollectionFields[i].Rule, true
			}
		}
		return nil, false
	}
	for i := range r.Sections {
		sec := &r.Sections[i]
		if len(parts) < 2 || sec.Name != parts[0] {
			continue
		}
		if len(parts) == 3 && parts[2] == "*" && sec.Breakdown != "" && parts[1] == sec.Breakdown {
			return &sec.BreakdownRule, true
		}
		if len(parts) != 2 {
			return nil, false
		}
		for j := range sec.Fields {
			if sec.Fields[j].Name == parts[1] {
				return &sec.Fields[j].Rule, true
			}
		}
	}
	return nil, false
}
