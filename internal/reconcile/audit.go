package reconcile

import (
	"fmt"
	"math"
	"time"

	"github.com/sells-group/recon-cli/internal/model"
)

// AuditConfig holds the thresholds of the calculation auditor.
type AuditConfig struct {
	AreaToleranceFloor   float64
	AreaToleranceRatio   float64
	IncomeToleranceFloor float64
	IncomeToleranceRatio float64
	MinBuiltYear         int
	FutureYearSlack      int
	CurrentYear          int
	OccupancyMin         float64
	OccupancyMax         float64
}

// DefaultAuditConfig returns the standard thresholds relative to now.
func DefaultAuditConfig(now time.Time) AuditConfig {
	return AuditConfig{
		AreaToleranceFloor:   10,
		AreaToleranceRatio:   0.02,
		IncomeToleranceFloor: 1000,
		IncomeToleranceRatio: 0.02,
		MinBuiltYear:         1800,
		FutureYearSlack:      10,
		CurrentYear:          now.Year(),
		OccupancyMin:         0,
		OccupancyMax:         100,
	}
}

// sumCheck describes one breakdown-sum-vs-total check of the composite shape.
type sumCheck struct {
	label     string
	section   string
	breakdown string
	total     string
	floor     func(AuditConfig) float64
	ratio     func(AuditConfig) float64
}

var sumChecks = []sumCheck{
	{
		label:     "area",
		section:   model.SectionMetrics,
		breakdown: model.FieldAreaByUsage,
		total:     model.FieldTotalAreaSqm,
		floor:     func(c AuditConfig) float64 { return c.AreaToleranceFloor },
		ratio:     func(c AuditConfig) float64 { return c.AreaToleranceRatio },
	},
	{
		label:     "income",
		section:   model.SectionFinancials,
		breakdown: model.FieldIncomeByUsage,
		total:     model.FieldAnnualIncome,
		floor:     func(c AuditConfig) float64 { return c.IncomeToleranceFloor },
		ratio:     func(c AuditConfig) float64 { return c.IncomeToleranceRatio },
	},
}

// AuditCalculations runs the fixed battery of arithmetic and range checks
// against record. Absent sections are skipped, never reported.
func AuditCalculations(record any, shape model.Shape, cfg AuditConfig) model.ValidationResult {
	a := &auditor{cfg: cfg, result: model.ValidationResult{
		Checks: []model.CalculationCheck{},
		Issues: []model.Issue{},
	}}

	switch shape {
	case model.ShapeCollection:
		entries, _ := record.([]any)
		for i, e := range entries {
			entry, ok := e.(map[string]any)
			if !ok {
				continue
			}
			base := model.FieldPath{model.Index(i)}
			a.checkYears(base.Child(model.FieldBuiltYear), entry[model.FieldBuiltYear],
				base.Child(model.FieldCompletionYear), entry[model.FieldCompletionYear])
			a.checkOccupancy(base.Child(model.FieldOccupancyPercent), entry[model.FieldOccupancyPercent])
		}
	default:
		root, ok := record.(map[string]any)
		if !ok {
			break
		}
		for _, sc := range sumChecks {
			a.checkSum(root, sc)
		}
		metrics, _ := root[model.SectionMetrics].(map[string]any)
		project, _ := root[model.SectionProject].(map[string]any)

		completionPath := model.FieldPath{model.SectionProject, model.FieldCompletionYear}
		completion := project[model.FieldCompletionYear]
		if completion == nil && metrics[model.FieldCompletionYear] != nil {
			completionPath = model.FieldPath{model.SectionMetrics, model.FieldCompletionYear}
			completion = metrics[model.FieldCompletionYear]
		}
		a.checkYears(model.FieldPath{model.SectionMetrics, model.FieldBuiltYear}, metrics[model.FieldBuiltYear],
			completionPath, completion)
		a.checkOccupancy(model.FieldPath{model.SectionMetrics, model.FieldOccupancyPercent},
			metrics[model.FieldOccupancyPercent])
	}

	a.result.Summary = make(map[model.Severity]int)
	a.result.IsValid = true
	for _, is := range a.result.Issues {
		a.result.Summary[is.Severity]++
		if is.Severity == model.SeverityHigh {
			a.result.IsValid = false
		}
	}
	return a.result
}

type auditor struct {
	cfg    AuditConfig
	result model.ValidationResult
}

func (a *auditor) issue(sev model.Severity, path model.FieldPath, magnitude *float64, format string, args ...any) {
	a.result.Issues = append(a.result.Issues, model.Issue{
		Severity:    sev,
		Path:        path.String(),
		Description: fmt.Sprintf(format, args...),
		Magnitude:   magnitude,
	})
}

// checkSum compares the sum of a breakdown map with its stated total. The
// stated total is never adjusted; a mismatch is only reported.
func (a *auditor) checkSum(root map[string]any, sc sumCheck) {
	section, ok := root[sc.section].(map[string]any)
	if !ok {
		return
	}
	breakdown, ok := section[sc.breakdown].(map[string]any)
	if !ok || len(breakdown) == 0 {
		return
	}
	total, ok := toFloat64(section[sc.total])
	if !ok {
		return
	}

	var sum float64
	var counted int
	for _, v := range breakdown {
		if f, ok := toFloat64(v); ok {
			sum += f
			counted++
		}
	}
	if counted == 0 {
		return
	}

	tolerance := math.Max(sc.floor(a.cfg), total*sc.ratio(a.cfg))
	diff := math.Abs(sum - total)
	totalPath := model.FieldPath{sc.section, sc.total}
	a.result.Checks = append(a.result.Checks, model.CalculationCheck{
		Description:     fmt.Sprintf("%s breakdown sum vs stated total", sc.label),
		Path:            totalPath.String(),
		ComputedSum:     sum,
		StatedTotal:     total,
		AbsoluteDiff:    diff,
		Tolerance:       tolerance,
		WithinTolerance: diff <= tolerance,
	})
	if diff > tolerance {
		a.issue(model.SeverityHigh, totalPath, ptr(diff),
			"%s breakdown sums to %s but stated total is %s (difference %s exceeds tolerance %s)",
			sc.label, formatNumber(sum), formatNumber(total), formatNumber(diff), formatNumber(tolerance))
	}
}

func (a *auditor) checkYears(builtPath model.FieldPath, builtVal any, completionPath model.FieldPath, completionVal any) {
	built, hasBuilt := toFloat64(builtVal)
	if hasBuilt {
		maxYear := a.cfg.CurrentYear + a.cfg.FutureYearSlack
		if built < float64(a.cfg.MinBuiltYear) || built > float64(maxYear) {
			a.issue(model.SeverityMedium, builtPath, nil,
				"built year %.0f outside plausible range [%d, %d]", built, a.cfg.MinBuiltYear, maxYear)
		}
	}
	completion, hasCompletion := toFloat64(completionVal)
	if hasBuilt && hasCompletion && completion < built {
		a.issue(model.SeverityHigh, completionPath, ptr(built-completion),
			"completion year %.0f precedes built year %.0f: logically impossible", completion, built)
	}
}

func (a *auditor) checkOccupancy(path model.FieldPath, v any) {
	occ, ok := toFloat64(v)
	if !ok {
		return
	}
	if occ < a.cfg.OccupancyMin || occ > a.cfg.OccupancyMax {
		var mag float64
		if occ < a.cfg.OccupancyMin {
			mag = a.cfg.OccupancyMin - occ
		} else {
			mag = occ - a.cfg.OccupancyMax
		}
		a.issue(model.SeverityHigh, path, ptr(mag),
			"occupancy %s%% outside valid range [%s, %s]",
			formatNumber(occ), formatNumber(a.cfg.OccupancyMin), formatNumber(a.cfg.OccupancyMax))
	}
}
