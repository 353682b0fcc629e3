// Package ranking scores how urgently a case should be reviewed based on its
// aggregated wrongful-conviction indicators.
package ranking

import (
	"math"

	"github.com/lvonguyen/casescreen/internal/indicator"
)

// Severity multipliers applied to each indicator's score.
var severityMultipliers = map[indicator.Severity]float64{
	indicator.SeverityLow:      1.0,
	indicator.SeverityMedium:   1.5,
	indicator.SeverityHigh:     2.0,
	indicator.SeverityCritical: 3.0,
}

// Category weights; misconduct and forensic findings weigh more than
// testimony-quality signals.
var categoryWeights = map[indicator.Category]float64{
	indicator.CategoryConfession: 1.0,
	indicator.CategoryEyewitness: 1.0,
	indicator.CategoryForensic:   1.1,
	indicator.CategoryMisconduct: 1.2,
}

// combination pairs indicators whose co-occurrence raises priority.
type combination struct {
	indicators []indicator.Name
	bonus      float64
}

var combinations = []combination{
	{[]indicator.Name{indicator.DNANotTested, indicator.BradyViolations}, 1.5},
	{[]indicator.Name{indicator.WitnessRecantation, indicator.NoPhysicalEvidence}, 1.3},
}

const (
	criticalBonus     = 1.2
	countStep         = 0.1
	maxCountBonus     = 1.0
	maxScore          = 100.0
	defaultIndicatorW = 1.0
)

// Priority levels
const (
	LevelUrgent = "Urgent Priority"
	LevelHigh   = "High Priority"
	LevelMedium = "Medium Priority"
	LevelLower  = "Lower Priority"
)

// Breakdown counts scored indicators by severity.
type Breakdown struct {
	IndicatorCount int `json:"indicator_count"`
	CriticalCount  int `json:"critical_count"`
	HighCount      int `json:"high_count"`
	MediumCount    int `json:"medium_count"`
	LowCount       int `json:"low_count"`
}

// Priority is the ranking outcome for one case.
type Priority struct {
	Score          float64   `json:"score"`
	Level          string    `json:"level"`
	Breakdown      Breakdown `json:"breakdown"`
	Recommendation string    `json:"recommendation"`
}

// Score computes a 0-100 priority from aggregated indicators. Indicators not
// in the catalog are ignored.
func Score(aggregates []*indicator.Aggregate) float64 {
	present := make(map[indicator.Name]bool)
	var base float64
	var scored int
	hasCritical := false

	for _, agg := range aggregates {
		entry, ok := indicator.Lookup(agg.IndicatorName)
		if !ok {
			continue
		}
		scored++
		present[entry.Name] = true
		if entry.Severity == indicator.SeverityCritical {
			hasCritical = true
		}

		base += defaultIndicatorW *
			categoryWeights[entry.Category] *
			severityMultipliers[entry.Severity] *
			agg.Confidence
	}

	if scored == 0 {
		return 0
	}

	countMultiplier := 1 + math.Min(float64(scored)*countStep, maxCountBonus)

	combinationBonus := 1.0
	for _, c := range combinations {
		if hasAll(present, c.indicators) {
			combinationBonus = math.Max(combinationBonus, c.bonus)
		}
	}

	critical := 1.0
	if hasCritical {
		critical = criticalBonus
	}

	raw := base * countMultiplier * combinationBonus * critical
	return math.Round(math.Min(maxScore, raw)*100) / 100
}

func hasAll(present map[indicator.Name]bool, names []indicator.Name) bool {
	for _, n := range names {
		if !present[n] {
			return false
		}
	}
	return true
}

// Explain scores aggregates and attaches a level, recommendation and
// severity breakdown.
func Explain(aggregates []*indicator.Aggregate) Priority {
	score := Score(aggregates)

	var b Breakdown
	for _, agg := range aggregates {
		entry, ok := indicator.Lookup(agg.IndicatorName)
		if !ok {
			continue
		}
		b.IndicatorCount++
		switch entry.Severity {
		case indicator.SeverityCritical:
			b.CriticalCount++
		case indicator.SeverityHigh:
			b.HighCount++
		case indicator.SeverityMedium:
			b.MediumCount++
		case indicator.SeverityLow:
			b.LowCount++
		}
	}

	level, recommendation := classify(score)
	return Priority{
		Score:          score,
		Level:          level,
		Breakdown:      b,
		Recommendation: recommendation,
	}
}

func classify(score float64) (string, string) {
	switch {
	case score >= 75:
		return LevelUrgent, "Immediate investigation recommended - multiple strong indicators present"
	case score >= 50:
		return LevelHigh, "Priority investigation recommended - significant indicators present"
	case score >= 25:
		return LevelMedium, "Investigation warranted - review indicators carefully"
	default:
		return LevelLower, "Further review may be needed depending on resources"
	}
}
