package analyzer

import (
	"fmt"
	"strings"

	"github.com/lvonguyen/casescreen/internal/indicator"
)

// MergeStrategy selects how same-named findings combine their confidence.
type MergeStrategy string

const (
	// MergePairwise replaces the running value with (current+new)/2 for each
	// additional finding. The result depends on document order.
	MergePairwise MergeStrategy = "pairwise"
	// MergeMean keeps the arithmetic mean of every merged finding.
	MergeMean MergeStrategy = "mean"
)

// ParseMergeStrategy validates a configured strategy name.
func ParseMergeStrategy(s string) (MergeStrategy, error) {
	switch MergeStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MergePairwise:
		return MergePairwise, nil
	case MergeMean:
		return MergeMean, nil
	default:
		return "", fmt.Errorf("unsupported merge strategy: %q", s)
	}
}

func (s MergeStrategy) combine(current, next float64, merged int) float64 {
	if s == MergeMean {
		return (current*float64(merged) + next) / float64(merged+1)
	}
	return (current + next) / 2
}

// Aggregate merges findings by indicator name in encounter order. Evidence
// is concatenated without deduplication; document types and detectors are
// kept distinct in first-seen order.
func Aggregate(findings []indicator.Finding, strategy MergeStrategy) []*indicator.Aggregate {
	aggregated := make([]*indicator.Aggregate, 0)
	byName := make(map[indicator.Name]*indicator.Aggregate)

	for _, f := range findings {
		agg, ok := byName[f.IndicatorName]
		if !ok {
			agg = indicator.NewAggregate(f)
			byName[f.IndicatorName] = agg
			aggregated = append(aggregated, agg)
			continue
		}
		agg.Absorb(f, strategy.combine)
	}

	return aggregated
}
