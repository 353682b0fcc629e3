// Package detection implements the rule-based wrongful-conviction detectors.
//
// Each detector owns an immutable pattern table compiled at construction and
// emits at most one finding per rule category. Detectors never fail: text
// without matches simply yields no findings.
package detection

import "github.com/lvonguyen/casescreen/internal/indicator"

// rule binds a pattern category to the indicator it emits.
type rule struct {
	category   string
	indicator  indicator.Name
	confidence float64
}

// evaluate runs every rule in order and appends a finding for each category
// that fires. adjust may override the confidence of a firing rule.
func evaluate(ps *indicator.PatternSet, rules []rule, text string, opts indicator.EvidenceOptions,
	adjust func(r rule, text string) float64) []indicator.Finding {
	findings := make([]indicator.Finding, 0)
	if text == "" {
		return findings
	}

	for _, r := range rules {
		if !ps.Fires(r.category, text) {
			continue
		}

		confidence := r.confidence
		if adjust != nil {
			confidence = adjust(r, text)
		}

		findings = append(findings, indicator.Finding{
			IndicatorName: r.indicator,
			Confidence:    confidence,
			Evidence:      ps.Evidence(r.category, text, opts),
		})
	}

	return findings
}

// All returns the four detectors in their fixed run order.
func All(opts indicator.EvidenceOptions) []indicator.Detector {
	return []indicator.Detector{
		NewConfessionDetector(opts),
		NewEyewitnessDetector(opts),
		NewForensicDetector(opts),
		NewMisconductDetector(opts),
	}
}
