package detection

import "github.com/lvonguyen/casescreen/internal/indicator"

// EyewitnessDetector flags unreliable identification and witness testimony.
type EyewitnessDetector struct {
	patterns *indicator.PatternSet
	rules    []rule
	evidence indicator.EvidenceOptions
}

// NewEyewitnessDetector builds the eyewitness pattern table.
func NewEyewitnessDetector(opts indicator.EvidenceOptions) *EyewitnessDetector {
	ps := indicator.NewPatternSet().
		MustAdd("unreliable_witness",
			`(single|only|sole).*witness`,
			`(unreliable|questionable|doubtful).*witness`,
			`(poor|limited|obstructed).*view`,
			`(dark|night|dim).*lighting`,
			`(brief|quick|fleeting).*glance`,
		).
		MustAdd("cross_racial",
			`cross-racial.*identification`,
			`different.*race`,
			`(white|black|hispanic|asian).*witness.*(white|black|hispanic|asian).*defendant`,
		).
		MustAdd("suggestive_lineup",
			`(suggestive|biased|flawed).*lineup`,
			`(single|show[-]?up).*identification`,
			`(photo.*array|lineup).*problematic`,
			`only.*one.*match`,
			`stood.*out`,
		).
		MustAdd("witness_uncertainty",
			`(not|un)sure`,
			`(might|maybe|possibly|perhaps)`,
			`(hesitat|uncertain)`,
			`looks.*like`,
			`could.*be`,
			`coached.*witness`,
		).
		MustAdd("witness_recantation",
			`witness.*recant`,
			`take.*back.*testimony`,
			`was.*wrong.*identification`,
			`mistaken.*identity`,
		).
		MustAdd("inconsistent_statements",
			`(inconsistent|contradict|conflict).*statement`,
			`(changed|modified|altered).*testimony`,
			`(different|varying).*account`,
		)

	return &EyewitnessDetector{
		patterns: ps,
		rules: []rule{
			{"unreliable_witness", indicator.SingleUnreliableEyewitness, 0.70},
			{"cross_racial", indicator.CrossRacialIdentification, 0.75},
			{"suggestive_lineup", indicator.SuggestiveLineup, 0.80},
			{"witness_uncertainty", indicator.WitnessUncertainty, 0.65},
			{"witness_recantation", indicator.WitnessRecantation, 0.90},
			{"inconsistent_statements", indicator.InconsistentStatements, 0.70},
		},
		evidence: opts,
	}
}

// Name returns the detector identifier.
func (d *EyewitnessDetector) Name() string {
	return string(indicator.CategoryEyewitness)
}

// Detect returns eyewitness-related findings for text.
func (d *EyewitnessDetector) Detect(text, documentType string) []indicator.Finding {
	return evaluate(d.patterns, d.rules, text, d.evidence, nil)
}
