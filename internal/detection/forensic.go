package detection

import "github.com/lvonguyen/casescreen/internal/indicator"

// ForensicDetector flags missing, disproven or untested forensic evidence.
type ForensicDetector struct {
	patterns *indicator.PatternSet
	rules    []rule
	evidence indicator.EvidenceOptions
}

// NewForensicDetector builds the forensic pattern table.
func NewForensicDetector(opts indicator.EvidenceOptions) *ForensicDetector {
	ps := indicator.NewPatternSet().
		MustAdd("no_physical_evidence",
			`no.*(physical|forensic).*evidence`,
			`lack.*evidence`,
			`absence.*evidence`,
			`without.*evidence`,
		).
		MustAdd("disproven_forensic",
			`(disproven|discredited|invalidated).*evidence`,
			`(false|erroneous).*forensic`,
			`(retracted|withdrawn).*expert`,
		).
		MustAdd("discredited_methods",
			`(hair|bite.*mark|fiber).*analysis`,
			`discredited.*method`,
			`(unreliable|unvalidated).*technique`,
			`junk.*science`,
			`arson.*investigation.*flawed`,
		).
		MustAdd("dna_not_tested",
			`DNA.*(not|never).*test`,
			`DNA.*excluded`,
			`DNA.*evidence.*unavailable`,
			`DNA.*not.*admitted`,
			`refuse.*DNA.*test`,
		)

	return &ForensicDetector{
		patterns: ps,
		rules: []rule{
			{"no_physical_evidence", indicator.NoPhysicalEvidence, 0.75},
			{"disproven_forensic", indicator.ForensicDisproven, 0.85},
			{"discredited_methods", indicator.DiscreditedMethods, 0.80},
			{"dna_not_tested", indicator.DNANotTested, 0.85},
		},
		evidence: opts,
	}
}

// Name returns the detector identifier.
func (d *ForensicDetector) Name() string {
	return string(indicator.CategoryForensic)
}

// Detect returns forensic findings for text.
func (d *ForensicDetector) Detect(text, documentType string) []indicator.Finding {
	return evaluate(d.patterns, d.rules, text, d.evidence, nil)
}
