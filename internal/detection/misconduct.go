package detection

import "github.com/lvonguyen/casescreen/internal/indicator"

// MisconductDetector flags prosecutorial and official misconduct.
type MisconductDetector struct {
	patterns *indicator.PatternSet
	rules    []rule
	evidence indicator.EvidenceOptions
}

// NewMisconductDetector builds the misconduct pattern table.
//
// "tampered with evidence" counts as a fabricated statement and a "prejudiced
// investigation" as official misconduct. Legacy rule tables spelled these
// alternations "tam per" and "preju dice" and never matched either phrase,
// so results differ from them on such text.
func NewMisconductDetector(opts indicator.EvidenceOptions) *MisconductDetector {
	ps := indicator.NewPatternSet().
		MustAdd("brady_violation",
			`brady.*violation`,
			`withheld.*evidence`,
			`suppressed.*evidence`,
			`(concealed|hid).*exculpatory`,
			`failed.*disclose`,
		).
		MustAdd("fabricated_statements",
			`(fabricat|manufactur|creat).*evidence`,
			`(false|fake).*statement`,
			`(plant|tamper).*evidence`,
			`coerced.*testimony`,
		).
		MustAdd("official_misconduct",
			`(prosecutorial|police).*misconduct`,
			`(abuse|misuse).*power`,
			`(corrupt|improper).*conduct`,
			`(bias|prejudice).*investigation`,
		).
		MustAdd("inflammatory_arguments",
			`inflammatory.*argument`,
			`prejudicial.*statement`,
			`improper.*closing`,
			`appeal.*emotion`,
		)

	return &MisconductDetector{
		patterns: ps,
		rules: []rule{
			{"brady_violation", indicator.BradyViolations, 0.90},
			{"fabricated_statements", indicator.FabricatedStatements, 0.85},
			{"official_misconduct", indicator.OfficialMisconduct, 0.80},
			{"inflammatory_arguments", indicator.InflammatoryArguments, 0.70},
		},
		evidence: opts,
	}
}

// Name returns the detector identifier.
func (d *MisconductDetector) Name() string {
	return string(indicator.CategoryMisconduct)
}

// Detect returns misconduct findings for text.
func (d *MisconductDetector) Detect(text, documentType string) []indicator.Finding {
	return evaluate(d.patterns, d.rules, text, d.evidence, nil)
}
