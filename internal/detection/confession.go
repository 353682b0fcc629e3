package detection

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/lvonguyen/casescreen/internal/indicator"
)

const (
	longInterrogationCategory = "long_interrogation"

	// interrogations of at least this many hours escalate confidence
	longInterrogationHours     = 8
	longInterrogationEscalated = 0.90
)

var interrogationHours = regexp.MustCompile(`(\d+)\s*hour`)

// ConfessionDetector flags coerced, recanted, vague and prolonged confessions.
type ConfessionDetector struct {
	patterns *indicator.PatternSet
	rules    []rule
	evidence indicator.EvidenceOptions
}

// NewConfessionDetector builds the confession pattern table.
func NewConfessionDetector(opts indicator.EvidenceOptions) *ConfessionDetector {
	ps := indicator.NewPatternSet().
		MustAdd("coerced_confession",
			`(coer(ced|cion)|force[d]?|pressure|threat|intimidat)`,
			`(fear|afraid|scared).*confess`,
			`didn't.*want.*confess`,
			`(told|said).*confess.*or else`,
		).
		MustAdd("recanted",
			`recant(ed|ation)`,
			`take.*back.*confession`,
			`(false|untrue).*confession`,
			`not.*true.*when.*confess`,
		).
		MustAdd("missing_details",
			`lack.*detail`,
			`vague.*confession`,
			`general.*statement`,
			`no.*specific.*information`,
			`couldn't.*describe`,
		).
		MustAdd(longInterrogationCategory,
			`(\d+)\s*hour`,
			`(lengthy|extended|prolonged).*interrogation`,
			`all\s*(night|day)`,
			`without.*break`,
			`exhausted|tired|fatigue`,
		)

	return &ConfessionDetector{
		patterns: ps,
		rules: []rule{
			{"coerced_confession", indicator.CoercedConfession, 0.75},
			{"recanted", indicator.ConfessionRecanted, 0.85},
			{"missing_details", indicator.ConfessionMissingDetail, 0.70},
			{longInterrogationCategory, indicator.LongInterrogation, 0.80},
		},
		evidence: opts,
	}
}

// Name returns the detector identifier.
func (d *ConfessionDetector) Name() string {
	return string(indicator.CategoryConfession)
}

// Detect returns confession-related findings for text.
func (d *ConfessionDetector) Detect(text, documentType string) []indicator.Finding {
	return evaluate(d.patterns, d.rules, text, d.evidence, func(r rule, text string) float64 {
		if r.category == longInterrogationCategory && interrogationExceeds(text, longInterrogationHours) {
			return longInterrogationEscalated
		}
		return r.confidence
	})
}

// interrogationExceeds reports whether the first "<n> hour" mention in text
// is at least limit hours.
func interrogationExceeds(text string, limit int64) bool {
	m := interrogationHours.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return false
	}

	hours, err := strconv.ParseInt(m[1], 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return true
	}
	if err != nil {
		return false
	}
	return hours >= limit
}
