// Package indicator provides the finding schema, the indicator catalog and the
// pattern tables shared by the wrongful-conviction detectors.
package indicator

import "slices"

// Name identifies an indicator in the fixed catalog.
type Name string

// Confession-related indicators
const (
	CoercedConfession       Name = "Coerced or False Confession"
	ConfessionRecanted      Name = "Confession Recanted"
	ConfessionMissingDetail Name = "Confession Missing Details"
	LongInterrogation       Name = "Long High-Pressure Interrogation"
)

// Eyewitness-related indicators
const (
	SingleUnreliableEyewitness Name = "Single Unreliable Eyewitness"
	CrossRacialIdentification  Name = "Cross-Racial Identification"
	SuggestiveLineup           Name = "Suggestive Lineup Procedures"
	WitnessUncertainty         Name = "Witness Uncertainty"
	WitnessRecantation         Name = "Witness Recantation"
	InconsistentStatements     Name = "Inconsistent Witness Statements"
)

// Forensic-related indicators
const (
	NoPhysicalEvidence Name = "No Physical Evidence"
	ForensicDisproven  Name = "Forensic Evidence Disproven"
	DiscreditedMethods Name = "Discredited Forensic Methods"
	DNANotTested       Name = "DNA Not Tested"
)

// Misconduct-related indicators
const (
	BradyViolations       Name = "Brady Violations"
	FabricatedStatements  Name = "Fabricated Witness Statements"
	OfficialMisconduct    Name = "Official Misconduct"
	InflammatoryArguments Name = "Inflammatory Arguments"
)

// UnknownDocumentType is recorded for case documents that carry no type.
const UnknownDocumentType = "unknown"

// DefaultDocumentType applies to single-document analysis without a type.
const DefaultDocumentType = "transcript"

// Detector evaluates one pattern table against a document.
type Detector interface {
	// Name returns the detector identifier recorded on each finding
	Name() string
	// Detect returns one finding per firing indicator, never an error
	Detect(text, documentType string) []Finding
}

// Finding is one detector's result for one indicator in one document.
type Finding struct {
	IndicatorName Name     `json:"indicator_name"`
	Confidence    float64  `json:"confidence"`
	Evidence      []string `json:"evidence"`
	Detector      string   `json:"detector,omitempty"`
	DocumentType  string   `json:"document_type,omitempty"`
}

// Aggregate merges all same-named findings of a case.
type Aggregate struct {
	IndicatorName Name     `json:"indicator_name"`
	Confidence    float64  `json:"confidence"`
	Evidence      []string `json:"evidence"`
	DocumentTypes []string `json:"document_types"`
	Detectors     []string `json:"detectors"`

	contributions int
}

// Contributions returns how many findings were merged into the aggregate.
func (a *Aggregate) Contributions() int {
	return a.contributions
}

// Document is one input record of a case.
type Document struct {
	Type    string `json:"type" yaml:"type"`
	Content string `json:"content" yaml:"content"`
}

// DocumentResult is the output of single-document analysis.
type DocumentResult struct {
	TotalIndicators  int       `json:"total_indicators"`
	Indicators       []Finding `json:"indicators"`
	DocumentType     string    `json:"document_type"`
	AnalysisComplete bool      `json:"analysis_complete"`
}

// CaseResult is the output of case analysis.
type CaseResult struct {
	CaseID            int64        `json:"case_id"`
	TotalIndicators   int          `json:"total_indicators"`
	Indicators        []*Aggregate `json:"indicators"`
	DocumentsAnalyzed int          `json:"documents_analyzed"`
}

// NewAggregate seeds an aggregate from the first finding of a name.
func NewAggregate(f Finding) *Aggregate {
	docType := f.DocumentType
	if docType == "" {
		docType = UnknownDocumentType
	}
	detector := f.Detector
	if detector == "" {
		detector = "unknown"
	}

	evidence := make([]string, len(f.Evidence))
	copy(evidence, f.Evidence)

	return &Aggregate{
		IndicatorName: f.IndicatorName,
		Confidence:    f.Confidence,
		Evidence:      evidence,
		DocumentTypes: []string{docType},
		Detectors:     []string{detector},
		contributions: 1,
	}
}

// Absorb folds another same-named finding into the aggregate. The confidence
// update is delegated to combine, which receives the current value, the new
// value and the number of findings merged so far.
func (a *Aggregate) Absorb(f Finding, combine func(current, next float64, merged int) float64) {
	a.Confidence = clamp(combine(a.Confidence, f.Confidence, a.contributions))
	a.contributions++

	a.Evidence = append(a.Evidence, f.Evidence...)

	docType := f.DocumentType
	if docType == "" {
		docType = UnknownDocumentType
	}
	if !slices.Contains(a.DocumentTypes, docType) {
		a.DocumentTypes = append(a.DocumentTypes, docType)
	}
	if f.Detector != "" && !slices.Contains(a.Detectors, f.Detector) {
		a.Detectors = append(a.Detectors, f.Detector)
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
