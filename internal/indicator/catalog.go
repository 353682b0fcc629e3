package indicator

import "strings"

// Category groups indicators by the detector family that emits them.
type Category string

const (
	CategoryConfession Category = "confession"
	CategoryEyewitness Category = "eyewitness"
	CategoryForensic   Category = "forensic"
	CategoryMisconduct Category = "misconduct"
)

// Severity ranks how strongly an indicator weighs on case priority.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Entry describes one catalog indicator.
type Entry struct {
	Name           Name     `json:"name"`
	Category       Category `json:"category"`
	Detector       string   `json:"detector"`
	BaseConfidence float64  `json:"base_confidence"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
}

// catalog is ordered by detector run order, then by rule order.
var catalog = []Entry{
	{CoercedConfession, CategoryConfession, "confession", 0.75, SeverityHigh,
		"Confession obtained under coercion, threats or fear"},
	{ConfessionRecanted, CategoryConfession, "confession", 0.85, SeverityHigh,
		"Defendant later took back or disputed the confession"},
	{ConfessionMissingDetail, CategoryConfession, "confession", 0.70, SeverityMedium,
		"Confession is vague or lacks crime-specific detail"},
	{LongInterrogation, CategoryConfession, "confession", 0.80, SeverityMedium,
		"Prolonged interrogation without breaks or under fatigue"},

	{SingleUnreliableEyewitness, CategoryEyewitness, "eyewitness", 0.70, SeverityMedium,
		"Conviction rests on one witness with poor viewing conditions"},
	{CrossRacialIdentification, CategoryEyewitness, "eyewitness", 0.75, SeverityMedium,
		"Witness identified a suspect of a different race"},
	{SuggestiveLineup, CategoryEyewitness, "eyewitness", 0.80, SeverityHigh,
		"Lineup or show-up procedure was suggestive or biased"},
	{WitnessUncertainty, CategoryEyewitness, "eyewitness", 0.65, SeverityLow,
		"Witness expressed hesitation or uncertainty"},
	{WitnessRecantation, CategoryEyewitness, "eyewitness", 0.90, SeverityCritical,
		"Witness recanted testimony or identification"},
	{InconsistentStatements, CategoryEyewitness, "eyewitness", 0.70, SeverityMedium,
		"Witness accounts changed or contradict each other"},

	{NoPhysicalEvidence, CategoryForensic, "forensic", 0.75, SeverityMedium,
		"No physical or forensic evidence links the defendant"},
	{ForensicDisproven, CategoryForensic, "forensic", 0.85, SeverityCritical,
		"Forensic evidence used at trial was later disproven"},
	{DiscreditedMethods, CategoryForensic, "forensic", 0.80, SeverityHigh,
		"Conviction relied on discredited or unvalidated techniques"},
	{DNANotTested, CategoryForensic, "forensic", 0.85, SeverityHigh,
		"Available DNA evidence was never tested or was excluded"},

	{BradyViolations, CategoryMisconduct, "misconduct", 0.90, SeverityCritical,
		"Exculpatory evidence was withheld from the defense"},
	{FabricatedStatements, CategoryMisconduct, "misconduct", 0.85, SeverityCritical,
		"Statements or evidence were fabricated or planted"},
	{OfficialMisconduct, CategoryMisconduct, "misconduct", 0.80, SeverityHigh,
		"Police or prosecutorial misconduct"},
	{InflammatoryArguments, CategoryMisconduct, "misconduct", 0.70, SeverityLow,
		"Prosecution relied on inflammatory or prejudicial argument"},
}

var catalogByName = func() map[Name]Entry {
	m := make(map[Name]Entry, len(catalog))
	for _, e := range catalog {
		m[e.Name] = e
	}
	return m
}()

// Catalog returns a copy of every catalog entry in canonical order.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog)
	return out
}

// Names returns the indicator names in canonical order.
func Names() []Name {
	out := make([]Name, 0, len(catalog))
	for _, e := range catalog {
		out = append(out, e.Name)
	}
	return out
}

// Lookup returns the entry for name.
func Lookup(name Name) (Entry, bool) {
	e, ok := catalogByName[name]
	return e, ok
}

// ByCategory returns the entries of a category, case-insensitively.
func ByCategory(category string) []Entry {
	result := make([]Entry, 0)
	want := strings.ToLower(category)
	for _, e := range catalog {
		if string(e.Category) == want {
			result = append(result, e)
		}
	}
	return result
}

// BaseConfidence returns the catalog confidence for name, or 0 if unknown.
func BaseConfidence(name Name) float64 {
	return catalogByName[name].BaseConfidence
}
