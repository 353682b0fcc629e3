package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/lvonguyen/casescreen/internal/indicator"
	"github.com/lvonguyen/casescreen/internal/ranking"
)

var (
	headerColor = color.New(color.FgWhite, color.Bold)
	dimColor    = color.New(color.FgHiBlack)
	okColor     = color.New(color.FgGreen)

	severityColors = map[indicator.Severity]*color.Color{
		indicator.SeverityCritical: color.New(color.FgRed, color.Bold),
		indicator.SeverityHigh:     color.New(color.FgRed),
		indicator.SeverityMedium:   color.New(color.FgYellow),
		indicator.SeverityLow:      color.New(color.FgCyan),
	}

	levelColors = map[string]*color.Color{
		ranking.LevelUrgent: color.New(color.FgRed, color.Bold),
		ranking.LevelHigh:   color.New(color.FgRed),
		ranking.LevelMedium: color.New(color.FgYellow),
		ranking.LevelLower:  color.New(color.FgGreen),
	}
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func nameColor(name indicator.Name) *color.Color {
	if entry, ok := indicator.Lookup(name); ok {
		return severityColors[entry.Severity]
	}
	return headerColor
}

func renderEvidence(w io.Writer, evidence []string) {
	for _, e := range evidence {
		dimColor.Fprintf(w, "      %q\n", strings.Join(strings.Fields(e), " "))
	}
}

func renderDocument(w io.Writer, result *indicator.DocumentResult) error {
	headerColor.Fprintf(w, "Document type: %s\n", result.DocumentType)
	if result.TotalIndicators == 0 {
		okColor.Fprintln(w, "No indicators found.")
		return nil
	}

	fmt.Fprintf(w, "Indicators:    %d\n\n", result.TotalIndicators)
	for _, f := range result.Indicators {
		nameColor(f.IndicatorName).Fprintf(w, "  %s", f.IndicatorName)
		fmt.Fprintf(w, "  confidence %.2f  [%s]\n", f.Confidence, f.Detector)
		renderEvidence(w, f.Evidence)
	}
	return nil
}

func renderCase(w io.Writer, result *indicator.CaseResult, priority *ranking.Priority) error {
	headerColor.Fprintf(w, "Case #%d\n", result.CaseID)
	fmt.Fprintf(w, "Documents:  %d\n", result.DocumentsAnalyzed)
	fmt.Fprintf(w, "Indicators: %d\n", result.TotalIndicators)

	if result.TotalIndicators == 0 {
		okColor.Fprintln(w, "No indicators found.")
	}
	for _, agg := range result.Indicators {
		fmt.Fprintln(w)
		nameColor(agg.IndicatorName).Fprintf(w, "  %s", agg.IndicatorName)
		fmt.Fprintf(w, "  confidence %.2f\n", agg.Confidence)
		fmt.Fprintf(w, "    documents: %s  detectors: %s\n",
			strings.Join(agg.DocumentTypes, ", "), strings.Join(agg.Detectors, ", "))
		renderEvidence(w, agg.Evidence)
	}

	if priority != nil {
		renderPriority(w, priority)
	}
	return nil
}

func renderPriority(w io.Writer, p *ranking.Priority) {
	fmt.Fprintln(w)
	c, ok := levelColors[p.Level]
	if !ok {
		c = headerColor
	}
	c.Fprintf(w, "Priority: %s (score %.2f)\n", p.Level, p.Score)
	fmt.Fprintf(w, "  critical %d  high %d  medium %d  low %d\n",
		p.Breakdown.CriticalCount, p.Breakdown.HighCount, p.Breakdown.MediumCount, p.Breakdown.LowCount)
	fmt.Fprintf(w, "  %s\n", p.Recommendation)
}

func renderCatalog(w io.Writer, entries []indicator.Entry) error {
	var category indicator.Category
	for _, e := range entries {
		if e.Category != category {
			category = e.Category
			headerColor.Fprintf(w, "%s\n", strings.ToUpper(string(category)))
		}
		severityColors[e.Severity].Fprintf(w, "  %-34s", e.Name)
		fmt.Fprintf(w, " %-8s %.2f  %s\n", e.Severity, e.BaseConfidence, e.Description)
	}
	return nil
}
