package main

import (
	"github.com/spf13/cobra"

	"github.com/lvonguyen/casescreen/internal/indicator"
)

var indicatorsFlags struct {
	category string
}

var indicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "List the indicator catalog",
	Args:  cobra.NoArgs,
	RunE:  runIndicators,
}

func init() {
	indicatorsCmd.Flags().StringVarP(&indicatorsFlags.category, "category", "c", "", "Only list one category (confession, eyewitness, forensic, misconduct)")
}

func runIndicators(cmd *cobra.Command, _ []string) error {
	entries := indicator.Catalog()
	if indicatorsFlags.category != "" {
		entries = indicator.ByCategory(indicatorsFlags.category)
	}

	out := cmd.OutOrStdout()
	if rootFlags.jsonOutput {
		return writeJSON(out, map[string]any{
			"indicators": entries,
			"count":      len(entries),
		})
	}
	return renderCatalog(out, entries)
}
