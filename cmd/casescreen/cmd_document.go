package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lvonguyen/casescreen/internal/casefile"
)

var documentFlags struct {
	documentType string
}

var documentCmd = &cobra.Command{
	Use:   "document <file>",
	Short: "Analyze a single document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocument,
}

func init() {
	documentCmd.Flags().StringVarP(&documentFlags.documentType, "type", "t", "", "Document type (default transcript)")
}

func runDocument(cmd *cobra.Command, args []string) error {
	doc, err := casefile.ReadDocument(args[0], documentFlags.documentType)
	if err != nil {
		return err
	}

	a, err := newAnalyzer()
	if err != nil {
		return err
	}

	result := a.AnalyzeDocument(doc.Content, doc.Type)

	out := cmd.OutOrStdout()
	if rootFlags.jsonOutput {
		return writeJSON(out, result)
	}
	if err := renderDocument(out, result); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}
