package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/lvonguyen/casescreen/internal/casefile"
	"github.com/lvonguyen/casescreen/internal/indicator"
	"github.com/lvonguyen/casescreen/internal/ranking"
)

var caseFlags struct {
	caseID   int64
	manifest string
	priority bool
}

var caseCmd = &cobra.Command{
	Use:   "case [type=]<file>...",
	Short: "Analyze every document of a case and merge the findings",
	Long: "Analyze documents given as [type=]path arguments, or listed in a\n" +
		"YAML/JSON manifest with --manifest. Findings with the same indicator\n" +
		"name are merged across documents.",
	RunE: runCase,
}

func init() {
	f := caseCmd.Flags()
	f.Int64Var(&caseFlags.caseID, "case-id", 0, "Case ID (overrides the manifest)")
	f.StringVarP(&caseFlags.manifest, "manifest", "m", "", "Case manifest file")
	f.BoolVar(&caseFlags.priority, "priority", false, "Append the case priority ranking")
}

// caseOutput is the JSON shape of the case command.
type caseOutput struct {
	*indicator.CaseResult
	Priority *ranking.Priority `json:"priority,omitempty"`
}

func runCase(cmd *cobra.Command, args []string) error {
	caseID := caseFlags.caseID
	var docs []indicator.Document

	switch {
	case caseFlags.manifest != "" && len(args) > 0:
		return errors.New("pass either --manifest or document files, not both")
	case caseFlags.manifest != "":
		m, err := casefile.LoadManifest(caseFlags.manifest)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("case-id") {
			caseID = m.CaseID
		}
		if docs, err = m.Load(); err != nil {
			return err
		}
	case len(args) > 0:
		var err error
		if docs, err = casefile.ParseArgs(args); err != nil {
			return err
		}
	default:
		return errors.New("no documents: pass [type=]<file> arguments or --manifest")
	}

	a, err := newAnalyzer()
	if err != nil {
		return err
	}

	result, err := a.AnalyzeCase(cmd.Context(), caseID, docs)
	if err != nil {
		return err
	}

	output := caseOutput{CaseResult: result}
	if caseFlags.priority {
		p := ranking.Explain(result.Indicators)
		output.Priority = &p
	}

	out := cmd.OutOrStdout()
	if rootFlags.jsonOutput {
		return writeJSON(out, output)
	}
	return renderCase(out, result, output.Priority)
}
