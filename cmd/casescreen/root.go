package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lvonguyen/casescreen/internal/analyzer"
	"github.com/lvonguyen/casescreen/internal/config"
	"github.com/lvonguyen/casescreen/internal/observability"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	jsonOutput bool
	noColor    bool
	verbose    bool
}

var rootCmd = &cobra.Command{
	Use:   "casescreen",
	Short: "Screen case documents for wrongful-conviction indicators",
	Long: "casescreen scans transcripts, police reports and appeal filings for\n" +
		"signals associated with wrongful convictions and merges them per case.",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if rootFlags.noColor {
			color.NoColor = true
		}
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.configPath, "config", "configs/config.yaml", "Path to config file (defaults apply when missing)")
	f.BoolVar(&rootFlags.jsonOutput, "json", false, "Write JSON instead of text")
	f.BoolVar(&rootFlags.noColor, "no-color", false, "Disable colored output")
	f.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Log analyzer activity to stderr")

	rootCmd.AddCommand(documentCmd)
	rootCmd.AddCommand(caseCmd)
	rootCmd.AddCommand(indicatorsCmd)
	rootCmd.Version = version
}

// newAnalyzer builds an analyzer from the configured analysis section.
func newAnalyzer() (*analyzer.Analyzer, error) {
	cfg, err := config.LoadOrDefault(rootFlags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	analyzerCfg, err := cfg.AnalyzerConfig()
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if rootFlags.verbose {
		logger, err = observability.NewLogger(observability.Config{
			ServiceName:    "casescreen-cli",
			ServiceVersion: version,
			LogLevel:       "debug",
			LogFormat:      "console",
		})
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	return analyzer.New(analyzerCfg, logger), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
