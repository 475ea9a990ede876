package main

import (
	"github.com/spf13/cobra"

	"github.com/latticedocs/lattice/internal/api"
	"github.com/latticedocs/lattice/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "lattice",
	Short: "Concept-document pipeline for medical education",
	Long: `Lattice turns a clinical topic into a structured teaching document:
an interlinked concept map plus a cited narrative.

The pipeline includes:
  - Structured concept-map generation with JSON recovery
  - Narrative assembly with truncation detection and continuation
  - Cross-reference linking of concepts into the narrative
  - Citation extraction from grounding metadata or the text itself`,
	Version: version.GitRelease,

	// main prints the error once; keep cobra from repeating it.
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.lattice/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "lattice home directory (default: ~/.lattice)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
