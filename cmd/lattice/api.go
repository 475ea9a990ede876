package main

import (
	"github.com/spf13/cobra"

	"github.com/latticedocs/lattice/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Lattice server via HTTP.

These commands require a running server (lattice serve).
Use --server to specify a custom server URL.

Examples:
  lattice api health                  # Check server health
  lattice api documents list          # List generated documents
  lattice api jobs get <id>           # Get a specific job`,
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Document management commands",
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Job management commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8585", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Producer call history at top level
	apiCmd.AddCommand((&endpoints.ListCallsEndpoint{}).Command(getServerURL))

	for _, e := range endpoints.DocumentCommands() {
		documentsCmd.AddCommand(e.Command(getServerURL))
	}
	for _, e := range endpoints.JobCommands() {
		jobsCmd.AddCommand(e.Command(getServerURL))
	}

	apiCmd.AddCommand(documentsCmd)
	apiCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(apiCmd)
}
