package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/latticedocs/lattice/internal/home"
	"github.com/latticedocs/lattice/internal/mcpserver"
	"github.com/latticedocs/lattice/internal/producer"
	"github.com/latticedocs/lattice/internal/prompts"
	"github.com/latticedocs/lattice/internal/prompts/conceptmap"
	"github.com/latticedocs/lattice/internal/prompts/narrative"
	"github.com/latticedocs/lattice/internal/store"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	Long: `Serve Lattice tools to an MCP client over stdin/stdout.

Exposes lattice_generate, lattice_get_document, and
lattice_list_documents. Stdout carries the protocol, so all
logging goes to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Stdout belongs to the protocol.
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		configMgr, err := newConfigManager(h)
		if err != nil {
			return err
		}

		registry := producer.NewRegistry()
		registry.SetLogger(logger)
		registry.Reload(configMgr.Get().ToProducerSpecs())

		resolver := prompts.NewResolver(logger)
		conceptmap.RegisterPrompts(resolver)
		narrative.RegisterPrompts(resolver)
		if err := resolver.LoadOverrides(h.PromptsDir()); err != nil {
			return err
		}

		st, err := store.Open(h.StorePath())
		if err != nil {
			return err
		}
		defer st.Close()

		s := mcpserver.New(mcpserver.Deps{
			Store:     st,
			Producers: registry,
			Prompts:   resolver,
			ConfigMgr: configMgr,
			Logger:    logger,
		})
		return mcpserver.ServeStdio(s)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
