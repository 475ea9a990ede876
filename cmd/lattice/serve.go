package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/latticedocs/lattice/internal/config"
	"github.com/latticedocs/lattice/internal/home"
	"github.com/latticedocs/lattice/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Lattice server",
	Long: `Start the Lattice HTTP server.

The server owns the document store and a worker pool for generation
jobs. Configuration is hot-reloaded when the config file changes.

Examples:
  lattice serve                    # Start on default port 8585
  lattice serve --port 3000        # Start on custom port
  lattice serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
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
		configMgr.WatchConfig()

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			Home:          h,
			ConfigManager: configMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

// newConfigManager loads configuration, writing the sample config to
// the home directory first if none exists yet.
func newConfigManager(h *home.Dir) (*config.Manager, error) {
	if cfgFile == "" && !h.ConfigExists() {
		if err := config.WriteDefault(h.ConfigPath()); err != nil {
			return nil, err
		}
	}
	return config.NewManager(cfgFile)
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8585", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
