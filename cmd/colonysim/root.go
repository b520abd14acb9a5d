package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/mini-colony/internal/config"
)

var configPath string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "colonysim",
		Short: "Colony simulation server",
		Long: `colonysim runs the colony simulation: agents, construction and the
HTTP/websocket API. State is kept in a sqlite database and autosaved.

Examples:
  colonysim --config config.yaml
  colonysim snapshot export --out colony.snap.zst
  colonysim snapshot import --in colony.snap.zst
  colonysim catalog`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to config file (default: ./config.yaml if present)")

	root.AddCommand(newSnapshotCommand())
	root.AddCommand(newCatalogCommand())
	return root
}

// loadConfig reads configuration and installs the default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(cfg.Log.NewLogger(os.Stdout))
	return cfg, nil
}
