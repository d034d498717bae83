package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"encantar/internal/platform/config"
	"encantar/internal/platform/logger"
)

func newRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "encantar",
		Short:         "Delivery and beneficiary management API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newSeedCommand())
	return root
}

// loadConfig is shared by every subcommand.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)
	return cfg, log, nil
}
