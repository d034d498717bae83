package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"encantar/internal/platform/postgres"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	cmd.AddCommand(
		migrateStep("up", "Apply all pending migrations", func(m *postgres.Migrator) error { return m.Up() }),
		migrateStep("down", "Roll back the most recent migration", func(m *postgres.Migrator) error { return m.Down() }),
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(m *postgres.Migrator) error {
					v, dirty, err := m.Version()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}

func migrateStep(use, short string, run func(*postgres.Migrator) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, run)
		},
	}
}

func withMigrator(cmd *cobra.Command, run func(*postgres.Migrator) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := postgres.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := postgres.NewMigrator(db, log)
	if err != nil {
		return err
	}
	return run(m)
}
