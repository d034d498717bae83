package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"encantar/internal/audit"
	"encantar/internal/platform/cache"
	"encantar/internal/platform/middleware"
	"encantar/internal/platform/postgres"
	"encantar/pkg/requestcontext"
)

func newSeedCommand() *cobra.Command {
	var name, login, password string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the first administrator and the default route sheet",
		Long: `seed is idempotent. With an empty admin table it creates one administrator
from the flags; otherwise the oldest active administrator is used as the
author of the seeded records.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := postgres.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			mods := buildModules(moduleDeps{
				cfg:       cfg,
				db:        db,
				logger:    log,
				registry:  prometheus.NewRegistry(),
				audit:     audit.NewPublisher(audit.NewPostgresStore(db), audit.WithLogger(log)),
				responses: cache.New(cache.NewMemoryStore(), cache.WithLogger(log)),
				authLimit: middleware.Passthrough,
			})

			ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))
			admin, created, err := mods.auth.Bootstrap(ctx, name, login, password)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if created {
				fmt.Fprintf(out, "administrator created: %s\n", admin.Login)
			} else {
				fmt.Fprintf(out, "using administrator: %s\n", admin.Login)
			}

			ctx = requestcontext.WithAdminID(ctx, admin.ID)
			added, err := mods.docTemplate.EnsureDefault(ctx)
			if err != nil {
				return err
			}
			if added {
				fmt.Fprintln(out, "default route sheet created")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "admin-name", "Administrator", "name of the first administrator")
	cmd.Flags().StringVar(&login, "admin-login", envOr("SEED_ADMIN_LOGIN", "admin"), "login of the first administrator")
	cmd.Flags().StringVar(&password, "admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "password of the first administrator")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
