package main

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"encantar/internal/audit"
	httpapi "encantar/internal/http"
	"encantar/internal/platform/cache"
	"encantar/internal/platform/config"
	"encantar/internal/platform/httpserver"
	"encantar/internal/platform/metrics"
	"encantar/internal/platform/postgres"
	redisclient "encantar/internal/platform/redis"
	"encantar/internal/platform/scheduler"
	ratelimitmetrics "encantar/internal/ratelimit/metrics"
	ratelimitmw "encantar/internal/ratelimit/middleware"
	ratelimitmodels "encantar/internal/ratelimit/models"
	"encantar/internal/ratelimit/store/bucket"
	"encantar/pkg/platform/circuit"
)

const auditQueueSize = 1024

func newServeCommand() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger, migrate bool) error {
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if migrate {
		m, err := postgres.NewMigrator(db, log)
		if err != nil {
			return err
		}
		if err := m.Up(); err != nil {
			return err
		}
	}

	rdb, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.New(registry)

	var (
		cacheStore  cache.Store = cache.NewMemoryStore()
		bucketStore ratelimitmw.BucketStore
		limitOpts   = []ratelimitmw.Option{
			ratelimitmw.WithDisabled(cfg.RateLimit.Disabled),
			ratelimitmw.WithMetrics(ratelimitmetrics.New(registry)),
		}
	)
	if rdb != nil {
		cacheStore = cache.NewRedisStore(rdb.Client)
		bucketStore = bucket.NewRedisBucketStore(rdb.Client)
		limitOpts = append(limitOpts, ratelimitmw.WithFallback(bucket.NewInMemoryBucketStore(), circuit.New("ratelimit-redis")))
	} else {
		bucketStore = bucket.NewInMemoryBucketStore()
	}
	responses := cache.New(cacheStore, cache.WithLogger(log), cache.WithMetrics(httpMetrics))
	limiter := ratelimitmw.New(bucketStore, log, limitOpts...)

	auditStore := audit.NewPostgresStore(db)
	auditOpts := []audit.Option{audit.WithLogger(log)}
	var auditWorker *audit.Worker
	if len(cfg.Kafka.Brokers) > 0 {
		client, err := audit.NewKafkaClient(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer client.Close()
		auditWorker = audit.NewWorker(audit.NewKafkaSink(client, cfg.Kafka.Topic), auditQueueSize, log)
		auditOpts = append(auditOpts, audit.WithStream(auditWorker))
	}
	publisher := audit.NewPublisher(auditStore, auditOpts...)

	mods := buildModules(moduleDeps{
		cfg:       cfg,
		db:        db,
		logger:    log,
		registry:  registry,
		audit:     publisher,
		responses: responses,
		authLimit: limiter.Limit(ratelimitmodels.AuthPolicy(cfg.RateLimit.AuthLimit, cfg.RateLimit.AuthWindow)),
	})

	checks := map[string]httpapi.HealthCheck{"database": db.PingContext}
	if rdb != nil {
		checks["redis"] = rdb.Health
	}
	deps := httpapi.Deps{
		Logger:      log,
		GlobalLimit: limiter.Limit(ratelimitmodels.GlobalPolicy(cfg.RateLimit.GlobalLimit, cfg.RateLimit.GlobalWindow)),
		Checks:      checks,
		Handlers:    mods.handlers,
	}
	if cfg.Metrics {
		deps.Metrics = httpMetrics
		deps.Gatherer = registry
	}
	router := httpapi.NewRouter(httpapi.Options{
		Env:            cfg.Env,
		Version:        cfg.Server.Version,
		Production:     cfg.IsProduction(),
		AllowedOrigins: []string{cfg.FrontendURL},
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	}, deps)

	jobs := scheduler.New(log)
	if err := jobs.Add("purge-expired-invites", "@hourly", mods.auth.PurgeExpiredInvites); err != nil {
		return err
	}
	if err := jobs.Add("audit-retention", "@daily", audit.NewRetention(auditStore, log).Run); err != nil {
		return err
	}
	jobs.Start()

	srv := httpserver.New(cfg.Server.Addr, router)

	lc := lifecycle{
		logger:  log,
		timeout: cfg.Server.ShutdownTimeout,
		serve: func() error {
			log.Info("starting encantar", "addr", cfg.Server.Addr, "env", cfg.Env, "redis", rdb != nil, "audit_stream", auditWorker != nil)
			return srv.ListenAndServe()
		},
		shutdown: func(ctx context.Context) error {
			if err := jobs.Stop(ctx); err != nil {
				log.Warn("scheduler did not stop cleanly", "error", err)
			}
			return srv.Shutdown(ctx)
		},
	}
	if auditWorker != nil {
		lc.worker = auditWorker.Run
	}
	return lc.run(ctx)
}
