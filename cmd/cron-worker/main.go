package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/skuforge/catalog-engine/internal/catalog"
	"github.com/skuforge/catalog-engine/internal/cron"
	"github.com/skuforge/catalog-engine/internal/exploder"
	"github.com/skuforge/catalog-engine/internal/goldenrecord"
	"github.com/skuforge/catalog-engine/internal/media"
	"github.com/skuforge/catalog-engine/internal/ops"
	"github.com/skuforge/catalog-engine/internal/readiness"
	"github.com/skuforge/catalog-engine/pkg/config"
	"github.com/skuforge/catalog-engine/pkg/db"
	"github.com/skuforge/catalog-engine/pkg/logger"
	"github.com/skuforge/catalog-engine/pkg/metrics"
	"github.com/skuforge/catalog-engine/pkg/migrate"
	"github.com/skuforge/catalog-engine/pkg/outbox"
	"github.com/skuforge/catalog-engine/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	catalogRepo := catalog.NewRepository(dbClient.DB())
	merger := goldenrecord.NewMerger(catalogRepo)
	outboxRepo := outbox.NewRepository(dbClient.DB())
	events := outbox.NewService(outboxRepo, logg)
	registrar := media.NewRegistrar(dbClient.DB())
	bundleExploder := exploder.NewExploder(dbClient, catalogRepo, merger, events, logg)
	readinessService := readiness.NewService(readiness.NewRepository(dbClient.DB()), catalogRepo, registrar, redisClient, logg)

	registry := cron.NewRegistry()
	registerJob(logg, registry, func() (cron.Job, error) {
		return cron.NewExplosionJob(cron.ExplosionJobParams{
			Logger:    logg,
			Exploder:  bundleExploder,
			BatchSize: cfg.Explosion.BatchSize,
		})
	})
	registerJob(logg, registry, func() (cron.Job, error) {
		return cron.NewOutboxRequeueJob(cron.OutboxRequeueJobParams{
			Logger:        logg,
			DB:            dbClient,
			Repository:    outboxRepo,
			MaxAttempts:   cfg.Outbox.MaxAttempts,
			StaleClaimAge: cfg.Cron.StaleClaimAge,
		})
	})
	registerJob(logg, registry, func() (cron.Job, error) {
		return cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
			Logger:      logg,
			DB:          dbClient,
			Repository:  outboxRepo,
			Retention:   cfg.Outbox.RetentionDays,
			MaxAttempts: cfg.Outbox.MaxAttempts,
		})
	})
	registerJob(logg, registry, func() (cron.Job, error) {
		return cron.NewReadinessRefreshJob(cron.ReadinessRefreshJobParams{
			Logger:    logg,
			Refresher: readinessService,
			MaxAge:    cfg.Readiness.StaleMaxAge,
			Limit:     cfg.Readiness.RefreshLimit,
		})
	})

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redis.LockKey("cron-worker:"+cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	opsHandler := ops.NewHandler("cron-worker", prometheus.DefaultGatherer,
		ops.Pinger{Name: "database", Ping: dbClient.Ping},
		ops.Pinger{Name: "redis", Ping: redisClient.Ping},
	)
	go ops.Serve(ctx, ":"+cfg.App.Port, opsHandler, logg)

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func registerJob(logg *logger.Logger, registry *cron.Registry, build func() (cron.Job, error)) {
	job, err := build()
	if err != nil {
		logg.Error(context.Background(), "failed to build cron job", err)
		os.Exit(1)
	}
	registry.Register(job)
}
