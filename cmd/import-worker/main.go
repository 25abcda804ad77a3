package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/skuforge/catalog-engine/internal/catalog"
	"github.com/skuforge/catalog-engine/internal/goldenrecord"
	"github.com/skuforge/catalog-engine/internal/importer"
	"github.com/skuforge/catalog-engine/internal/inference"
	"github.com/skuforge/catalog-engine/internal/matching"
	"github.com/skuforge/catalog-engine/internal/media"
	"github.com/skuforge/catalog-engine/internal/ops"
	"github.com/skuforge/catalog-engine/internal/persist"
	"github.com/skuforge/catalog-engine/internal/pricing"
	"github.com/skuforge/catalog-engine/pkg/config"
	"github.com/skuforge/catalog-engine/pkg/db"
	"github.com/skuforge/catalog-engine/pkg/logger"
	"github.com/skuforge/catalog-engine/pkg/metrics"
	"github.com/skuforge/catalog-engine/pkg/migrate"
	"github.com/skuforge/catalog-engine/pkg/outbox"
	"github.com/skuforge/catalog-engine/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "import-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "import-worker"

	logg = logger.New(logger.Options{
		ServiceName: "import-worker",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	catalogRepo := catalog.NewRepository(dbClient.DB())
	lookups := catalog.NewLookups(dbClient.DB())

	var picker matching.CandidatePicker
	if cfg.FeatureFlags.InferenceEnabled && cfg.Inference.APIKey != "" {
		picker = inference.NewPicker(cfg.Inference.APIKey, cfg.Inference.Model, cfg.Inference.Timeout)
		logg.Info(context.Background(), "inference fallback matcher enabled")
	}
	engine := matching.NewEngine(catalogRepo, picker, logg, cfg.Inference.MaxCandidates)

	merger := goldenrecord.NewMerger(catalogRepo)
	pricer := pricing.NewService(pricing.NewRuleRepository(dbClient.DB()), cfg.Pricing.RuleCacheTTL)
	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	registrar := media.NewRegistrar(dbClient.DB())

	orchestrator := persist.NewOrchestrator(dbClient, catalogRepo, lookups, engine, merger, pricer, events, registrar, logg)
	importMetrics := metrics.NewImportMetrics(prometheus.DefaultRegisterer)
	batcher := persist.NewBatcher(orchestrator, persist.NewSessionRepository(dbClient.DB()), importMetrics)

	consumer, err := importer.NewConsumer(batcher, lookups, pubsubClient.FeedSubscription(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create feed consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting import worker")

	opsHandler := ops.NewHandler("import-worker", prometheus.DefaultGatherer,
		ops.Pinger{Name: "database", Ping: dbClient.Ping},
		ops.Pinger{Name: "pubsub", Ping: pubsubClient.Ping},
	)
	go ops.Serve(ctx, ":"+cfg.App.Port, opsHandler, logg)

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "import worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "import worker shutting down gracefully")
}
