package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/saleminimum-backend/api/routes"
	"github.com/angelmondragon/saleminimum-backend/internal/catalog"
	"github.com/angelmondragon/saleminimum-backend/internal/minimums"
	"github.com/angelmondragon/saleminimum-backend/internal/saleconfig"
	"github.com/angelmondragon/saleminimum-backend/internal/sales"
	"github.com/angelmondragon/saleminimum-backend/pkg/config"
	"github.com/angelmondragon/saleminimum-backend/pkg/db"
	"github.com/angelmondragon/saleminimum-backend/pkg/i18n"
	"github.com/angelmondragon/saleminimum-backend/pkg/logger"
	"github.com/angelmondragon/saleminimum-backend/pkg/metrics"
	"github.com/angelmondragon/saleminimum-backend/pkg/migrate"
	"github.com/angelmondragon/saleminimum-backend/pkg/outbox"
	"github.com/angelmondragon/saleminimum-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	minimumMetrics := metrics.NewMinimumMetrics(registry)

	translator, err := i18n.New()
	if err != nil {
		logg.Error(context.Background(), "failed to build message catalog", err)
		os.Exit(1)
	}

	var catalogReader catalog.Reader = catalog.NewRepository(dbClient.DB())
	if cfg.FeatureFlags.CatalogCache {
		cached, err := catalog.NewCachedReader(catalogReader, redisClient, cfg.Redis.CatalogCacheTTL, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create catalog cache", err)
			os.Exit(1)
		}
		catalogReader = cached
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	seed, err := cfg.Sale.MinimumAmountDecimal()
	if err != nil {
		logg.Error(context.Background(), "invalid minimum amount", err)
		os.Exit(1)
	}
	saleConfigService, err := saleconfig.NewService(saleconfig.NewRepository(dbClient.DB()), dbClient, outboxService, seed, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create sale configuration service", err)
		os.Exit(1)
	}

	resolver := minimums.NewResolver(logg, minimumMetrics)
	enforcer := minimums.NewEnforcer(resolver, cfg.Sale.Policy(), minimums.NewLogNotifier(logg), translator, minimumMetrics)
	pipeline := minimums.DefaultPipeline(resolver, saleConfigService, translator, minimumMetrics)

	salesService, err := sales.NewService(sales.ServiceParams{
		Repo:        sales.NewRepository(dbClient.DB()),
		Tx:          dbClient,
		Catalog:     catalogReader,
		Enforcer:    enforcer,
		Pipeline:    pipeline,
		Outbox:      outboxService,
		Metrics:     minimumMetrics,
		Logger:      logg,
		PriceDigits: cfg.Sale.UnitPriceDigits,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sales service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("HOSTNAME")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":             cfg.App.Env,
		"addr":            addr,
		"instance":        id,
		"quantity_policy": enforcer.Policy().String(),
		"validators":      pipeline.Names(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			Translator: translator,
			Gatherer:   registry,
			Sales:      salesService,
			SaleConfig: saleConfigService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}
