// Package main provides the API server entry point for the lotkeeper service.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lotkeeper/internal/api"
	"github.com/lotkeeper/internal/config"
	"github.com/lotkeeper/internal/logging"
	"github.com/lotkeeper/internal/service"
	"github.com/lotkeeper/internal/storage"
	"github.com/lotkeeper/internal/worker"
)

const migrationsPath = "migrations"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to ClickHouse")
	}
	defer clickhouse.Close()

	// Redis is optional: without it summaries are computed on every request.
	var redis *storage.RedisCache
	redis, err = storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, summary caching disabled")
		redis = nil
	} else {
		defer redis.Close()
	}

	logger.Info("Database connections established")

	if err := storage.RunMigrations(cfg.Database.Postgres.URL(), migrationsPath); err != nil {
		logger.WithError(err).Fatal("Failed to run Postgres migrations")
	}
	if err := storage.EnsureDatapointSchema(context.Background(), clickhouse, cfg.Retention.DatapointTTLDays); err != nil {
		logger.WithError(err).Fatal("Failed to ensure ClickHouse schema")
	}

	realmRepo := storage.NewRealmRepository(postgres.Pool())
	listingRepo := storage.NewListingRepository(postgres.Pool())
	itemRepo := storage.NewItemRepository(postgres.Pool())
	rollupRepo := storage.NewRollupRepository(postgres.Pool())
	datapointRepo := storage.NewDatapointRepository(clickhouse)
	cacheService := storage.NewCacheService(redis, cfg.Cache.TTL)

	logger.Info("Initializing services...")

	rollupService := service.NewRollupService(listingRepo, rollupRepo, cfg.Stats)
	rollupWorker := worker.NewRollupWorker(rollupService, cfg.Rollup, logger)

	ingestService := service.NewIngestService(
		listingRepo,
		datapointRepo,
		rollupRepo,
		cacheService,
		rollupWorker,
		cfg.Guard,
		cfg.Rollup,
	)
	realmService := service.NewRealmService(realmRepo)
	auctionService := service.NewAuctionService(listingRepo, itemRepo)
	summaryService := service.NewSummaryService(datapointRepo, rollupRepo, cacheService, cfg.Stats)

	logger.Info("Services initialized")

	server := api.NewServer(cfg, ingestService, realmService, auctionService, summaryService, postgres, clickhouse)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	// Drain pending deferred rollups before closing the stores.
	rollupWorker.Stop()

	logger.Info("Server exited")
}
