package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sitewatch/internal/api"
	"sitewatch/internal/config"
	"sitewatch/internal/enrich"
	"sitewatch/internal/ingest"
	"sitewatch/internal/monitoring"
	"sitewatch/internal/sitemap"
	"sitewatch/internal/storage"

	"go.uber.org/zap"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}

	// Initialize Storage Layer
	pgStore, err := storage.NewPostgresStore(context.Background(), cfg.PostgresURL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	if err := pgStore.EnsureSchema(context.Background()); err != nil {
		logger.Fatal("failed to ensure schema", zap.Error(err))
	}
	redisStore := storage.NewRedisStore(cfg.RedisAddr)

	// Initialize Monitoring
	metrics := monitoring.NewMetrics()

	// Initialize Core Pipeline
	fetchTimeout := time.Duration(cfg.FetchTimeoutSeconds) * time.Second
	parser := sitemap.NewParser(fetchTimeout, metrics, logger)
	ingestor := ingest.NewIngestor(cfg, parser, pgStore, metrics, logger)
	scraper := enrich.NewScraper(fetchTimeout, logger)

	// Initialize API Server
	server := api.NewServer(cfg, ingestor, pgStore, redisStore, scraper, logger)

	// Graceful Shutdown
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
