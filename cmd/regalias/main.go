package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"regalias/internal/amqp"
	"regalias/internal/config"
	"regalias/internal/dataset"
	"regalias/internal/geo"
	apphttp "regalias/internal/http"
	applog "regalias/internal/log"
	"regalias/internal/services"
	"regalias/internal/socrata"
	"regalias/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: applog.ParseLevel(os.Getenv("LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	client := socrata.NewClient(cfg.SocrataDomain, cfg.DatasetID,
		socrata.WithRetry(cfg.MaxRetries, cfg.RetryBackoff),
		socrata.WithPaging(cfg.RowLimit, cfg.MaxPages),
	)

	// Snapshot store is optional: without it a failed fetch degrades to an
	// empty dashboard instead of the last good data.
	var snapshots dataset.SnapshotStore
	repo, err := storage.NewSnapshotRepository(cfg.SnapshotDBPath)
	if err != nil {
		logger.Warn("Snapshot store unavailable, continuing without fallback", "error", err, "path", cfg.SnapshotDBPath)
	} else {
		defer repo.Close()
		snapshots = repo
	}

	loader := dataset.NewLoader(client, snapshots, cfg.CacheTTL)
	geoSrc := geo.NewSource(cfg.DivipolaPath, cfg.GeoJSONPath, cfg.GeoJSONURL)

	var publisher services.RefreshPublisher
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, refresh events disabled", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			events = amqpClient
		}
	}
	refresher := services.NewRefreshService(loader, publisher, cfg.DatasetID)

	srv := apphttp.NewServer(cfg, loader, refresher, geoSrc)
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 60 * time.Second // exports can take a moment
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Refreshes run by cmd/regalias-refresh announce themselves over AMQP;
	// drop the in-process cache so the next request sees the new snapshot.
	if events != nil {
		go func() {
			err := events.ConsumeDatasetRefresh(ctx, refresher.HandleRefreshAnnouncement)
			if err != nil && ctx.Err() == nil {
				logger.Warn("Refresh event consumer stopped", "error", err)
			}
		}()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting regalias server",
		"port", cfg.Port,
		"dataset", cfg.DatasetID,
		"domain", cfg.SocrataDomain)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
