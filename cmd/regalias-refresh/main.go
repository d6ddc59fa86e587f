// regalias-refresh fetches the dataset once, persists the snapshot and
// announces the refresh over AMQP. Intended for cron or manual runs.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"regalias/internal/amqp"
	"regalias/internal/config"
	"regalias/internal/dataset"
	applog "regalias/internal/log"
	"regalias/internal/services"
	"regalias/internal/socrata"
	"regalias/internal/storage"
)

func main() {
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, 10*time.Minute)
	defer timeoutCancel()

	client := socrata.NewClient(cfg.SocrataDomain, cfg.DatasetID,
		socrata.WithRetry(cfg.MaxRetries, cfg.RetryBackoff),
		socrata.WithPaging(cfg.RowLimit, cfg.MaxPages),
	)

	repo, err := storage.NewSnapshotRepository(cfg.SnapshotDBPath)
	if err != nil {
		logger.Error("Failed to open snapshot store", "error", err, "path", cfg.SnapshotDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var publisher services.RefreshPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, refresh event will not be published", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	loader := dataset.NewLoader(client, repo, cfg.CacheTTL)
	refresher := services.NewRefreshService(loader, publisher, cfg.DatasetID)

	res, err := refresher.Refresh(ctx)
	if err != nil {
		logger.Error("Refresh failed", "error", err)
		os.Exit(1)
	}
	if res.Stale || len(res.Projects) == 0 {
		// The fetch itself failed; the loader degraded to snapshot or empty.
		logger.Error("Refresh did not produce fresh data",
			"stale", res.Stale,
			"rows", len(res.Projects),
			"warnings", res.Warnings)
		os.Exit(1)
	}

	logger.Info("Refresh completed",
		"dataset", cfg.DatasetID,
		"rows", len(res.Projects),
		"rows_fetched", res.RowsFetched,
		"warnings", len(res.Warnings))
}
