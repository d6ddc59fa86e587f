// Package services orchestrates operations that span the dataset loader and
// the messaging layer.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"regalias/internal/amqp"
	"regalias/internal/dataset"
)

// DataLoader is the loader surface the refresh flow needs.
type DataLoader interface {
	Load(ctx context.Context) (*dataset.Result, error)
	Invalidate()
}

// RefreshPublisher announces completed refreshes. Implemented by amqp.Client.
type RefreshPublisher interface {
	PublishDatasetRefresh(ctx context.Context, msg *amqp.DatasetRefreshMessage) error
}

// RefreshService forces a dataset refetch and publishes the outcome.
type RefreshService struct {
	loader    DataLoader
	publisher RefreshPublisher
	dataset   string
}

// NewRefreshService wires the refresh flow. publisher may be nil when AMQP is
// not configured.
func NewRefreshService(loader DataLoader, publisher RefreshPublisher, datasetID string) *RefreshService {
	return &RefreshService{
		loader:    loader,
		publisher: publisher,
		dataset:   datasetID,
	}
}

// Refresh drops the cached dataset and refetches. A fresh fetch is announced
// over AMQP; a stale or degraded result is not, since consumers would only see
// data they already had.
func (s *RefreshService) Refresh(ctx context.Context) (*dataset.Result, error) {
	s.loader.Invalidate()

	res, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh dataset: %w", err)
	}

	if !res.Stale && res.RowsFetched > 0 {
		if err := s.publishRefreshMessage(ctx, res); err != nil {
			slog.ErrorContext(ctx, "Failed to publish refresh message",
				"dataset", s.dataset, "error", err)
			// Don't fail the refresh, the data is already served locally
		}
	}

	return res, nil
}

// HandleRefreshAnnouncement reacts to a refresh performed by another process
// (the cron binary) by dropping the cached dataset, so the next load picks up
// the new snapshot instead of serving the old cache until its TTL runs out.
func (s *RefreshService) HandleRefreshAnnouncement(msg *amqp.DatasetRefreshMessage) error {
	slog.Info("Dataset refresh announced, invalidating cache",
		"dataset", msg.Dataset,
		"rows", msg.Rows,
		"fetched_at", msg.FetchedAt)
	s.loader.Invalidate()
	return nil
}

func (s *RefreshService) publishRefreshMessage(ctx context.Context, res *dataset.Result) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping refresh message")
		return nil
	}

	msg := amqp.NewDatasetRefreshMessage(s.dataset, len(res.Projects), res.FetchedAt)
	return s.publisher.PublishDatasetRefresh(ctx, msg)
}
