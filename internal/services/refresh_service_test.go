package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regalias/internal/amqp"
	"regalias/internal/core"
	"regalias/internal/dataset"
)

type fakeLoader struct {
	result      *dataset.Result
	err         error
	invalidated int
	loads       int
}

func (f *fakeLoader) Load(context.Context) (*dataset.Result, error) {
	f.loads++
	return f.result, f.err
}

func (f *fakeLoader) Invalidate() { f.invalidated++ }

type fakePublisher struct {
	published []*amqp.DatasetRefreshMessage
	err       error
}

func (f *fakePublisher) PublishDatasetRefresh(_ context.Context, msg *amqp.DatasetRefreshMessage) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func freshResult() *dataset.Result {
	return &dataset.Result{
		Projects:    []core.Project{{Entity: "MEDELLIN"}},
		RowsFetched: 1,
		FetchedAt:   time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC),
	}
}

func TestRefresh_InvalidatesThenLoads(t *testing.T) {
	loader := &fakeLoader{result: freshResult()}
	svc := NewRefreshService(loader, nil, "g4qj-2p2e")

	res, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, loader.invalidated)
	assert.Equal(t, 1, loader.loads)
	assert.Len(t, res.Projects, 1)
}

func TestRefresh_PublishesOnFreshFetch(t *testing.T) {
	loader := &fakeLoader{result: freshResult()}
	pub := &fakePublisher{}
	svc := NewRefreshService(loader, pub, "g4qj-2p2e")

	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.published, 1)
	assert.Equal(t, "g4qj-2p2e", pub.published[0].Dataset)
	assert.Equal(t, 1, pub.published[0].Rows)
	assert.Equal(t, loader.result.FetchedAt, pub.published[0].FetchedAt)
}

func TestRefresh_SkipsPublishWhenStale(t *testing.T) {
	res := freshResult()
	res.Stale = true
	loader := &fakeLoader{result: res}
	pub := &fakePublisher{}
	svc := NewRefreshService(loader, pub, "g4qj-2p2e")

	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pub.published, "stale data carries no new information")
}

func TestRefresh_PublishFailureDoesNotFailRefresh(t *testing.T) {
	loader := &fakeLoader{result: freshResult()}
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewRefreshService(loader, pub, "g4qj-2p2e")

	res, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res)
}

func TestHandleRefreshAnnouncement_InvalidatesCache(t *testing.T) {
	loader := &fakeLoader{result: freshResult()}
	svc := NewRefreshService(loader, nil, "g4qj-2p2e")

	msg := amqp.NewDatasetRefreshMessage("g4qj-2p2e", 42, time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC))
	require.NoError(t, svc.HandleRefreshAnnouncement(msg))
	assert.Equal(t, 1, loader.invalidated)
	assert.Equal(t, 0, loader.loads, "invalidation alone; the next request triggers the reload")
}

func TestRefresh_LoaderError(t *testing.T) {
	loader := &fakeLoader{err: errors.New("boom")}
	svc := NewRefreshService(loader, nil, "g4qj-2p2e")

	_, err := svc.Refresh(context.Background())
	require.Error(t, err)
}
