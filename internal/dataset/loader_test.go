package dataset

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regalias/internal/core"
	"regalias/internal/socrata"
)

type fakeFetcher struct {
	records []socrata.Record
	err     error
	calls   atomic.Int64
	delay   time.Duration
}

func (f *fakeFetcher) FetchAll(ctx context.Context) ([]socrata.Record, int, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.records, len(f.records), nil
}

type fakeSnapshots struct {
	saved     []core.Project
	savedAt   time.Time
	loadRows  []core.Project
	loadTime  time.Time
	loadErr   error
	saveCalls int
}

func (s *fakeSnapshots) Save(_ context.Context, p []core.Project, at time.Time) error {
	s.saved, s.savedAt = p, at
	s.saveCalls++
	return nil
}

func (s *fakeSnapshots) Load(_ context.Context) ([]core.Project, time.Time, error) {
	if s.loadErr != nil {
		return nil, time.Time{}, s.loadErr
	}
	return s.loadRows, s.loadTime, nil
}

func goodRecords() []socrata.Record {
	return []socrata.Record{
		{
			NombreFondo:          "ASIGNACIONES DIRECTAS",
			CodigoDaneDepto:      "05000",
			NombreDepartamento:   "ANTIOQUIA",
			CodigoDaneEntidad:    "5001",
			NombreEntidad:        "MEDELLIN",
			Vigencia:             "2023-2024",
			PresupuestoInversion: "1000.50",
			RecursosAprobados:    "400.50",
		},
		{
			NombreFondo:           "ASIGNACION PARA LA INVERSION LOCAL",
			CodigoDaneDepto:       "27000",
			NombreDepartamento:    "CHOCÓ",
			CodigoDaneEntidad:     "27001000", // padded, divides down to 27001
			NombreEntidad:         "QUIBDO",
			PresupuestoInversion:  "not-a-number",
			RecursosAprobados:     "100",
			NumProyectosAprobados: "3",
		},
	}
}

func TestLoad_NormalizesRecords(t *testing.T) {
	f := &fakeFetcher{records: goodRecords()}
	l := NewLoader(f, nil, time.Minute)

	res, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Projects, 2)

	med := res.Projects[0]
	assert.Equal(t, 5, med.DeptCode)
	assert.Equal(t, int64(5001), med.EntityCode)
	assert.Equal(t, int64(100050), med.Budget.Cents)
	assert.True(t, med.Budget.Valid)
	assert.Equal(t, int64(60000), med.Pending.Cents, "pending = budget - approved")

	quibdo := res.Projects[1]
	assert.Equal(t, int64(27001), quibdo.EntityCode, "padded entity code divides down")
	assert.False(t, quibdo.Budget.Valid, "malformed money coerces to missing")
	assert.False(t, quibdo.Pending.Valid, "pending derived from missing stays missing")
	assert.Equal(t, int64(3), quibdo.NumProjects)
}

func TestLoad_DropsInvalidCodesWithWarning(t *testing.T) {
	records := append(goodRecords(), socrata.Record{
		NombreFondo:       "ASIGNACIONES DIRECTAS",
		CodigoDaneDepto:   "COR01",
		CodigoDaneEntidad: "5001",
	})
	f := &fakeFetcher{records: records}
	l := NewLoader(f, nil, time.Minute)

	res, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Projects, 2)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "codigo departamento invalido")
}

func TestLoad_DeduplicatesExactRows(t *testing.T) {
	records := append(goodRecords(), goodRecords()[0])
	f := &fakeFetcher{records: records}
	l := NewLoader(f, nil, time.Minute)

	res, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Projects, 2, "exact duplicate across pages kept once")
}

func TestLoad_CachesWithinTTL(t *testing.T) {
	f := &fakeFetcher{records: goodRecords()}
	l := NewLoader(f, nil, time.Minute)

	_, err := l.Load(context.Background())
	require.NoError(t, err)
	_, err = l.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), f.calls.Load(), "second load must hit the cache")

	l.Invalidate()
	_, err = l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.calls.Load())
}

func TestLoad_ConcurrentMissesCollapse(t *testing.T) {
	f := &fakeFetcher{records: goodRecords(), delay: 20 * time.Millisecond}
	l := NewLoader(f, nil, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Load(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), f.calls.Load(), "singleflight must collapse concurrent fetches")
}

func TestLoad_SavesSnapshotOnSuccess(t *testing.T) {
	snaps := &fakeSnapshots{}
	l := NewLoader(&fakeFetcher{records: goodRecords()}, snaps, time.Minute)

	res, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snaps.saveCalls)
	assert.Len(t, snaps.saved, len(res.Projects))
}

func TestLoad_FallsBackToSnapshot(t *testing.T) {
	snapTime := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	snaps := &fakeSnapshots{
		loadRows: []core.Project{{Entity: "MEDELLIN", DeptCode: 5, EntityCode: 5001}},
		loadTime: snapTime,
	}
	l := NewLoader(&fakeFetcher{err: errors.New("socrata down")}, snaps, time.Minute)

	res, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Len(t, res.Projects, 1)
	assert.Equal(t, snapTime, res.FetchedAt)
	require.NotEmpty(t, res.Warnings)
}

func TestLoad_DegradesToEmptyWhenNoSnapshot(t *testing.T) {
	snaps := &fakeSnapshots{loadErr: core.ErrNoData}
	l := NewLoader(&fakeFetcher{err: errors.New("socrata down")}, snaps, time.Minute)

	res, err := l.Load(context.Background())
	require.NoError(t, err, "a failed fetch degrades, it never errors out")
	assert.Empty(t, res.Projects)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "Error al cargar los datos")
}
