// Package dataset turns raw Socrata records into the normalized project
// table the dashboard works on. Results are cached for a bounded window; a
// failed fetch falls back to the last persisted snapshot, then to an empty
// table with a warning. Nothing here is fatal.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"regalias/internal/cache"
	"regalias/internal/core"
	"regalias/internal/socrata"
)

const cacheKey = "sgr-dataset"

// Fetcher pages through the remote dataset.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]socrata.Record, int, error)
}

// SnapshotStore persists the last good fetch.
type SnapshotStore interface {
	Save(ctx context.Context, projects []core.Project, fetchedAt time.Time) error
	Load(ctx context.Context) ([]core.Project, time.Time, error)
}

// Result is one loaded dataset. Stale marks a snapshot served because the
// remote fetch failed; Warnings are user-facing degradation notices.
type Result struct {
	Projects    []core.Project
	RowsFetched int
	FetchedAt   time.Time
	Stale       bool
	Warnings    []string
}

type Loader struct {
	fetcher   Fetcher
	snapshots SnapshotStore // may be nil
	results   *cache.TTLStore[*Result]
	group     singleflight.Group
}

func NewLoader(fetcher Fetcher, snapshots SnapshotStore, ttl time.Duration) *Loader {
	return &Loader{
		fetcher:   fetcher,
		snapshots: snapshots,
		results:   cache.NewTTLStore[*Result](4, ttl),
	}
}

// Load returns the dataset, hitting the remote source only on cache miss.
// Concurrent misses are collapsed into a single fetch.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	if res, ok := l.results.Get(cacheKey); ok {
		return res, nil
	}

	v, err, _ := l.group.Do(cacheKey, func() (interface{}, error) {
		// Re-check: another caller may have populated while we waited.
		if res, ok := l.results.Get(cacheKey); ok {
			return res, nil
		}
		res := l.loadUncached(ctx)
		l.results.Set(cacheKey, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// Invalidate drops the cached dataset so the next Load refetches.
func (l *Loader) Invalidate() {
	l.results.Delete(cacheKey)
}

func (l *Loader) loadUncached(ctx context.Context) *Result {
	records, fetched, err := l.fetcher.FetchAll(ctx)
	if err == nil {
		res := normalize(records, fetched)
		res.FetchedAt = time.Now()

		if l.snapshots != nil {
			if saveErr := l.snapshots.Save(ctx, res.Projects, res.FetchedAt); saveErr != nil {
				slog.WarnContext(ctx, "Failed to persist snapshot", "error", saveErr)
			}
		}
		slog.InfoContext(ctx, "Dataset loaded",
			"rows_fetched", res.RowsFetched,
			"rows_kept", len(res.Projects),
			"warnings", len(res.Warnings))
		return res
	}

	slog.ErrorContext(ctx, "Dataset fetch failed, degrading", "error", err)

	if l.snapshots != nil {
		projects, fetchedAt, snapErr := l.snapshots.Load(ctx)
		if snapErr == nil {
			return &Result{
				Projects:    projects,
				RowsFetched: len(projects),
				FetchedAt:   fetchedAt,
				Stale:       true,
				Warnings: []string{fmt.Sprintf(
					"No se pudo actualizar desde la API (%v); mostrando datos del %s.",
					err, fetchedAt.Format("2006-01-02 15:04"))},
			}
		}
		slog.WarnContext(ctx, "Snapshot fallback unavailable", "error", snapErr)
	}

	return &Result{
		Warnings: []string{fmt.Sprintf("Error al cargar los datos: %v", err)},
	}
}

// normalize coerces identifiers and monetary fields, derives the pending
// balance and drops rows whose DANE codes cannot be parsed. Exact duplicate
// rows (overlapping pages) are kept once.
func normalize(records []socrata.Record, fetched int) *Result {
	res := &Result{RowsFetched: fetched}

	seen := make(map[string]struct{}, len(records))
	droppedDept, droppedEntity := 0, 0

	for _, rec := range records {
		key := dedupeKey(rec)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		deptCode, err := core.ParseDeptCode(rec.CodigoDaneDepto)
		if err != nil {
			droppedDept++
			continue
		}
		entityCode, err := core.ParseEntityCode(rec.CodigoDaneEntidad)
		if err != nil {
			droppedEntity++
			continue
		}

		budget := core.ParseMoney(rec.PresupuestoInversion)
		approved := core.ParseMoney(rec.RecursosAprobados)

		res.Projects = append(res.Projects, core.Project{
			Fund:         strings.TrimSpace(rec.NombreFondo),
			FundCode:     strings.TrimSpace(rec.CodigoFondo),
			Department:   strings.TrimSpace(rec.NombreDepartamento),
			DeptCode:     deptCode,
			Entity:       strings.TrimSpace(rec.NombreEntidad),
			EntityCode:   entityCode,
			Vigencia:     strings.TrimSpace(rec.Vigencia),
			RegionalPool: strings.TrimSpace(rec.NombreBolsaRegional),
			Budget:       budget,
			Approved:     approved,
			Pending:      budget.Sub(approved),
			NumProjects:  parseCount(rec.NumProyectosAprobados),
		})
	}

	if droppedDept > 0 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%d filas descartadas por codigo departamento invalido.", droppedDept))
	}
	if droppedEntity > 0 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%d filas descartadas por codigo entidad invalido.", droppedEntity))
	}

	return res
}

func dedupeKey(r socrata.Record) string {
	return strings.Join([]string{
		r.CodigoFondo, r.NombreFondo, r.CodigoDaneDepto, r.CodigoDaneEntidad,
		r.NombreEntidad, r.Vigencia, r.NombreBolsaRegional,
		r.PresupuestoInversion, r.RecursosAprobados,
	}, "\x1f")
}

func parseCount(s string) int64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return int64(v)
}
