// Package storage persists the last successful dataset fetch in a local
// SQLite file. When the remote API is unreachable the dashboard serves this
// snapshot instead of an empty table.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"regalias/internal/core"

	_ "modernc.org/sqlite"
)

type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(dbPath string) (*SnapshotRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SnapshotRepository{db: db}, nil
}

func (r *SnapshotRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Save replaces the stored snapshot with the given rows. The whole swap
// happens in one transaction so a reader never sees a half-written snapshot.
func (r *SnapshotRepository) Save(ctx context.Context, projects []core.Project, fetchedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM projects"); err != nil {
		return fmt.Errorf("clear previous snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO projects (fund, fund_code, department, dept_code, entity, entity_code,
			vigencia, regional_pool, budget_cents, approved_cents, pending_cents, num_projects)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range projects {
		_, err := stmt.ExecContext(ctx,
			p.Fund, p.FundCode, p.Department, p.DeptCode, p.Entity, p.EntityCode,
			p.Vigencia, p.RegionalPool,
			moneyToNull(p.Budget), moneyToNull(p.Approved), moneyToNull(p.Pending),
			p.NumProjects)
		if err != nil {
			return fmt.Errorf("insert project row: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (id, fetched_at, row_count) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET fetched_at = excluded.fetched_at, row_count = excluded.row_count`,
		fetchedAt.UTC(), len(projects)); err != nil {
		return fmt.Errorf("update snapshot metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot saved",
		"rows", len(projects),
		"fetched_at", fetchedAt.Format(time.RFC3339))
	return nil
}

// Load returns the stored snapshot and its fetch time. core.ErrNoData when
// no snapshot has been saved yet.
func (r *SnapshotRepository) Load(ctx context.Context) ([]core.Project, time.Time, error) {
	var fetchedAt time.Time
	err := r.db.QueryRowContext(ctx, "SELECT fetched_at FROM snapshot_meta WHERE id = 1").Scan(&fetchedAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, core.ErrNoData
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read snapshot metadata: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT fund, fund_code, department, dept_code, entity, entity_code,
			vigencia, regional_pool, budget_cents, approved_cents, pending_cents, num_projects
		FROM projects ORDER BY id`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read snapshot rows: %w", err)
	}
	defer rows.Close()

	var projects []core.Project
	for rows.Next() {
		var p core.Project
		var budget, approved, pending sql.NullInt64
		if err := rows.Scan(&p.Fund, &p.FundCode, &p.Department, &p.DeptCode,
			&p.Entity, &p.EntityCode, &p.Vigencia, &p.RegionalPool,
			&budget, &approved, &pending, &p.NumProjects); err != nil {
			return nil, time.Time{}, fmt.Errorf("scan project row: %w", err)
		}
		p.Budget = nullToMoney(budget)
		p.Approved = nullToMoney(approved)
		p.Pending = nullToMoney(pending)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return projects, fetchedAt, nil
}

func moneyToNull(m core.Money) sql.NullInt64 {
	return sql.NullInt64{Int64: m.Cents, Valid: m.Valid}
}

func nullToMoney(n sql.NullInt64) core.Money {
	return core.Money{Cents: n.Int64, Valid: n.Valid}
}
