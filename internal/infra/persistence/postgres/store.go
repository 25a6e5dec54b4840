// Package postgres persists population exports to Postgres through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"simago/internal/infra/persistence"
	"simago/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ domain.Sink = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/simago?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store keeps one populations row per dataset.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres connection using dsn (falls back to defaultDSN)
// and ensures the populations table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensurePopulationsTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensurePopulationsTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS populations (
		dataset TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		popsize INTEGER NOT NULL,
		seed BIGINT,
		columns JSONB NOT NULL,
		rows JSONB NOT NULL,
		created_at TEXT NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure populations table: %w", err)
	}
	return nil
}

// Name implements domain.Sink.
func (s *Store) Name() string { return "postgres" }

// Write implements domain.Sink. destination names the dataset.
func (s *Store) Write(ctx context.Context, destination string, table domain.ExportTable) (domain.Artifact, error) {
	rec, err := persistence.Encode(persistence.DatasetName(destination), table)
	if err != nil {
		return domain.Artifact{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO populations(dataset,run_id,popsize,seed,columns,rows,created_at) VALUES($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT(dataset) DO UPDATE SET run_id=EXCLUDED.run_id, popsize=EXCLUDED.popsize, seed=EXCLUDED.seed,
		columns=EXCLUDED.columns, rows=EXCLUDED.rows, created_at=EXCLUDED.created_at`,
		rec.Dataset, rec.RunID, rec.PopSize, rec.Seed, rec.Columns, rec.Rows, rec.CreatedAt); err != nil {
		return domain.Artifact{}, fmt.Errorf("upsert %s: %w", rec.Dataset, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Artifact{}, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return rec.Artifact(s.Name(), "postgres://populations/"+rec.Dataset), nil
}

// Load reads a dataset back.
func (s *Store) Load(ctx context.Context, dataset string) (domain.ExportTable, error) {
	rec := persistence.Record{Dataset: dataset}
	err := s.db.QueryRowContext(ctx, `SELECT run_id, popsize, seed, columns, rows, created_at FROM populations WHERE dataset = $1`, dataset).
		Scan(&rec.RunID, &rec.PopSize, &rec.Seed, &rec.Columns, &rec.Rows, &rec.CreatedAt)
	if err != nil {
		return domain.ExportTable{}, fmt.Errorf("load %s: %w", dataset, err)
	}
	return rec.Decode()
}

// Datasets lists stored dataset names.
func (s *Store) Datasets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT dataset FROM populations ORDER BY dataset`)
	if err != nil {
		return nil, fmt.Errorf("select datasets: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate datasets: %w", err)
	}
	return out, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
