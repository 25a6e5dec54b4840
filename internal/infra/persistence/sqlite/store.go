// Package sqlite persists population exports to an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"simago/internal/infra/persistence"
	"simago/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.Sink = (*Store)(nil)

// Store keeps one row per dataset in the populations table. Writing a
// dataset again replaces it.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens or creates the database file.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "simago.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS populations (
		dataset TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		popsize INTEGER NOT NULL,
		seed INTEGER,
		columns BLOB NOT NULL,
		rows BLOB NOT NULL,
		created_at TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create populations table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Name implements domain.Sink.
func (s *Store) Name() string { return "sqlite" }

// Write implements domain.Sink. destination names the dataset.
func (s *Store) Write(ctx context.Context, destination string, table domain.ExportTable) (_ domain.Artifact, retErr error) {
	rec, err := persistence.Encode(persistence.DatasetName(destination), table)
	if err != nil {
		return domain.Artifact{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Artifact{}, err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO populations(dataset,run_id,popsize,seed,columns,rows,created_at) VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(dataset) DO UPDATE SET run_id=excluded.run_id, popsize=excluded.popsize, seed=excluded.seed,
		columns=excluded.columns, rows=excluded.rows, created_at=excluded.created_at`,
		rec.Dataset, rec.RunID, rec.PopSize, rec.Seed, rec.Columns, rec.Rows, rec.CreatedAt); err != nil {
		return domain.Artifact{}, fmt.Errorf("upsert %s: %w", rec.Dataset, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Artifact{}, err
	}
	return rec.Artifact(s.Name(), fmt.Sprintf("sqlite://%s#%s", s.path, rec.Dataset)), nil
}

// Load reads a dataset back.
func (s *Store) Load(ctx context.Context, dataset string) (domain.ExportTable, error) {
	rec := persistence.Record{Dataset: dataset}
	err := s.db.QueryRowContext(ctx, `SELECT run_id, popsize, seed, columns, rows, created_at FROM populations WHERE dataset = ?`, dataset).
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
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
