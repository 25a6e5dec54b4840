package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"simago/internal/adapters/export"
	"simago/internal/blob"
	"simago/internal/infra/persistence/memory"
	"simago/internal/infra/persistence/postgres"
	"simago/internal/infra/persistence/sqlite"
	"simago/pkg/domain"
)

// SinkDriver identifies a concrete export sink implementation.
type SinkDriver string

const (
	SinkCSV      SinkDriver = "csv"      // CSV bytes into the blob store
	SinkJSON     SinkDriver = "json"     // JSON bytes into the blob store
	SinkSQLite   SinkDriver = "sqlite"   // embedded sqlite file
	SinkPostgres SinkDriver = "postgres" // PostgreSQL server
	SinkMemory   SinkDriver = "memory"   // in-memory only (tests / ephemeral)
)

// Sinks is a set of opened export sinks. Close releases database handles.
type Sinks struct {
	List    []domain.Sink
	closers []io.Closer
}

// Close closes every sink that holds a connection.
func (s *Sinks) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// OpenSinks builds export sinks by name. With no names it reads the
// environment:
//
//	SIMAGO_SINKS: comma separated csv|json|sqlite|postgres|memory (default csv)
//	SIMAGO_BLOB_DRIVER: blob backend for csv/json (see internal/blob)
//	SIMAGO_SQLITE_PATH: path to sqlite file (default ./simago.db)
//	SIMAGO_POSTGRES_DSN: postgres DSN when postgres is selected
func OpenSinks(ctx context.Context, names ...string) (*Sinks, error) {
	if len(names) == 0 {
		names = strings.Split(os.Getenv("SIMAGO_SINKS"), ",")
	}
	out := &Sinks{}
	var store blob.Store
	blobStore := func() (blob.Store, error) {
		if store != nil {
			return store, nil
		}
		s, err := blob.Open(ctx)
		if err != nil {
			return nil, err
		}
		store = s
		return store, nil
	}
	seen := make(map[SinkDriver]bool)
	for _, raw := range names {
		driver := SinkDriver(strings.ToLower(strings.TrimSpace(raw)))
		if driver == "" {
			continue
		}
		if seen[driver] {
			continue
		}
		seen[driver] = true
		sink, closer, err := openSink(ctx, driver, blobStore)
		if err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("open sink %s: %w", driver, err)
		}
		out.List = append(out.List, sink)
		if closer != nil {
			out.closers = append(out.closers, closer)
		}
	}
	if len(out.List) == 0 {
		sink, _, err := openSink(ctx, SinkCSV, blobStore)
		if err != nil {
			return nil, fmt.Errorf("open sink %s: %w", SinkCSV, err)
		}
		out.List = append(out.List, sink)
	}
	return out, nil
}

func openSink(ctx context.Context, driver SinkDriver, blobStore func() (blob.Store, error)) (domain.Sink, io.Closer, error) {
	switch driver {
	case SinkCSV, SinkJSON:
		store, err := blobStore()
		if err != nil {
			return nil, nil, err
		}
		sink, err := export.NewBlobSink(store, export.Format(driver))
		return sink, nil, err
	case SinkSQLite:
		s, err := sqlite.NewStore(os.Getenv("SIMAGO_SQLITE_PATH"))
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case SinkPostgres:
		s, err := postgres.NewStore(ctx, os.Getenv("SIMAGO_POSTGRES_DSN"))
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case SinkMemory:
		return memory.NewStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink driver %s", driver)
	}
}
