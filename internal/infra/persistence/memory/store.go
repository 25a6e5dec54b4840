// Package memory provides an in-memory export sink used for tests and
// ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"simago/internal/infra/persistence"
	"simago/pkg/domain"
)

var _ domain.Sink = (*Store)(nil)

// Store keeps encoded datasets in a map guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	records map[string]persistence.Record
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]persistence.Record)}
}

// Name implements domain.Sink.
func (s *Store) Name() string { return "memory" }

// Write implements domain.Sink. destination names the dataset.
func (s *Store) Write(ctx context.Context, destination string, table domain.ExportTable) (domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return domain.Artifact{}, err
	}
	rec, err := persistence.Encode(persistence.DatasetName(destination), table)
	if err != nil {
		return domain.Artifact{}, err
	}
	s.mu.Lock()
	s.records[rec.Dataset] = rec
	s.mu.Unlock()
	return rec.Artifact(s.Name(), "memory://"+rec.Dataset), nil
}

// Load decodes a stored dataset.
func (s *Store) Load(_ context.Context, dataset string) (domain.ExportTable, error) {
	s.mu.RLock()
	rec, ok := s.records[dataset]
	s.mu.RUnlock()
	if !ok {
		return domain.ExportTable{}, fmt.Errorf("dataset %s not found", dataset)
	}
	return rec.Decode()
}

// Datasets lists stored dataset names in sorted order.
func (s *Store) Datasets(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.records))
	for name := range s.records {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
