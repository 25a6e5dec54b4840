package memory

import (
	"context"
	"testing"
	"time"

	"simago/pkg/domain"
)

func TestStoreWriteLoadAndOverwrite(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	table := domain.ExportTable{
		RunID:     "r1",
		PopSize:   1,
		Columns:   []string{"person_id", "sex"},
		Rows:      [][]string{{"0", "female"}},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	art, err := store.Write(ctx, "", table)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if art.Location != "memory://population" || art.Sink != "memory" {
		t.Fatalf("unexpected artifact %+v", art)
	}

	// mutating the caller's table must not leak into the store
	table.Rows[0][1] = "male"
	got, err := store.Load(ctx, "population")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Rows[0][1] != "female" {
		t.Fatalf("expected stored copy, got %v", got.Rows)
	}

	table.RunID = "r2"
	if _, err := store.Write(ctx, "population", table); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if _, err := store.Write(ctx, "alt", table); err != nil {
		t.Fatalf("write alt: %v", err)
	}
	got, _ = store.Load(ctx, "population")
	if got.RunID != "r2" {
		t.Fatalf("expected overwrite, got %s", got.RunID)
	}
	names, _ := store.Datasets(ctx)
	if len(names) != 2 || names[0] != "alt" {
		t.Fatalf("unexpected datasets %v", names)
	}
	if _, err := store.Load(ctx, "missing"); err == nil {
		t.Fatalf("expected missing dataset error")
	}
}

func TestStoreWriteHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewStore().Write(ctx, "", domain.ExportTable{}); err == nil {
		t.Fatalf("expected context error")
	}
}
