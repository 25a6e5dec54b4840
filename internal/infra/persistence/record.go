// Package persistence holds the row encoding shared by the database export
// sinks. Each dataset is one row: the run metadata plus the labelled cells
// as JSON, replaced wholesale on every write.
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"simago/pkg/domain"
)

// DefaultDataset names the row written when the caller gives no destination.
const DefaultDataset = "population"

// Record is the storage shape of one exported dataset.
type Record struct {
	Dataset   string
	RunID     string
	PopSize   int
	Seed      sql.NullInt64
	Columns   []byte
	Rows      []byte
	CreatedAt string
}

// DatasetName trims destination and falls back to DefaultDataset.
func DatasetName(destination string) string {
	if d := strings.TrimSpace(destination); d != "" {
		return d
	}
	return DefaultDataset
}

// Encode converts an export table into its storage row.
func Encode(dataset string, table domain.ExportTable) (Record, error) {
	cols, err := json.Marshal(table.Columns)
	if err != nil {
		return Record{}, fmt.Errorf("encode columns: %w", err)
	}
	rows, err := json.Marshal(table.Rows)
	if err != nil {
		return Record{}, fmt.Errorf("encode rows: %w", err)
	}
	rec := Record{
		Dataset:   dataset,
		RunID:     table.RunID,
		PopSize:   table.PopSize,
		Columns:   cols,
		Rows:      rows,
		CreatedAt: table.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if table.Seed != nil {
		rec.Seed = sql.NullInt64{Int64: *table.Seed, Valid: true}
	}
	return rec, nil
}

// Decode reverses Encode.
func (r Record) Decode() (domain.ExportTable, error) {
	table := domain.ExportTable{RunID: r.RunID, PopSize: r.PopSize}
	if err := json.Unmarshal(r.Columns, &table.Columns); err != nil {
		return domain.ExportTable{}, fmt.Errorf("decode %s columns: %w", r.Dataset, err)
	}
	if err := json.Unmarshal(r.Rows, &table.Rows); err != nil {
		return domain.ExportTable{}, fmt.Errorf("decode %s rows: %w", r.Dataset, err)
	}
	if r.Seed.Valid {
		s := r.Seed.Int64
		table.Seed = &s
	}
	if r.CreatedAt != "" {
		ts, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
		if err != nil {
			return domain.ExportTable{}, fmt.Errorf("decode %s created_at: %w", r.Dataset, err)
		}
		table.CreatedAt = ts
	}
	return table, nil
}

// Artifact describes a stored record.
func (r Record) Artifact(sink, location string) domain.Artifact {
	return domain.Artifact{
		Sink:        sink,
		Location:    location,
		RunID:       r.RunID,
		SizeBytes:   int64(len(r.Rows)),
		ContentType: "application/json",
		Metadata:    map[string]string{"dataset": r.Dataset},
	}
}
