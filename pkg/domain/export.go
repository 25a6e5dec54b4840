package domain

import (
	"context"
	"time"
)

// NoData is the label written for unset values and unlabelled option codes.
const NoData = "nodata"

// ExportTable is a labelled, row-per-individual rendering of a population.
// Columns[0] is always "person_id".
type ExportTable struct {
	RunID     string
	PopSize   int
	Seed      *int64
	Columns   []string
	Rows      [][]string
	CreatedAt time.Time
}

// Artifact describes where a sink persisted an export.
type Artifact struct {
	Sink        string            `json:"sink"`
	Location    string            `json:"location"`
	RunID       string            `json:"run_id"`
	SizeBytes   int64             `json:"size_bytes,omitempty"`
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Sink persists export tables. Destination is sink specific: a blob key,
// a table name, or empty for the sink default.
type Sink interface {
	Name() string
	Write(ctx context.Context, destination string, table ExportTable) (Artifact, error)
}
