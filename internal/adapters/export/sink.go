// Package export renders population export tables into files and stores
// them in a blob store.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"simago/internal/blob"
	"simago/pkg/domain"
)

// Format is an export file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %s", s)
	}
}

// BlobSink writes export tables into a blob store, replacing any object at
// the destination key.
type BlobSink struct {
	store  blob.Store
	format Format
}

// NewBlobSink constructs a sink. An empty format means CSV.
func NewBlobSink(store blob.Store, format Format) (*BlobSink, error) {
	if store == nil {
		return nil, fmt.Errorf("blob store required")
	}
	f, err := ParseFormat(string(format))
	if err != nil {
		return nil, err
	}
	return &BlobSink{store: store, format: f}, nil
}

// Name implements domain.Sink.
func (s *BlobSink) Name() string { return string(s.store.Driver()) + "_" + string(s.format) }

// Write implements domain.Sink. An empty destination stores the table under
// populations/<run id>.<format>. On a filesystem store an absolute or
// parent-relative destination is written at that path.
func (s *BlobSink) Write(ctx context.Context, destination string, table domain.ExportTable) (domain.Artifact, error) {
	payload, contentType, err := Materialize(s.format, table)
	if err != nil {
		return domain.Artifact{}, err
	}
	store, key, err := s.target(destination, table.RunID)
	if err != nil {
		return domain.Artifact{}, err
	}
	meta := map[string]string{
		"run_id":  table.RunID,
		"popsize": strconv.Itoa(table.PopSize),
		"rows":    strconv.Itoa(len(table.Rows)),
	}
	if table.Seed != nil {
		meta["seed"] = strconv.FormatInt(*table.Seed, 10)
	}
	info, err := store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{ContentType: contentType, Metadata: meta})
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("store %s: %w", key, err)
	}
	return domain.Artifact{
		Sink:        s.Name(),
		Location:    info.URL,
		RunID:       table.RunID,
		SizeBytes:   info.Size,
		ContentType: contentType,
		Metadata:    meta,
	}, nil
}

func (s *BlobSink) target(destination, runID string) (blob.Store, string, error) {
	key := strings.TrimSpace(destination)
	if key == "" {
		return s.store, path.Join("populations", runID+"."+string(s.format)), nil
	}
	if s.store.Driver() != blob.DriverFilesystem || !outsideRoot(key) {
		return s.store, key, nil
	}
	dir := filepath.Dir(key)
	if rooted, ok := s.store.(interface{ Root() string }); ok && !filepath.IsAbs(key) {
		dir = filepath.Join(rooted.Root(), dir)
	}
	store, err := blob.NewFilesystem(dir)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", dir, err)
	}
	return store, filepath.Base(key), nil
}

func outsideRoot(key string) bool {
	if filepath.IsAbs(key) {
		return true
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	return clean == ".." || strings.HasPrefix(clean, "../")
}

// Materialize encodes a table. CSV carries the header row then one record
// per person; JSON is an array of column-keyed objects.
func Materialize(format Format, table domain.ExportTable) ([]byte, string, error) {
	switch format {
	case FormatCSV, "":
		buf := &bytes.Buffer{}
		writer := csv.NewWriter(buf)
		if err := writer.Write(table.Columns); err != nil {
			return nil, "", err
		}
		if err := writer.WriteAll(table.Rows); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	case FormatJSON:
		records := make([]map[string]string, len(table.Rows))
		for i, row := range table.Rows {
			rec := make(map[string]string, len(table.Columns))
			for j, col := range table.Columns {
				if j < len(row) {
					rec[col] = row[j]
				}
			}
			records[i] = rec
		}
		payload, err := json.Marshal(records)
		if err != nil {
			return nil, "", fmt.Errorf("marshal json: %w", err)
		}
		return payload, "application/json", nil
	default:
		return nil, "", fmt.Errorf("unsupported export format %s", format)
	}
}
