package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"simago/pkg/domain"
)

// previewRows is how many rows the preview shows at each end of the table.
const previewRows = 5

// ErrNoSink is returned by a writing export when no sink is configured.
var ErrNoSink = errors.New("no export sink configured")

// ExportResult describes one export.
type ExportResult struct {
	RunID     string
	Table     domain.ExportTable
	Preview   string
	Artifacts []domain.Artifact
}

// Export renders the population with option codes replaced by their labels
// and writes a preview to the preview writer. Only when write is true is
// the table handed to every configured sink, concurrently.
func (p *Population) Export(ctx context.Context, destination string, write bool) (ExportResult, error) {
	var out ExportResult
	err := p.observe(ctx, "export", func(ctx context.Context) error {
		tbl := p.ExportTable()
		out.RunID = tbl.RunID
		out.Table = tbl
		out.Preview = RenderPreview(tbl, previewRows)
		if _, err := io.WriteString(p.preview, out.Preview); err != nil {
			return fmt.Errorf("write preview: %w", err)
		}
		if !write {
			p.logger.Info("population not written", "run_id", tbl.RunID)
			return nil
		}
		artifacts, err := p.writeSinks(ctx, destination, tbl)
		if err != nil {
			return err
		}
		out.Artifacts = artifacts
		for _, a := range artifacts {
			p.logger.Info("population written", "sink", a.Sink, "location", a.Location, "run_id", a.RunID)
		}
		return nil
	})
	return out, err
}

func (p *Population) writeSinks(ctx context.Context, destination string, tbl domain.ExportTable) ([]domain.Artifact, error) {
	if len(p.sinks) == 0 {
		return nil, ErrNoSink
	}
	artifacts := make([]domain.Artifact, len(p.sinks))
	g, gctx := errgroup.WithContext(ctx)
	for i, sink := range p.sinks {
		g.Go(func() error {
			a, err := sink.Write(gctx, destination, tbl)
			if err != nil {
				return fmt.Errorf("sink %s: %w", sink.Name(), err)
			}
			artifacts[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// ExportTable renders the current population, one row per person. Columns
// follow the order properties were first sampled, then registered properties
// not sampled yet, which hold domain.NoData. Discrete columns of registered
// properties carry labels; unset cells and unlabelled codes become
// domain.NoData.
func (p *Population) ExportTable() domain.ExportTable {
	p.mu.RLock()
	defer p.mu.RUnlock()

	props := p.table.Properties()
	sampled := len(props)
	for _, name := range p.names {
		if !p.table.Has(name) {
			props = append(props, name)
		}
	}
	cols := make([]string, 0, len(props)+1)
	cols = append(cols, "person_id")
	cols = append(cols, props...)

	rows := make([][]string, p.popsize)
	for id := range rows {
		row := make([]string, len(cols))
		row[0] = strconv.Itoa(id)
		rows[id] = row
	}
	for j, name := range props {
		if j >= sampled {
			for id := range rows {
				rows[id][j+1] = domain.NoData
			}
			continue
		}
		col, _ := p.table.Column(name)
		m, registered := p.models[name]
		discrete := registered && m.DataType().Discrete()
		for id := range rows {
			v, ok := col.Value(id)
			switch {
			case !ok:
				rows[id][j+1] = domain.NoData
			case discrete:
				label, found := m.Label(int(v))
				if !found || label == "" {
					label = domain.NoData
				}
				rows[id][j+1] = label
			default:
				rows[id][j+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
	}
	return domain.ExportTable{
		RunID:     uuid.NewString(),
		PopSize:   p.popsize,
		Seed:      p.Seed(),
		Columns:   cols,
		Rows:      rows,
		CreatedAt: p.clock.Now(),
	}
}

// RenderPreview lays out the first and last n rows of tbl as aligned text,
// eliding the middle of larger tables.
func RenderPreview(tbl domain.ExportTable, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generated population (%d individuals):\n", tbl.PopSize)
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tbl.Columns, "\t"))
	writeRows := func(rows [][]string) {
		for _, r := range rows {
			fmt.Fprintln(tw, strings.Join(r, "\t"))
		}
	}
	if n <= 0 || len(tbl.Rows) <= 2*n {
		writeRows(tbl.Rows)
	} else {
		writeRows(tbl.Rows[:n])
		fmt.Fprintln(tw, strings.TrimSuffix(strings.Repeat("...\t", len(tbl.Columns)), "\t"))
		writeRows(tbl.Rows[len(tbl.Rows)-n:])
	}
	_ = tw.Flush()
	return b.String()
}
