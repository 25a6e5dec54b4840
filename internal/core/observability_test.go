package core

import (
	"bytes"
	"context"
	"encoding/json"
	"expvar"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := noopLogger{}
	logger.Debug("msg", "k", 1)
	logger.Info("msg")
	logger.Warn("msg")
	logger.Error("msg")
}

func TestClockFuncNowNilFallsBackToUTCTime(t *testing.T) {
	got := ClockFunc(nil).Now()
	if got.IsZero() {
		t.Fatal("expected non-zero time from nil ClockFunc")
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %s", got.Location())
	}
}

func TestClockFuncNowDelegatesToFunction(t *testing.T) {
	expected := time.Date(2024, 7, 4, 12, 34, 56, 0, time.FixedZone("offset", -5*3600))
	fn := ClockFunc(func() time.Time { return expected })
	got := fn.Now()
	if !got.Equal(expected.UTC()) || got.Location() != time.UTC {
		t.Fatalf("expected %s, got %s", expected.UTC(), got)
	}
}

func TestNilOptionsKeepDefaults(t *testing.T) {
	p, err := New(2, nil, WithLogger(nil), WithClock(nil), WithMetricsRecorder(nil), WithTracer(nil), WithRulesEngine(nil), WithPreviewWriter(nil))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := p.logger.(noopLogger); !ok {
		t.Fatalf("expected noop logger")
	}
	if p.rules == nil || p.preview == nil || p.metrics == nil || p.tracer == nil || p.clock == nil {
		t.Fatalf("expected defaults to survive nil options")
	}
}

func TestCaptureTracerSeesProperty(t *testing.T) {
	tracer := &captureTracer{}
	metrics := &captureMetricsRecorder{}
	p := newCatalogPopulation(t, 4, int64Ptr(1), WithTracer(tracer), WithMetricsRecorder(metrics))
	if _, err := p.Update(context.Background(), "sex"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := p.Update(context.Background(), "weight"); err == nil {
		t.Fatalf("expected error for unknown property")
	}
	if len(tracer.ended) != 2 || tracer.ended[0].property != "sex" || tracer.ended[1].property != "weight" {
		t.Fatalf("unexpected spans %+v", tracer.ended)
	}
	if !tracer.has("update", true) || !tracer.has("update", false) || !metrics.has("update", false) {
		t.Fatalf("expected success and failure observations")
	}
}

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if !strings.HasPrefix(rec.Name(), "simago_population_metrics_") {
		t.Fatalf("unexpected expvar name %s", rec.Name())
	}
	p := newCatalogPopulation(t, 4, int64Ptr(1), WithMetricsRecorder(rec))
	ctx := context.Background()
	_, _ = p.Update(ctx, All)
	_, _ = p.Update(ctx, "missing")
	rec.Observe(ctx, "", true, time.Second)

	snap := rec.Snapshot()
	update := snap.Operations["update"]
	if update.Success != 1 || update.Error != 1 || update.LastStatus != "error" {
		t.Fatalf("unexpected update aggregate %+v", update)
	}
	if _, ok := snap.Operations[""]; ok {
		t.Fatalf("empty operation must be ignored")
	}
	published := expvar.Get(rec.Name())
	if published == nil {
		t.Fatalf("expected expvar publication")
	}
	var decoded ExpvarMetricsSnapshot
	if err := json.Unmarshal([]byte(published.String()), &decoded); err != nil {
		t.Fatalf("decode expvar: %v", err)
	}
	if decoded.Operations["update"].Success != 1 {
		t.Fatalf("unexpected published snapshot %+v", decoded)
	}

	path := filepath.Join(t.TempDir(), "metrics.json")
	if err := rec.WriteFile(path); err != nil {
		t.Fatalf("write file: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var onDisk ExpvarMetricsSnapshot
	if err := json.Unmarshal(raw, &onDisk); err != nil || onDisk.Operations["update"].Error != 1 {
		t.Fatalf("unexpected file content %s: %v", raw, err)
	}
}

func TestJSONTracerWritesLines(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	p := newCatalogPopulation(t, 4, int64Ptr(1), WithTracer(tracer))
	ctx := context.Background()
	if _, err := p.Update(ctx, All); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := p.Export(ctx, "", true); err == nil {
		t.Fatalf("expected ErrNoSink")
	}
	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Operation != "update" || entries[0].Property != All || entries[0].Status != "success" {
		t.Fatalf("unexpected update entry %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error == "" {
		t.Fatalf("unexpected export entry %+v", entries[1])
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 json lines, got %q", buf.String())
	}
	var decoded JSONTraceEntry
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil || decoded.Operation != "update" {
		t.Fatalf("decode line: %v %+v", err, decoded)
	}
	if len(NewJSONTracer(nil).Entries()) != 0 {
		t.Fatalf("expected empty tracer")
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	rec := NewPrometheusMetricsRecorder()
	p := newCatalogPopulation(t, 4, int64Ptr(1), WithMetricsRecorder(rec))
	ctx := context.Background()
	_, _ = p.Update(ctx, All)
	_, _ = p.Update(ctx, All)
	_, _ = p.Update(ctx, "missing")
	rec.Observe(ctx, "", true, time.Second)

	if got := testutil.ToFloat64(rec.total.WithLabelValues("update", "success")); got != 2 {
		t.Fatalf("expected 2 successful updates, got %v", got)
	}
	if got := testutil.ToFloat64(rec.total.WithLabelValues("update", "error")); got != 1 {
		t.Fatalf("expected 1 failed update, got %v", got)
	}
	n, err := testutil.GatherAndCount(rec.Registry(), "simago_operation_duration_seconds")
	if err != nil || n != 1 {
		t.Fatalf("expected one histogram series, got %d (%v)", n, err)
	}

	path := filepath.Join(t.TempDir(), "simago.prom")
	if err := rec.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(body), `simago_operations_total{operation="update",status="success"} 2`) {
		t.Fatalf("unexpected textfile:\n%s", body)
	}
}

func TestOTelTracerRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	p := newCatalogPopulation(t, 4, int64Ptr(1), WithTracer(NewOTelTracer(provider)))
	ctx := context.Background()
	if _, err := p.Update(ctx, "sex"); err != nil {
		t.Fatalf("update: %v", err)
	}
	_, updateErr := p.Update(ctx, "missing")

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name() != "population.update" || spans[0].Status().Code != codes.Ok {
		t.Fatalf("unexpected first span %s %v", spans[0].Name(), spans[0].Status())
	}
	var sawProperty bool
	for _, attr := range spans[0].Attributes() {
		if string(attr.Key) == "simago.property" && attr.Value.AsString() == "sex" {
			sawProperty = true
		}
	}
	if !sawProperty {
		t.Fatalf("expected property attribute, got %v", spans[0].Attributes())
	}
	if spans[1].Status().Code != codes.Error || len(spans[1].Events()) == 0 {
		t.Fatalf("expected error status and recorded error event")
	}
	if updateErr == nil || spans[1].Status().Description != updateErr.Error() {
		t.Fatalf("expected status description %q, got %q", updateErr, spans[1].Status().Description)
	}

	if NewOTelTracer(nil) == nil {
		t.Fatalf("expected tracer from global provider")
	}
}
