package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"simago/internal/probability/probabilitytest"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (c *captureLogger) log(level, msg string, args []any) {
	c.mu.Lock()
	c.entries = append(c.entries, logEntry{level: level, msg: msg, args: args})
	c.mu.Unlock()
}

func (c *captureLogger) Debug(msg string, args ...any) { c.log("debug", msg, args) }
func (c *captureLogger) Info(msg string, args ...any)  { c.log("info", msg, args) }
func (c *captureLogger) Warn(msg string, args ...any)  { c.log("warn", msg, args) }
func (c *captureLogger) Error(msg string, args ...any) { c.log("error", msg, args) }

func (c *captureLogger) has(level, msg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	mu    sync.Mutex
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.mu.Lock()
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
	c.mu.Unlock()
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op       string
	property string
	err      error
}

type captureTracer struct {
	mu      sync.Mutex
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.mu.Lock()
	c.started = append(c.started, op)
	c.mu.Unlock()
	return ctx, &captureSpan{tracer: c, op: op, property: PropertyFromContext(ctx)}
}

func (c *captureTracer) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer   *captureTracer
	op       string
	property string
}

func (s *captureSpan) End(err error) {
	s.tracer.mu.Lock()
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, property: s.property, err: err})
	s.tracer.mu.Unlock()
}

func int64Ptr(v int64) *int64 { return &v }

// newCatalogPopulation registers the sex, age and income models.
func newCatalogPopulation(t *testing.T, popsize int, seed *int64, opts ...Option) *Population {
	t.Helper()
	p, err := New(popsize, seed, opts...)
	if err != nil {
		t.Fatalf("new population: %v", err)
	}
	for _, m := range probabilitytest.Catalog() {
		if err := p.AddProperty(m); err != nil {
			t.Fatalf("add %s: %v", m.Name(), err)
		}
	}
	return p
}

func column(t *testing.T, p *Population, name string) []float64 {
	t.Helper()
	values, ok := p.Table().Values(name)
	if !ok {
		t.Fatalf("column %s missing", name)
	}
	return values
}

func describe(values []float64) string { return fmt.Sprint(values) }
