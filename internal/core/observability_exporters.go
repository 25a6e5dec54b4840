package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq atomic.Uint64

// ExpvarOperation aggregates one store operation.
type ExpvarOperation struct {
	Success     int64   `json:"success"`
	Error       int64   `json:"error"`
	DurationMS  float64 `json:"duration_ms_total"`
	LastStatus  string  `json:"last_status"`
	LastSeconds float64 `json:"last_seconds"`
}

// ExpvarMetricsSnapshot is the published shape of an ExpvarMetricsRecorder.
type ExpvarMetricsSnapshot struct {
	Operations map[string]ExpvarOperation `json:"operations"`
	RecordedAt time.Time                  `json:"recorded_at"`
}

// ExpvarMetricsRecorder publishes update and export counters through expvar,
// so a process serving /debug/vars exposes them without extra wiring.
type ExpvarMetricsRecorder struct {
	name string
	mu   sync.Mutex
	ops  map[string]ExpvarOperation
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated unique name when empty. expvar panics on a reused name.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("simago_population_metrics_%d", expvarSeq.Add(1))
	}
	rec := &ExpvarMetricsRecorder{name: name, ops: make(map[string]ExpvarOperation)}
	expvar.Publish(name, expvar.Func(func() any { return rec.Snapshot() }))
	return rec
}

// Name returns the expvar key.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot copies the aggregated operations.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make(map[string]ExpvarOperation, len(r.ops))
	for name, op := range r.ops {
		ops[name] = op
	}
	return ExpvarMetricsSnapshot{Operations: ops, RecordedAt: time.Now().UTC()}
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	op := r.ops[operation]
	if success {
		op.Success++
		op.LastStatus = "success"
	} else {
		op.Error++
		op.LastStatus = "error"
	}
	op.DurationMS += float64(duration) / float64(time.Millisecond)
	op.LastSeconds = duration.Seconds()
	r.ops[operation] = op
}

// WriteFile stores the published expvar value as JSON at path.
func (r *ExpvarMetricsRecorder) WriteFile(path string) error {
	v := expvar.Get(r.name)
	if v == nil {
		return fmt.Errorf("expvar %s not published", r.name)
	}
	return os.WriteFile(path, []byte(v.String()+"\n"), 0o644)
}

// JSONTraceEntry represents a serialized trace span emitted by JSONTraceTracer.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	Property   string    `json:"property,omitempty"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTraceTracer writes spans as JSON lines and retains them for inspection.
// It is what the CLI uses for --trace-file.
type JSONTraceTracer struct {
	mu      sync.Mutex
	entries []JSONTraceEntry
	enc     *json.Encoder
}

// NewJSONTracer constructs a tracer writing to w. A nil w only retains.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	var enc *json.Encoder
	if w != nil {
		enc = json.NewEncoder(w)
	}
	return &JSONTraceTracer{
		enc: enc,
	}
}

// Entries returns a copy of all recorded spans.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]JSONTraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Start implements the Tracer interface.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	span := &jsonTraceSpan{
		tracer:    t,
		operation: operation,
		property:  PropertyFromContext(ctx),
		started:   time.Now().UTC(),
	}
	return ctx, span
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	property  string
	started   time.Time
}

func (s *jsonTraceSpan) End(err error) {
	status := "success"
	var errMsg string
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}
	ended := time.Now().UTC()
	entry := JSONTraceEntry{
		Operation:  s.operation,
		Property:   s.property,
		Status:     status,
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		Error:      errMsg,
		StartedAt:  s.started,
		EndedAt:    ended,
	}

	s.tracer.mu.Lock()
	s.tracer.entries = append(s.tracer.entries, entry)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(entry)
	}
	s.tracer.mu.Unlock()
}
