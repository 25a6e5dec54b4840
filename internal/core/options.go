package core

import (
	"context"
	"io"
	"time"

	"simago/pkg/domain"
)

// Logger is the structured logging surface used by the population store.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies timestamps for export tables and operation timings.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now returns the function's time in UTC, or the wall clock when nil.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f().UTC()
}

// MetricsRecorder observes the outcome and latency of store operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts a span around a store operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the operation's error, if any.
type TraceSpan interface {
	End(err error)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// Option configures a Population.
type Option func(*Population)

// WithLogger sets the logger. A nil logger keeps the no-op default.
func WithLogger(logger Logger) Option {
	return func(p *Population) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock sets the clock used for timestamps and durations.
func WithClock(clock Clock) Option {
	return func(p *Population) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithMetricsRecorder records update and export outcomes.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(p *Population) {
		if rec != nil {
			p.metrics = rec
		}
	}
}

// WithTracer wraps update and export in spans.
func WithTracer(tracer Tracer) Option {
	return func(p *Population) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// WithRulesEngine replaces the default rules evaluated before every column
// commit. Pass domain.NewRulesEngine() to disable validation.
func WithRulesEngine(engine *domain.RulesEngine) Option {
	return func(p *Population) {
		if engine != nil {
			p.rules = engine
		}
	}
}

// WithPreviewWriter directs the export preview. Defaults to io.Discard.
func WithPreviewWriter(w io.Writer) Option {
	return func(p *Population) {
		if w != nil {
			p.preview = w
		}
	}
}

// WithSinks sets the sinks a writing export persists to.
func WithSinks(sinks ...domain.Sink) Option {
	return func(p *Population) {
		for _, s := range sinks {
			if s != nil {
				p.sinks = append(p.sinks, s)
			}
		}
	}
}
