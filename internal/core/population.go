// Package core hosts the population store: the table of synthetic
// individuals, the registered probability models, and the single random
// stream every draw advances.
package core

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"

	"simago/internal/ordering"
	"simago/internal/probability"
	"simago/internal/sampling"
	"simago/internal/table"
	"simago/pkg/domain"
)

// All selects every registered property in Update. No property may carry
// this name.
const All = probability.ReservedName

// Population owns a population table, its registered models, and the random
// stream used to fill it. Updates are exclusive; queries and exports may run
// concurrently with each other.
type Population struct {
	mu      sync.RWMutex
	popsize int
	seed    *int64
	rng     *rand.Rand
	table   *table.Table
	models  map[string]*probability.Model
	names   []string
	engine  *sampling.Engine

	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
	rules   *domain.RulesEngine
	preview io.Writer
	sinks   []domain.Sink
}

// New constructs an empty population of popsize individuals. A nil seed
// draws the stream seed from the runtime source.
func New(popsize int, seed *int64, opts ...Option) (*Population, error) {
	tbl, err := table.New(popsize)
	if err != nil {
		return nil, err
	}
	p := &Population{
		popsize: popsize,
		table:   tbl,
		models:  make(map[string]*probability.Model),
		logger:  noopLogger{},
		clock:   ClockFunc(nil),
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		rules:   NewDefaultRulesEngine(),
		preview: io.Discard,
	}
	if seed != nil {
		s := *seed
		p.seed = &s
		p.rng = rand.New(rand.NewPCG(uint64(s), uint64(s)))
	} else {
		p.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	for _, opt := range opts {
		opt(p)
	}
	p.engine = sampling.NewEngine(sampling.CatalogFunc(p.lookup), p.rules)
	return p, nil
}

// lookup serves the sampling engine. Callers hold p.mu.
func (p *Population) lookup(name string) (*probability.Model, bool) {
	m, ok := p.models[name]
	return m, ok
}

// PopSize returns the number of individuals.
func (p *Population) PopSize() int { return p.popsize }

// Seed returns a copy of the seed, or nil when unseeded.
func (p *Population) Seed() *int64 {
	if p.seed == nil {
		return nil
	}
	s := *p.seed
	return &s
}

// Properties lists registered property names in registration order.
func (p *Population) Properties() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.names...)
}

// Model returns a registered model.
func (p *Population) Model(name string) (*probability.Model, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lookup(name)
}

// Table returns a snapshot of the population table.
func (p *Population) Table() *table.Table {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.table.Clone()
}

// AddProperty registers a model. Registering a name twice keeps the first
// model and logs a warning.
func (p *Population) AddProperty(model *probability.Model) error {
	if model == nil {
		return domain.ConfigError{Reason: "added property is not a probability model"}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.models[model.Name()]; exists {
		p.logger.Warn("property already registered", "property", model.Name())
		return nil
	}
	p.models[model.Name()] = model
	p.names = append(p.names, model.Name())
	p.logger.Debug("property registered", "property", model.Name(), "data_type", string(model.DataType()))
	return nil
}

// RemoveProperty unregisters a model. Its sampled column stays in the table.
func (p *Population) RemoveProperty(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.models[name]; !exists {
		p.logger.Warn("property not registered", "property", name)
		return
	}
	delete(p.models, name)
	for i, n := range p.names {
		if n == name {
			p.names = append(p.names[:i], p.names[i+1:]...)
			break
		}
	}
}

// Update draws fresh values for one property, or for every registered
// property in dependency order when name is All. The pass runs against a
// copy of the table that replaces the live one only if every property
// succeeded.
func (p *Population) Update(ctx context.Context, name string) (domain.Result, error) {
	var res domain.Result
	ctx = context.WithValue(ctx, propertyKey{}, name)
	err := p.observe(ctx, "update", func(ctx context.Context) error {
		p.mu.Lock()
		defer p.mu.Unlock()

		models, err := p.updatePlan(name)
		if err != nil {
			return err
		}
		working := p.table.Clone()
		for _, m := range models {
			r, err := p.engine.DrawAndMerge(ctx, m, working, p.rng)
			res.Merge(r)
			if err != nil {
				p.logger.Error("sampling failed", "property", m.Name(), "error", err)
				return fmt.Errorf("update %s: %w", m.Name(), err)
			}
			p.logger.Debug("property sampled", "property", m.Name(), "groups", len(m.Groups()))
		}
		p.table = working
		for _, m := range models {
			if sum, ok := working.Summarize(m.Name()); ok {
				p.logger.Debug("column summary", "property", sum.Property, "set", sum.Set,
					"min", sum.Min, "max", sum.Max, "distinct", sum.Distinct)
			}
		}
		for _, v := range res.Violations {
			p.logger.Warn("rule violation", "rule", v.Rule, "property", v.Property, "message", v.Message)
		}
		p.logger.Info("population updated", "properties", len(models), "popsize", p.popsize)
		return nil
	})
	return res, err
}

func (p *Population) updatePlan(name string) ([]*probability.Model, error) {
	if name != All {
		m, ok := p.models[name]
		if !ok {
			return nil, domain.ConfigError{Property: name, Reason: "property not registered"}
		}
		return []*probability.Model{m}, nil
	}
	if len(p.names) == 0 {
		p.logger.Warn("no properties registered")
		return nil, nil
	}
	models := make([]*probability.Model, 0, len(p.names))
	for _, n := range p.names {
		models = append(models, p.models[n])
	}
	for _, m := range models {
		for _, ref := range m.References() {
			if _, ok := p.models[ref]; !ok {
				return nil, domain.DependencyError{Property: m.Name(), Referenced: ref, Reason: "conditions reference an undefined property"}
			}
		}
	}
	return ordering.Order(models)
}

// GetConditionalPopulation returns the ascending person IDs that satisfy
// one condition group of a registered property.
func (p *Population) GetConditionalPopulation(name string, group int) ([]int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.engine.Resolver().Resolve(p.table, name, group)
}

// Equal reports whether two populations share size and seed. Two unseeded
// populations are equal.
func (p *Population) Equal(other *Population) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.popsize != other.popsize {
		return false
	}
	switch {
	case p.seed == nil && other.seed == nil:
		return true
	case p.seed == nil || other.seed == nil:
		return false
	default:
		return *p.seed == *other.seed
	}
}

func (p *Population) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	start := p.clock.Now()
	ctx, span := p.tracer.Start(ctx, op)
	err := fn(ctx)
	span.End(err)
	p.metrics.Observe(ctx, op, err == nil, p.clock.Now().Sub(start))
	return err
}

type propertyKey struct{}

// PropertyFromContext returns the property an update was requested for, or
// "" outside an update. Tracers use it to label spans.
func PropertyFromContext(ctx context.Context) string {
	name, _ := ctx.Value(propertyKey{}).(string)
	return name
}
