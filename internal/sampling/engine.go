package sampling

import (
	"context"
	"math/rand/v2"

	"simago/internal/probability"
	"simago/internal/table"
	"simago/pkg/domain"
)

// Engine draws one property at a time into a population table.
type Engine struct {
	resolver *Resolver
	rules    *domain.RulesEngine
}

// NewEngine constructs an engine. rules may be nil.
func NewEngine(catalog Catalog, rules *domain.RulesEngine) *Engine {
	return &Engine{resolver: NewResolver(catalog), rules: rules}
}

// Resolver returns the engine's condition resolver.
func (e *Engine) Resolver() *Resolver { return e.resolver }

// DrawAndMerge samples model for every person and replaces its column.
// Values are drawn into a staged column, one condition group at a time in
// ascending group order, and committed only once every person was visited
// by exactly one group and no blocking rule fired. On error the table is
// unchanged.
func (e *Engine) DrawAndMerge(ctx context.Context, model *probability.Model, tbl *table.Table, rng *rand.Rand) (domain.Result, error) {
	staged := tbl.Stage(model.Name())
	visits := make([]uint16, tbl.PopSize())

	for _, group := range model.Groups() {
		if err := ctx.Err(); err != nil {
			return domain.Result{}, err
		}
		ids, err := e.resolver.resolveModel(tbl, model, group)
		if err != nil {
			return domain.Result{}, err
		}
		values, err := model.Draw(len(ids), group, rng)
		if err != nil {
			return domain.Result{}, err
		}
		if err := staged.Scatter(ids, values); err != nil {
			return domain.Result{}, err
		}
		for _, id := range ids {
			if visits[id] < ^uint16(0) {
				visits[id]++
			}
		}
	}

	if err := checkCoverage(model.Name(), visits); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if e.rules != nil {
		change := domain.Change{
			Property: model.Name(),
			DataType: model.DataType(),
			Options:  model.Options(),
			Groups:   model.Groups(),
		}
		res, err := e.rules.Evaluate(ctx, staged.View(), []domain.Change{change})
		if err != nil {
			return domain.Result{}, err
		}
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
		result = res
	}

	if err := tbl.Commit(staged); err != nil {
		return domain.Result{}, err
	}
	return result, nil
}

func checkCoverage(property string, visits []uint16) error {
	var missing, overlapping []int
	for id, n := range visits {
		switch {
		case n == 0:
			missing = append(missing, id)
		case n > 1:
			overlapping = append(overlapping, id)
		}
	}
	if len(missing) == 0 && len(overlapping) == 0 {
		return nil
	}
	return domain.CoverageError{Property: property, Missing: missing, Overlapping: overlapping}
}
