package core

import (
	"context"
	"fmt"
	"math"

	"simago/pkg/domain"
)

// maxReportedIDs caps the person IDs attached to one violation.
const maxReportedIDs = 16

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewOptionDomainRule())
	engine.Register(NewFiniteValueRule())
	return engine
}

// NewOptionDomainRule returns the blocking rule requiring every discrete
// value to be one of the property's declared options.
func NewOptionDomainRule() domain.Rule {
	return optionDomainRule{}
}

type optionDomainRule struct{}

func (optionDomainRule) Name() string { return "option_domain" }

func (r optionDomainRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if !change.DataType.Discrete() {
			continue
		}
		col, ok := view.Column(change.Property)
		if !ok {
			continue
		}
		allowed := make(map[float64]struct{}, len(change.Options))
		for _, o := range change.Options {
			allowed[float64(o)] = struct{}{}
		}
		ids := scanColumn(col, func(v float64) bool {
			_, ok := allowed[v]
			return !ok
		})
		if len(ids) > 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:      r.Name(),
				Severity:  domain.SeverityBlock,
				Message:   fmt.Sprintf("%s has values outside its %d declared options", change.Property, len(change.Options)),
				Property:  change.Property,
				PersonIDs: ids,
			})
		}
	}
	return res, nil
}

// NewFiniteValueRule returns the blocking rule rejecting NaN or infinite
// continuous draws.
func NewFiniteValueRule() domain.Rule {
	return finiteValueRule{}
}

type finiteValueRule struct{}

func (finiteValueRule) Name() string { return "finite_value" }

func (r finiteValueRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.DataType != domain.DataContinuous {
			continue
		}
		col, ok := view.Column(change.Property)
		if !ok {
			continue
		}
		ids := scanColumn(col, func(v float64) bool {
			return math.IsNaN(v) || math.IsInf(v, 0)
		})
		if len(ids) > 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:      r.Name(),
				Severity:  domain.SeverityBlock,
				Message:   fmt.Sprintf("%s drew non-finite values", change.Property),
				Property:  change.Property,
				PersonIDs: ids,
			})
		}
	}
	return res, nil
}

// scanColumn returns up to maxReportedIDs set rows for which bad is true.
func scanColumn(col domain.ColumnView, bad func(float64) bool) []int {
	var ids []int
	for id := 0; id < col.Len(); id++ {
		v, ok := col.Value(id)
		if !ok || !bad(v) {
			continue
		}
		ids = append(ids, id)
		if len(ids) == maxReportedIDs {
			break
		}
	}
	return ids
}
