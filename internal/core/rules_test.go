package core

import (
	"context"
	"math"
	"testing"

	"simago/pkg/domain"
)

type sliceColumn []float64

func (c sliceColumn) Len() int { return len(c) }

func (c sliceColumn) Value(id int) (float64, bool) {
	if math.IsNaN(c[id]) {
		return 0, false
	}
	return c[id], true
}

type mapView map[string]sliceColumn

func (v mapView) PopSize() int {
	for _, c := range v {
		return len(c)
	}
	return 0
}

func (v mapView) Column(name string) (domain.ColumnView, bool) {
	c, ok := v[name]
	return c, ok
}

func TestOptionDomainRule(t *testing.T) {
	view := mapView{"sex": {0, 1, 2, math.NaN(), 1}}
	change := domain.Change{Property: "sex", DataType: domain.DataCategorical, Options: []int{0, 1}}
	res, err := NewOptionDomainRule().Evaluate(context.Background(), view, []domain.Change{change})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 1 || !res.HasBlocking() {
		t.Fatalf("expected one blocking violation, got %+v", res)
	}
	if ids := res.Violations[0].PersonIDs; len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("expected person 2 reported, got %v", ids)
	}

	change.Options = []int{0, 1, 2}
	if res, _ := NewOptionDomainRule().Evaluate(context.Background(), view, []domain.Change{change}); len(res.Violations) != 0 {
		t.Fatalf("expected no violations, got %+v", res)
	}
	cont := domain.Change{Property: "sex", DataType: domain.DataContinuous}
	if res, _ := NewOptionDomainRule().Evaluate(context.Background(), view, []domain.Change{cont}); len(res.Violations) != 0 {
		t.Fatalf("continuous changes must be ignored")
	}
}

func TestFiniteValueRule(t *testing.T) {
	col := make(sliceColumn, 40)
	for i := range col {
		col[i] = math.Inf(1)
	}
	col[0] = 12.5
	view := mapView{"income": col}
	change := domain.Change{Property: "income", DataType: domain.DataContinuous}
	res, err := NewFiniteValueRule().Evaluate(context.Background(), view, []domain.Change{change})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 1 || res.Violations[0].Rule != "finite_value" {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := len(res.Violations[0].PersonIDs); got != maxReportedIDs {
		t.Fatalf("expected %d reported ids, got %d", maxReportedIDs, got)
	}
	missing := domain.Change{Property: "height", DataType: domain.DataContinuous}
	if res, _ := NewFiniteValueRule().Evaluate(context.Background(), view, []domain.Change{missing}); len(res.Violations) != 0 {
		t.Fatalf("expected missing column to be skipped")
	}
}

func TestDefaultRulesEngineRegistersBuiltins(t *testing.T) {
	rules := NewDefaultRulesEngine().Rules()
	if len(rules) != 2 || rules[0].Name() != "option_domain" || rules[1].Name() != "finite_value" {
		t.Fatalf("unexpected rules %v", rules)
	}
}
