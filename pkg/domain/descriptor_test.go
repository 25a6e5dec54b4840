package domain

import (
	"errors"
	"testing"
)

func TestRelationApply(t *testing.T) {
	cases := []struct {
		rel     Relation
		value   float64
		operand float64
		want    bool
	}{
		{RelationEq, 1, 1, true},
		{RelationEq, 1, 0, false},
		{RelationNeq, 1, 0, true},
		{RelationNeq, 1, 1, false},
		{RelationLe, 1, 2, true},
		{RelationLe, 2, 2, false},
		{RelationLeq, 2, 2, true},
		{RelationGr, 3, 2, true},
		{RelationGr, 2, 2, false},
		{RelationGeq, 2, 2, true},
		{Relation("approx"), 2, 2, false},
	}
	for _, tc := range cases {
		if got := tc.rel.Apply(tc.value, tc.operand); got != tc.want {
			t.Errorf("%s.Apply(%v, %v) = %v, want %v", tc.rel, tc.value, tc.operand, got, tc.want)
		}
	}
}

func TestParseRelation(t *testing.T) {
	r, err := ParseRelation(" GEQ ")
	if err != nil || r != RelationGeq {
		t.Fatalf("expected geq, got %q %v", r, err)
	}
	if _, err := ParseRelation("~="); err == nil {
		t.Fatalf("expected error for unknown relation")
	}
}

func TestDataType(t *testing.T) {
	if !DataCategorical.Discrete() || !DataOrdinal.Discrete() || DataContinuous.Discrete() {
		t.Fatalf("unexpected discrete classification")
	}
	if DataType("integer").Valid() {
		t.Fatalf("integer should not be a valid data type")
	}
}

func TestConditionRowString(t *testing.T) {
	row := ConditionRow{ReferencedProperty: "age", Relation: RelationLeq, Operand: 17}
	if got := row.String(); got != "age <= 17" {
		t.Fatalf("unexpected string %q", got)
	}
}

func TestErrorTaxonomyMatching(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{ConfigError{Property: "sex", Reason: "bad"}, ErrConfig},
		{DataError{Property: "sex", Group: 1, Reason: "zero sum"}, ErrData},
		{OrderingError{Reason: "cycle", Cycle: []string{"a", "b", "a"}}, ErrOrdering},
		{DependencyError{Property: "age", Referenced: "sex"}, ErrDependency},
		{CoverageError{Property: "age", Missing: []int{3}}, ErrCoverage},
		{SizeError{Size: 0}, ErrSize},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.sentinel) {
			t.Errorf("%T should match %v", tc.err, tc.sentinel)
		}
		if tc.err.Error() == "" {
			t.Errorf("%T has empty message", tc.err)
		}
	}
	wrapped := ConfigError{Property: "age", Reason: "read data", Err: errors.New("boom")}
	if errors.Unwrap(wrapped) == nil {
		t.Fatalf("expected wrapped cause")
	}
	var ce CoverageError
	if !errors.As(error(CoverageError{Property: "x", Overlapping: []int{1}}), &ce) || ce.Property != "x" {
		t.Fatalf("errors.As failed for CoverageError")
	}
}

func TestResultHasBlocking(t *testing.T) {
	var res Result
	res.Merge(Result{Violations: []Violation{{Rule: "r", Severity: SeverityWarn}}})
	if res.HasBlocking() {
		t.Fatalf("warn must not block")
	}
	res.Merge(Result{Violations: []Violation{{Rule: "r2", Severity: SeverityBlock, Message: "bad"}}})
	if !res.HasBlocking() {
		t.Fatalf("expected blocking")
	}
	if msg := (RuleViolationError{Result: res}).Error(); msg != "update blocked by rule r2: bad" {
		t.Fatalf("unexpected message %q", msg)
	}
}
