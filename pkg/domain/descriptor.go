package domain

import (
	"fmt"
	"strings"
)

// DataType identifies the kind of probability model backing a property.
type DataType string

const (
	DataCategorical DataType = "categorical"
	DataOrdinal     DataType = "ordinal"
	DataContinuous  DataType = "continuous"
)

// Discrete reports whether the data type is sampled from an option set.
func (d DataType) Discrete() bool {
	return d == DataCategorical || d == DataOrdinal
}

// Valid reports whether d is one of the supported data types.
func (d DataType) Valid() bool {
	switch d {
	case DataCategorical, DataOrdinal, DataContinuous:
		return true
	default:
		return false
	}
}

// Descriptor is the parsed, validated configuration of a single property.
// It is the only shape the sampling engine accepts; file discovery and
// parsing live in internal/config.
type Descriptor struct {
	PropertyName string          `json:"property_name" yaml:"property_name"`
	DataType     DataType        `json:"data_type" yaml:"data_type"`
	DataSource   []DataSourceRow `json:"data_source,omitempty" yaml:"data_source,omitempty"`
	PDF          *PDFReference   `json:"pdf_reference,omitempty" yaml:"pdf_reference,omitempty"`
	Conditions   []ConditionRow  `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// Conditional reports whether the property depends on other properties.
func (d Descriptor) Conditional() bool { return len(d.Conditions) > 0 }

// DataSourceRow is one raw weight for an option within a condition group.
type DataSourceRow struct {
	Option              int     `json:"option" yaml:"option"`
	Value               float64 `json:"value" yaml:"value"`
	Label               string  `json:"label" yaml:"label"`
	ConditionGroupIndex int     `json:"condition_group_index" yaml:"condition_group_index"`
}

// PDFReference names a continuous distribution family and carries one
// parameter vector per condition group, indexed by group.
type PDFReference struct {
	FactoryName string      `json:"factory_name" yaml:"factory_name"`
	Parameters  [][]float64 `json:"parameters" yaml:"parameters"`
}

// ConditionRow is one clause of a condition group. All rows sharing a
// ConditionGroupIndex are ANDed together.
type ConditionRow struct {
	ConditionGroupIndex int      `json:"condition_group_index" yaml:"condition_group_index"`
	ReferencedProperty  string   `json:"referenced_property" yaml:"referenced_property"`
	Operand             float64  `json:"operand" yaml:"operand"`
	Relation            Relation `json:"relation" yaml:"relation"`
}

func (c ConditionRow) String() string {
	return fmt.Sprintf("%s %s %g", c.ReferencedProperty, c.Relation.Symbol(), c.Operand)
}

// Relation is the comparison applied between a sampled value and an operand.
type Relation string

const (
	RelationEq  Relation = "eq"
	RelationNeq Relation = "neq"
	RelationLe  Relation = "le"
	RelationLeq Relation = "leq"
	RelationGr  Relation = "gr"
	RelationGeq Relation = "geq"
)

// ParseRelation normalises a relation token from configuration.
func ParseRelation(s string) (Relation, error) {
	r := Relation(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown relation %q", s)
	}
	return r, nil
}

// Valid reports whether r is a supported relation.
func (r Relation) Valid() bool {
	switch r {
	case RelationEq, RelationNeq, RelationLe, RelationLeq, RelationGr, RelationGeq:
		return true
	default:
		return false
	}
}

// Apply evaluates `value <r> operand`. Unknown relations never match.
func (r Relation) Apply(value, operand float64) bool {
	switch r {
	case RelationEq:
		return value == operand
	case RelationNeq:
		return value != operand
	case RelationLe:
		return value < operand
	case RelationLeq:
		return value <= operand
	case RelationGr:
		return value > operand
	case RelationGeq:
		return value >= operand
	default:
		return false
	}
}

// Symbol returns the infix operator used in log and error messages.
func (r Relation) Symbol() string {
	switch r {
	case RelationEq:
		return "=="
	case RelationNeq:
		return "!="
	case RelationLe:
		return "<"
	case RelationLeq:
		return "<="
	case RelationGr:
		return ">"
	case RelationGeq:
		return ">="
	default:
		return string(r)
	}
}
