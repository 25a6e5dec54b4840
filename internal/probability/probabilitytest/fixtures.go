// Package probabilitytest provides canonical property descriptors shared by
// tests across the sampling packages.
package probabilitytest

import (
	"simago/internal/probability"
	"simago/pkg/domain"
)

// SexDescriptor is an unconditioned categorical property with two options.
func SexDescriptor() domain.Descriptor {
	return domain.Descriptor{
		PropertyName: "sex",
		DataType:     domain.DataCategorical,
		DataSource: []domain.DataSourceRow{
			{Option: 0, Value: 3805370719, Label: "male", ConditionGroupIndex: 0},
			{Option: 1, Value: 3742018211, Label: "female", ConditionGroupIndex: 0},
		},
	}
}

// AgeDescriptor is an ordinal property conditioned on sex: group 0 is
// sex == 0 and group 1 is sex == 1.
func AgeDescriptor() domain.Descriptor {
	rows := []domain.DataSourceRow{}
	labels := []string{"0-17", "18-39", "40-64", "65+"}
	male := []float64{20, 30, 32, 18}
	female := []float64{19, 29, 31, 21}
	for i, l := range labels {
		rows = append(rows,
			domain.DataSourceRow{Option: i, Value: male[i], Label: l, ConditionGroupIndex: 0},
			domain.DataSourceRow{Option: i, Value: female[i], Label: l, ConditionGroupIndex: 1},
		)
	}
	return domain.Descriptor{
		PropertyName: "age",
		DataType:     domain.DataOrdinal,
		DataSource:   rows,
		Conditions: []domain.ConditionRow{
			{ConditionGroupIndex: 0, ReferencedProperty: "sex", Operand: 0, Relation: domain.RelationEq},
			{ConditionGroupIndex: 1, ReferencedProperty: "sex", Operand: 1, Relation: domain.RelationEq},
		},
	}
}

// IncomeDescriptor is a continuous log-normal property conditioned on sex
// and age: adults split by sex, minors in their own group.
func IncomeDescriptor() domain.Descriptor {
	return domain.Descriptor{
		PropertyName: "income",
		DataType:     domain.DataContinuous,
		PDF: &domain.PDFReference{
			FactoryName: "lognormal",
			Parameters:  [][]float64{{2000, 0.4}, {36000, 0.5}, {32000, 0.5}},
		},
		Conditions: []domain.ConditionRow{
			{ConditionGroupIndex: 0, ReferencedProperty: "age", Operand: 0, Relation: domain.RelationEq},
			{ConditionGroupIndex: 1, ReferencedProperty: "age", Operand: 1, Relation: domain.RelationGeq},
			{ConditionGroupIndex: 1, ReferencedProperty: "sex", Operand: 0, Relation: domain.RelationEq},
			{ConditionGroupIndex: 2, ReferencedProperty: "age", Operand: 1, Relation: domain.RelationGeq},
			{ConditionGroupIndex: 2, ReferencedProperty: "sex", Operand: 1, Relation: domain.RelationEq},
		},
	}
}

// Catalog builds the sex, age and income models in that order.
func Catalog() []*probability.Model {
	return []*probability.Model{
		probability.MustNew(SexDescriptor()),
		probability.MustNew(AgeDescriptor()),
		probability.MustNew(IncomeDescriptor()),
	}
}
