// Package sampling partitions the population into condition groups and
// draws property values into the population table.
package sampling

import (
	"errors"
	"fmt"

	"simago/internal/probability"
	"simago/internal/table"
	"simago/pkg/domain"
)

// Catalog looks up registered models by property name.
type Catalog interface {
	Model(name string) (*probability.Model, bool)
}

// CatalogFunc adapts a function to Catalog.
type CatalogFunc func(name string) (*probability.Model, bool)

// Model implements Catalog.
func (f CatalogFunc) Model(name string) (*probability.Model, bool) { return f(name) }

// Resolver evaluates condition groups against a population table.
type Resolver struct {
	catalog Catalog
}

// NewResolver constructs a resolver over the catalog.
func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve returns the ascending person IDs in one condition group of a
// property. All clauses of the group are ANDed. An unconditioned property
// has the whole table as its only group, 0.
func (r *Resolver) Resolve(tbl *table.Table, property string, group int) ([]int, error) {
	m, ok := r.catalog.Model(property)
	if !ok {
		return nil, domain.ConfigError{Property: property, Reason: "property not registered"}
	}
	return r.resolveModel(tbl, m, group)
}

func (r *Resolver) resolveModel(tbl *table.Table, m *probability.Model, group int) ([]int, error) {
	if !m.Conditional() {
		if group != 0 {
			return nil, domain.ConfigError{Property: m.Name(), Reason: fmt.Sprintf("unconditioned property has no condition group %d", group)}
		}
		return tbl.Filter(nil)
	}
	rows := m.Conditions(group)
	if len(rows) == 0 {
		return nil, domain.ConfigError{Property: m.Name(), Reason: fmt.Sprintf("no conditions defined for condition group %d", group)}
	}
	preds := make([]table.Predicate, len(rows))
	for i, row := range rows {
		preds[i] = table.Predicate{Property: row.ReferencedProperty, Relation: row.Relation, Operand: row.Operand}
	}
	ids, err := tbl.Filter(preds)
	var fe *table.FilterError
	switch {
	case err == nil:
		return ids, nil
	case errors.As(err, &fe) && errors.Is(err, table.ErrNoColumn):
		return nil, domain.DependencyError{Property: m.Name(), Referenced: fe.Property, Reason: "referenced property has no column in the population"}
	case errors.As(err, &fe):
		return nil, domain.DependencyError{Property: m.Name(), Referenced: fe.Property, Reason: fmt.Sprintf("referenced property is unset for person %d", fe.PersonID)}
	default:
		return nil, err
	}
}
