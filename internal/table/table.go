// Package table implements the population table: a fixed number of persons
// with dense float64 attribute columns keyed by property name. Person IDs are
// the row indices 0..N-1 and never change.
package table

import (
	"errors"
	"fmt"
	"math"

	"simago/pkg/domain"
)

var (
	// ErrNoColumn reports a filter on a property that has no column.
	ErrNoColumn = errors.New("no such column")
	// ErrUnset reports a filter that touched a person without a value.
	ErrUnset = errors.New("value not set")
)

// FilterError names the column a filter failed on. It unwraps to ErrNoColumn
// or ErrUnset.
type FilterError struct {
	Property string
	PersonID int
	Err      error
}

func (e *FilterError) Error() string {
	if errors.Is(e.Err, ErrUnset) {
		return fmt.Sprintf("%s: %v for person %d", e.Property, e.Err, e.PersonID)
	}
	return fmt.Sprintf("%s: %v", e.Property, e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }

// Column is one attribute column. A position is either set or unset; unset
// positions read as NaN through Values.
type Column struct {
	values []float64
	set    bitmap
	count  int
}

func newColumn(size int) *Column {
	values := make([]float64, size)
	for i := range values {
		values[i] = math.NaN()
	}
	return &Column{values: values, set: newBitmap(size)}
}

// Len returns the number of persons the column spans.
func (c *Column) Len() int { return len(c.values) }

// Value returns the value for a person and whether it is set.
func (c *Column) Value(personID int) (float64, bool) {
	if personID < 0 || personID >= len(c.values) || !c.set.get(personID) {
		return math.NaN(), false
	}
	return c.values[personID], true
}

func (c *Column) clone() *Column {
	return &Column{
		values: append([]float64(nil), c.values...),
		set:    c.set.clone(),
		count:  c.count,
	}
}

// Table is the population. It is not safe for concurrent mutation; the
// population store serialises access.
type Table struct {
	size    int
	order   []string
	columns map[string]*Column
}

// New creates an empty table for size persons.
func New(size int) (*Table, error) {
	if size < 1 {
		return nil, domain.SizeError{Size: size}
	}
	return &Table{size: size, columns: make(map[string]*Column)}, nil
}

// PopSize returns the number of persons.
func (t *Table) PopSize() int { return t.size }

// Properties lists column names in the order they were first committed.
func (t *Table) Properties() []string { return append([]string(nil), t.order...) }

// Has reports whether a column exists for the property.
func (t *Table) Has(property string) bool {
	_, ok := t.columns[property]
	return ok
}

// Column returns a read-only view of a committed column.
func (t *Table) Column(property string) (domain.ColumnView, bool) {
	c, ok := t.columns[property]
	if !ok {
		return nil, false
	}
	return c, true
}

// Values copies a column out. Unset positions hold NaN.
func (t *Table) Values(property string) ([]float64, bool) {
	c, ok := t.columns[property]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), c.values...), true
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	cp := &Table{size: t.size, order: append([]string(nil), t.order...), columns: make(map[string]*Column, len(t.columns))}
	for name, c := range t.columns {
		cp.columns[name] = c.clone()
	}
	return cp
}

// Stage starts a fresh, entirely unset column for property. Nothing in the
// table changes until Commit.
func (t *Table) Stage(property string) *Staged {
	return &Staged{table: t, property: property, col: newColumn(t.size)}
}

// Commit replaces (or adds) the staged property column.
func (t *Table) Commit(s *Staged) error {
	if s == nil || s.table != t {
		return fmt.Errorf("staged column does not belong to this table")
	}
	if _, ok := t.columns[s.property]; !ok {
		t.order = append(t.order, s.property)
	}
	t.columns[s.property] = s.col
	s.table = nil
	return nil
}

// Predicate is one clause of a filter: column relation operand.
type Predicate struct {
	Property string
	Relation domain.Relation
	Operand  float64
}

// Filter returns the ascending person IDs satisfying every predicate. An
// empty predicate list selects everyone. A referenced column that is missing,
// or unset for a person still in the candidate set, yields a *FilterError.
func (t *Table) Filter(preds []Predicate) ([]int, error) {
	ids := make([]int, t.size)
	for i := range ids {
		ids[i] = i
	}
	for _, p := range preds {
		c, ok := t.columns[p.Property]
		if !ok {
			return nil, &FilterError{Property: p.Property, PersonID: -1, Err: ErrNoColumn}
		}
		kept := ids[:0]
		for _, id := range ids {
			v, set := c.Value(id)
			if !set {
				return nil, &FilterError{Property: p.Property, PersonID: id, Err: ErrUnset}
			}
			if p.Relation.Apply(v, p.Operand) {
				kept = append(kept, id)
			}
		}
		ids = kept
	}
	return ids, nil
}

// Staged is a column being filled by one sampling pass.
type Staged struct {
	table    *Table
	property string
	col      *Column
}

// Scatter writes values[i] to person ids[i].
func (s *Staged) Scatter(ids []int, values []float64) error {
	if len(ids) != len(values) {
		return fmt.Errorf("scatter %s: %d ids for %d values", s.property, len(ids), len(values))
	}
	for i, id := range ids {
		if id < 0 || id >= len(s.col.values) {
			return fmt.Errorf("scatter %s: person %d out of range", s.property, id)
		}
		if !s.col.set.get(id) {
			s.col.set.put(id)
			s.col.count++
		}
		s.col.values[id] = values[i]
	}
	return nil
}

// View returns the table as it would look after Commit.
func (s *Staged) View() domain.RuleView { return stagedView{s: s} }

type stagedView struct{ s *Staged }

func (v stagedView) PopSize() int { return v.s.col.Len() }

func (v stagedView) Column(property string) (domain.ColumnView, bool) {
	if property == v.s.property {
		return v.s.col, true
	}
	if v.s.table == nil {
		return nil, false
	}
	return v.s.table.Column(property)
}

// Summary describes one column for previews and logs.
type Summary struct {
	Property string
	Set      int
	Min, Max float64
	Distinct int
}

// Summarize describes one committed column.
func (t *Table) Summarize(property string) (Summary, bool) {
	c, ok := t.columns[property]
	if !ok {
		return Summary{}, false
	}
	s := Summary{Property: property, Set: c.count, Min: math.Inf(1), Max: math.Inf(-1)}
	distinct := make(map[float64]struct{})
	for i, v := range c.values {
		if !c.set.get(i) {
			continue
		}
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		distinct[v] = struct{}{}
	}
	s.Distinct = len(distinct)
	return s, true
}
