// Package probability holds the per-property probability models: the
// normalized discrete option distributions or continuous distribution
// parameters for every condition group, plus the condition clauses that
// select each group.
package probability

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"simago/internal/distribution"
	"simago/pkg/domain"
)

// ReservedName selects every property at once and cannot name a property.
const ReservedName = "all"

// Model is the immutable probability model of one property. It holds no
// reference to any population; sampling state lives in the caller's RNG.
type Model struct {
	name     string
	dataType domain.DataType

	options []int
	labels  map[int]string
	probabs map[int]GroupProbabilities

	factory distribution.Factory
	params  map[int][]float64

	groups     []int
	conditions map[int][]domain.ConditionRow
	references []string
}

// New builds a model from a validated descriptor.
func New(desc domain.Descriptor) (*Model, error) {
	name := strings.TrimSpace(desc.PropertyName)
	if name == "" {
		return nil, domain.ConfigError{Reason: "no property defined"}
	}
	if name == ReservedName {
		return nil, domain.ConfigError{Property: name, Reason: "property name is reserved"}
	}
	if !desc.DataType.Valid() {
		return nil, domain.ConfigError{Property: name, Reason: fmt.Sprintf("invalid data type %q", desc.DataType)}
	}
	m := &Model{name: name, dataType: desc.DataType}
	if err := m.readConditions(desc.Conditions); err != nil {
		return nil, err
	}
	var err error
	if desc.DataType.Discrete() {
		err = m.readDiscrete(desc.DataSource)
	} else {
		err = m.readContinuous(desc.PDF)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// MustNew is New for statically known descriptors; it panics on error.
func MustNew(desc domain.Descriptor) *Model {
	m, err := New(desc)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Model) readConditions(rows []domain.ConditionRow) error {
	if len(rows) == 0 {
		m.groups = []int{0}
		return nil
	}
	m.conditions = make(map[int][]domain.ConditionRow)
	seenRef := make(map[string]struct{})
	for i, row := range rows {
		if row.ConditionGroupIndex < 0 {
			return domain.ConfigError{Property: m.name, Reason: fmt.Sprintf("condition row %d has negative group index", i)}
		}
		ref := strings.TrimSpace(row.ReferencedProperty)
		if ref == "" {
			return domain.ConfigError{Property: m.name, Reason: fmt.Sprintf("condition row %d references no property", i)}
		}
		if !row.Relation.Valid() {
			return domain.ConfigError{Property: m.name, Reason: fmt.Sprintf("condition row %d has invalid relation %q", i, row.Relation)}
		}
		if math.IsNaN(row.Operand) {
			return domain.ConfigError{Property: m.name, Reason: fmt.Sprintf("condition row %d has NaN operand", i)}
		}
		row.ReferencedProperty = ref
		m.conditions[row.ConditionGroupIndex] = append(m.conditions[row.ConditionGroupIndex], row)
		if _, ok := seenRef[ref]; !ok {
			seenRef[ref] = struct{}{}
			m.references = append(m.references, ref)
		}
	}
	for g := range m.conditions {
		m.groups = append(m.groups, g)
	}
	sort.Ints(m.groups)
	return nil
}

func (m *Model) readDiscrete(rows []domain.DataSourceRow) error {
	if len(rows) == 0 {
		return domain.ConfigError{Property: m.name, Reason: "data source contains no rows"}
	}
	type key struct{ option, group int }
	weights := make(map[key]float64, len(rows))
	m.labels = make(map[int]string)
	var deduped []domain.DataSourceRow
	for i, row := range rows {
		if row.Option < 0 {
			return domain.ConfigError{Property: m.name, Reason: fmt.Sprintf("data row %d has negative option %d", i, row.Option)}
		}
		if row.ConditionGroupIndex < 0 {
			return domain.ConfigError{Property: m.name, Reason: fmt.Sprintf("data row %d has negative group index", i)}
		}
		if row.Label != "" {
			if prev, ok := m.labels[row.Option]; ok && prev != row.Label {
				return domain.ConfigError{Property: m.name, Reason: fmt.Sprintf("option %d has conflicting labels %q and %q", row.Option, prev, row.Label)}
			}
			m.labels[row.Option] = row.Label
		}
		k := key{row.Option, row.ConditionGroupIndex}
		if prev, ok := weights[k]; ok {
			if prev != row.Value {
				return domain.ConfigError{Property: m.name, Reason: fmt.Sprintf("option %d in group %d has conflicting weights", row.Option, row.ConditionGroupIndex)}
			}
			continue
		}
		weights[k] = row.Value
		deduped = append(deduped, row)
	}

	probabs, err := Normalize(m.name, deduped)
	if err != nil {
		return err
	}
	dataGroups := make([]int, 0, len(probabs))
	optionSet := make(map[int]struct{})
	for g, gp := range probabs {
		dataGroups = append(dataGroups, g)
		for _, o := range gp.Options {
			optionSet[o] = struct{}{}
		}
	}
	sort.Ints(dataGroups)
	if err := m.alignGroups(dataGroups, "probabilities"); err != nil {
		return err
	}
	for o := range optionSet {
		m.options = append(m.options, o)
	}
	sort.Ints(m.options)
	m.probabs = probabs
	return nil
}

func (m *Model) readContinuous(ref *domain.PDFReference) error {
	if ref == nil || strings.TrimSpace(ref.FactoryName) == "" {
		return domain.ConfigError{Property: m.name, Reason: "no pdf defined"}
	}
	factory, err := distribution.Lookup(ref.FactoryName)
	if err != nil {
		return domain.ConfigError{Property: m.name, Reason: "invalid pdf", Err: err}
	}
	if len(ref.Parameters) != len(m.groups) {
		return domain.ConfigError{Property: m.name, Reason: fmt.Sprintf("%d pdf parameter sets for %d condition groups", len(ref.Parameters), len(m.groups))}
	}
	// Parameter vectors are positional: group i uses Parameters[i].
	paramGroups := make([]int, len(ref.Parameters))
	for i := range ref.Parameters {
		paramGroups[i] = i
	}
	if err := m.alignGroups(paramGroups, "pdf parameters"); err != nil {
		return err
	}
	probe := rand.NewPCG(0, 0)
	m.params = make(map[int][]float64, len(ref.Parameters))
	for g, p := range ref.Parameters {
		if _, err := factory.Build(p, probe); err != nil {
			return domain.ConfigError{Property: m.name, Reason: fmt.Sprintf("pdf parameters for group %d", g), Err: err}
		}
		m.params[g] = append([]float64(nil), p...)
	}
	m.factory = factory
	return nil
}

// alignGroups enforces the one-to-one correspondence between condition
// groups declared by the condition table and by the value data.
func (m *Model) alignGroups(valueGroups []int, what string) error {
	if len(valueGroups) != len(m.groups) {
		return domain.ConfigError{Property: m.name, Reason: fmt.Sprintf("condition groups %v in %s do not match condition groups %v", valueGroups, what, m.groups)}
	}
	for i := range valueGroups {
		if valueGroups[i] != m.groups[i] {
			return domain.ConfigError{Property: m.name, Reason: fmt.Sprintf("condition groups %v in %s do not match condition groups %v", valueGroups, what, m.groups)}
		}
	}
	return nil
}

// Name returns the property name.
func (m *Model) Name() string { return m.name }

// DataType returns the declared data type.
func (m *Model) DataType() domain.DataType { return m.dataType }

// Conditional reports whether the property depends on other properties.
func (m *Model) Conditional() bool { return len(m.conditions) > 0 }

// Groups returns the condition group indices in ascending order.
func (m *Model) Groups() []int { return append([]int(nil), m.groups...) }

// Conditions returns the ANDed clauses selecting a condition group.
func (m *Model) Conditions(group int) []domain.ConditionRow {
	return append([]domain.ConditionRow(nil), m.conditions[group]...)
}

// References lists referenced properties in first-appearance order.
func (m *Model) References() []string { return append([]string(nil), m.references...) }

// Options returns the sorted option codes of a discrete model.
func (m *Model) Options() []int { return append([]int(nil), m.options...) }

// Label returns the display label for an option code.
func (m *Model) Label(option int) (string, bool) {
	l, ok := m.labels[option]
	return l, ok
}

// Probabilities returns the normalized distribution of a discrete group.
func (m *Model) Probabilities(group int) (GroupProbabilities, bool) {
	gp, ok := m.probabs[group]
	if !ok {
		return GroupProbabilities{}, false
	}
	return GroupProbabilities{
		Options:       append([]int(nil), gp.Options...),
		Probabilities: append([]float64(nil), gp.Probabilities...),
	}, true
}

// Parameters returns the continuous parameter vector of a group.
func (m *Model) Parameters(group int) ([]float64, bool) {
	p, ok := m.params[group]
	return append([]float64(nil), p...), ok
}

// Family returns the distribution family of a continuous model.
func (m *Model) Family() distribution.Family {
	if m.factory == nil {
		return ""
	}
	return m.factory.Family()
}

func (m *Model) String() string {
	return fmt.Sprintf("%s(%s, groups=%v)", m.name, m.dataType, m.groups)
}
