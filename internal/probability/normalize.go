package probability

import (
	"math"
	"sort"

	"simago/pkg/domain"
)

// GroupProbabilities is the normalized option distribution of one
// condition group, ordered by option code.
type GroupProbabilities struct {
	Options       []int
	Probabilities []float64
}

// Sum returns the total probability mass of the group.
func (g GroupProbabilities) Sum() float64 {
	var s float64
	for _, p := range g.Probabilities {
		s += p
	}
	return s
}

// Normalize divides each raw weight by the weight sum of its condition
// group. Groups are normalized independently. Feeding normalized rows back
// in yields the same probabilities. A group whose weights sum to zero, or
// any negative or non-finite weight, is a DataError.
func Normalize(property string, rows []domain.DataSourceRow) (map[int]GroupProbabilities, error) {
	sums := make(map[int]float64)
	byGroup := make(map[int][]domain.DataSourceRow)
	for _, row := range rows {
		if math.IsNaN(row.Value) || math.IsInf(row.Value, 0) {
			return nil, domain.DataError{Property: property, Group: row.ConditionGroupIndex, Reason: "weight is not finite"}
		}
		if row.Value < 0 {
			return nil, domain.DataError{Property: property, Group: row.ConditionGroupIndex, Reason: "negative weight"}
		}
		sums[row.ConditionGroupIndex] += row.Value
		byGroup[row.ConditionGroupIndex] = append(byGroup[row.ConditionGroupIndex], row)
	}

	out := make(map[int]GroupProbabilities, len(byGroup))
	for group, groupRows := range byGroup {
		total := sums[group]
		if total == 0 {
			return nil, domain.DataError{Property: property, Group: group, Reason: "weights sum to zero"}
		}
		sort.SliceStable(groupRows, func(i, j int) bool { return groupRows[i].Option < groupRows[j].Option })
		gp := GroupProbabilities{
			Options:       make([]int, len(groupRows)),
			Probabilities: make([]float64, len(groupRows)),
		}
		for i, row := range groupRows {
			gp.Options[i] = row.Option
			gp.Probabilities[i] = row.Value / total
		}
		out[group] = gp
	}
	return out, nil
}
