// Package ordering schedules probability models so that every property is
// sampled after the properties its conditions reference.
package ordering

import (
	"fmt"

	"simago/internal/probability"
	"simago/pkg/domain"
)

// Order returns the models in sampling order. Unconditioned models come
// first in input order; each conditioned model is placed as soon as all of
// its references are placed, earliest input position first. The result is a
// pure function of the input slice.
func Order(models []*probability.Model) ([]*probability.Model, error) {
	index := make(map[string]int, len(models))
	for i, m := range models {
		if m == nil {
			return nil, domain.OrderingError{Reason: fmt.Sprintf("nil model at position %d", i)}
		}
		if _, dup := index[m.Name()]; dup {
			return nil, domain.OrderingError{Reason: fmt.Sprintf("property %s declared more than once", m.Name())}
		}
		index[m.Name()] = i
	}

	deps := make([][]int, len(models))
	hasRoot := false
	for i, m := range models {
		if !m.Conditional() {
			hasRoot = true
			continue
		}
		for _, ref := range m.References() {
			j, ok := index[ref]
			if !ok {
				return nil, domain.OrderingError{Reason: fmt.Sprintf("%s references %s, which is not in the catalog", m.Name(), ref)}
			}
			deps[i] = append(deps[i], j)
		}
	}
	if !hasRoot {
		return nil, domain.OrderingError{Reason: "no unconditioned property to seed the order"}
	}

	placed := make([]bool, len(models))
	out := make([]*probability.Model, 0, len(models))
	for i, m := range models {
		if !m.Conditional() {
			placed[i] = true
			out = append(out, m)
		}
	}
	for len(out) < len(models) {
		next := -1
		for i := range models {
			if !placed[i] && ready(deps[i], placed) {
				next = i
				break
			}
		}
		if next < 0 {
			return nil, domain.OrderingError{Reason: "dependency cycle", Cycle: findCycle(models, deps, placed)}
		}
		placed[next] = true
		out = append(out, models[next])
	}
	return out, nil
}

func ready(deps []int, placed []bool) bool {
	for _, d := range deps {
		if !placed[d] {
			return false
		}
	}
	return true
}

// findCycle walks the unplaced subgraph, where every node has at least one
// unplaced dependency, until a node repeats.
func findCycle(models []*probability.Model, deps [][]int, placed []bool) []string {
	start := -1
	for i := range models {
		if !placed[i] {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}
	seenAt := make(map[int]int)
	var path []int
	cur := start
	for {
		if pos, ok := seenAt[cur]; ok {
			cycle := make([]string, 0, len(path)-pos+1)
			for _, n := range path[pos:] {
				cycle = append(cycle, models[n].Name())
			}
			return append(cycle, models[cur].Name())
		}
		seenAt[cur] = len(path)
		path = append(path, cur)
		nxt := -1
		for _, d := range deps[cur] {
			if !placed[d] {
				nxt = d
				break
			}
		}
		if nxt < 0 {
			return nil
		}
		cur = nxt
	}
}
