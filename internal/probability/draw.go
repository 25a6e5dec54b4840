package probability

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"simago/pkg/domain"
)

// Draw samples n independent values for a condition group. Discrete models
// yield option codes, continuous models real values. rng is the caller's
// shared stream; Draw never reseeds it.
func (m *Model) Draw(n, group int, rng *rand.Rand) ([]float64, error) {
	if n < 0 {
		return nil, fmt.Errorf("%s: negative draw count %d", m.name, n)
	}
	if rng == nil {
		return nil, fmt.Errorf("%s: nil random source", m.name)
	}
	if m.dataType.Discrete() {
		return m.drawDiscrete(n, group, rng)
	}
	return m.drawContinuous(n, group, rng)
}

func (m *Model) drawDiscrete(n, group int, rng *rand.Rand) ([]float64, error) {
	gp, ok := m.probabs[group]
	if !ok {
		return nil, domain.ConfigError{Property: m.name, Reason: fmt.Sprintf("no probabilities for condition group %d", group)}
	}
	out := make([]float64, n)
	if n == 0 {
		return out, nil
	}
	if len(gp.Options) == 1 {
		for i := range out {
			out[i] = float64(gp.Options[0])
		}
		return out, nil
	}
	cat := distuv.NewCategorical(gp.Probabilities, rng)
	for i := range out {
		out[i] = float64(gp.Options[int(cat.Rand())])
	}
	return out, nil
}

func (m *Model) drawContinuous(n, group int, rng *rand.Rand) ([]float64, error) {
	params, ok := m.params[group]
	if !ok {
		return nil, domain.ConfigError{Property: m.name, Reason: fmt.Sprintf("no pdf parameters for condition group %d", group)}
	}
	dist, err := m.factory.Build(params, rng)
	if err != nil {
		return nil, domain.ConfigError{Property: m.name, Reason: fmt.Sprintf("pdf parameters for group %d", group), Err: err}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out, nil
}
