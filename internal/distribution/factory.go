// Package distribution maps continuous distribution families to drawable
// gonum distributions. Families form a closed set resolved when a property
// is configured; there is no dynamic lookup at sampling time.
package distribution

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Drawable produces independent samples from a parameterised distribution.
type Drawable interface {
	Rand() float64
}

// Family identifies a supported continuous distribution.
type Family string

const (
	Normal      Family = "normal"
	LogNormal   Family = "lognormal"
	Uniform     Family = "uniform"
	Exponential Family = "exponential"
	Gamma       Family = "gamma"
	Beta        Family = "beta"
	Weibull     Family = "weibull"
	Triangle    Family = "triangle"
)

// Factory builds a Drawable from one condition group's parameter vector.
// The source is shared with the caller so draws advance a single stream.
type Factory interface {
	Family() Family
	// Arity is the exact number of parameters Build expects.
	Arity() int
	Build(params []float64, src rand.Source) (Drawable, error)
}

type factory struct {
	family Family
	arity  int
	params string
	build  func(p []float64, src rand.Source) (Drawable, error)
}

func (f factory) Family() Family { return f.family }
func (f factory) Arity() int     { return f.arity }

func (f factory) Build(params []float64, src rand.Source) (Drawable, error) {
	if len(params) != f.arity {
		return nil, fmt.Errorf("%s expects %d parameters (%s), got %d", f.family, f.arity, f.params, len(params))
	}
	for i, p := range params {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("%s parameter %d is not finite", f.family, i)
		}
	}
	return f.build(params, src)
}

func positive(family Family, names []string, params []float64) error {
	for i, p := range params {
		if p <= 0 {
			return fmt.Errorf("%s %s must be positive, got %g", family, names[i], p)
		}
	}
	return nil
}

var registry = map[Family]factory{
	Normal: {family: Normal, arity: 2, params: "mu, sigma", build: func(p []float64, src rand.Source) (Drawable, error) {
		if err := positive(Normal, []string{"sigma"}, p[1:]); err != nil {
			return nil, err
		}
		return distuv.Normal{Mu: p[0], Sigma: p[1], Src: src}, nil
	}},
	// Parameterised as (scale, sigma) so that scale = exp(mu).
	LogNormal: {family: LogNormal, arity: 2, params: "scale, sigma", build: func(p []float64, src rand.Source) (Drawable, error) {
		if err := positive(LogNormal, []string{"scale", "sigma"}, p); err != nil {
			return nil, err
		}
		return distuv.LogNormal{Mu: math.Log(p[0]), Sigma: p[1], Src: src}, nil
	}},
	Uniform: {family: Uniform, arity: 2, params: "min, max", build: func(p []float64, src rand.Source) (Drawable, error) {
		if p[0] >= p[1] {
			return nil, fmt.Errorf("uniform min %g must be below max %g", p[0], p[1])
		}
		return distuv.Uniform{Min: p[0], Max: p[1], Src: src}, nil
	}},
	Exponential: {family: Exponential, arity: 1, params: "rate", build: func(p []float64, src rand.Source) (Drawable, error) {
		if err := positive(Exponential, []string{"rate"}, p); err != nil {
			return nil, err
		}
		return distuv.Exponential{Rate: p[0], Src: src}, nil
	}},
	Gamma: {family: Gamma, arity: 2, params: "alpha, beta", build: func(p []float64, src rand.Source) (Drawable, error) {
		if err := positive(Gamma, []string{"alpha", "beta"}, p); err != nil {
			return nil, err
		}
		return distuv.Gamma{Alpha: p[0], Beta: p[1], Src: src}, nil
	}},
	Beta: {family: Beta, arity: 2, params: "alpha, beta", build: func(p []float64, src rand.Source) (Drawable, error) {
		if err := positive(Beta, []string{"alpha", "beta"}, p); err != nil {
			return nil, err
		}
		return distuv.Beta{Alpha: p[0], Beta: p[1], Src: src}, nil
	}},
	Weibull: {family: Weibull, arity: 2, params: "k, lambda", build: func(p []float64, src rand.Source) (Drawable, error) {
		if err := positive(Weibull, []string{"k", "lambda"}, p); err != nil {
			return nil, err
		}
		return distuv.Weibull{K: p[0], Lambda: p[1], Src: src}, nil
	}},
	Triangle: {family: Triangle, arity: 3, params: "min, max, mode", build: func(p []float64, src rand.Source) (Drawable, error) {
		lo, hi, mode := p[0], p[1], p[2]
		if lo >= hi || mode < lo || mode > hi {
			return nil, fmt.Errorf("triangle requires min < max and min <= mode <= max, got %v", p)
		}
		return distuv.NewTriangle(lo, hi, mode, src), nil
	}},
}

// aliases accept the scipy.stats names used by existing property files.
var aliases = map[string]Family{
	"norm":         Normal,
	"gaussian":     Normal,
	"lognorm":      LogNormal,
	"pdf_lognorm":  LogNormal,
	"expon":        Exponential,
	"weibull_min":  Weibull,
	"triang":       Triangle,
	"uniform_real": Uniform,
}

// Lookup resolves a factory by family name or alias, case-insensitively.
func Lookup(name string) (Factory, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if fam, ok := aliases[key]; ok {
		key = string(fam)
	}
	f, ok := registry[Family(key)]
	if !ok {
		return nil, fmt.Errorf("unknown distribution %q (supported: %s)", name, strings.Join(familyNames(), ", "))
	}
	return f, nil
}

// Families lists the supported families in name order.
func Families() []Family {
	names := familyNames()
	out := make([]Family, len(names))
	for i, n := range names {
		out[i] = Family(n)
	}
	return out
}

func familyNames() []string {
	names := make([]string, 0, len(registry))
	for fam := range registry {
		names = append(names, string(fam))
	}
	sort.Strings(names)
	return names
}
