package core

import (
	"context"
	"fmt"

	"simago/internal/config"
	"simago/internal/ordering"
	"simago/internal/probability"
)

// GenerateConfig describes a population built from a folder of YAML
// property descriptors.
type GenerateConfig struct {
	PopSize    int
	Seed       *int64
	YAMLFolder string
	Options    []Option
}

// Generate loads every descriptor under cfg.YAMLFolder, builds and
// cross-checks the models, and registers them in dependency order on a new
// population. No values are drawn; call Update(ctx, All) for that.
func Generate(ctx context.Context, cfg GenerateConfig) (*Population, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	descs, err := config.LoadDescriptors(cfg.YAMLFolder)
	if err != nil {
		return nil, err
	}
	models := make([]*probability.Model, 0, len(descs))
	for _, d := range descs {
		m, err := probability.New(d)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", d.PropertyName, err)
		}
		models = append(models, m)
	}
	if err := probability.CheckCatalog(models); err != nil {
		return nil, err
	}
	ordered, err := ordering.Order(models)
	if err != nil {
		return nil, err
	}
	p, err := New(cfg.PopSize, cfg.Seed, cfg.Options...)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ordered))
	for _, m := range ordered {
		if err := p.AddProperty(m); err != nil {
			return nil, err
		}
		names = append(names, m.Name())
	}
	if cfg.Seed == nil {
		p.logger.Info("population generated", "popsize", cfg.PopSize, "seed", "none", "properties", names)
	} else {
		p.logger.Info("population generated", "popsize", cfg.PopSize, "seed", *cfg.Seed, "properties", names)
	}
	return p, nil
}
