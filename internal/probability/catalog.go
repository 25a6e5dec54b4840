package probability

import (
	"fmt"

	"simago/pkg/domain"
)

// CheckCatalog validates a full set of models before any sampling: names
// are unique, at least one model is unconditioned, and every condition
// references a property defined in the catalog.
func CheckCatalog(models []*Model) error {
	names := make(map[string]struct{}, len(models))
	hasRoot := false
	for _, m := range models {
		if m == nil {
			return domain.ConfigError{Reason: "nil model in catalog"}
		}
		if _, dup := names[m.name]; dup {
			return domain.ConfigError{Property: m.name, Reason: "multiple definitions for the same property"}
		}
		names[m.name] = struct{}{}
		if !m.Conditional() {
			hasRoot = true
		}
	}
	for _, m := range models {
		for _, ref := range m.references {
			if _, ok := names[ref]; !ok {
				return domain.DependencyError{Property: m.name, Referenced: ref, Reason: "conditions reference an undefined property"}
			}
		}
	}
	if !hasRoot {
		return domain.ConfigError{Reason: fmt.Sprintf("at least one of the %d properties should be without conditions", len(models))}
	}
	return nil
}
