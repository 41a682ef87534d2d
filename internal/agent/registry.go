package agent

import (
	"fmt"

	"github.com/foundermate/foundermate/internal/model"
)

// Registry is the in-memory catalog of all agent definitions. It is built
// once at process start from a fixed list and read-only afterwards, so
// concurrent reads need no synchronization.
type Registry struct {
	byID    map[string]Definition
	ordered []Definition
}

// NewRegistry builds a registry from the given definitions. Registering a
// duplicate id is a configuration error surfaced at startup, never silently
// ignored or overwritten.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{
		byID:    make(map[string]Definition, len(defs)),
		ordered: make([]Definition, 0, len(defs)),
	}
	for _, d := range defs {
		if err := model.ValidateAgentID(d.ID); err != nil {
			return nil, fmt.Errorf("agent: register %q: %w", d.ID, err)
		}
		if d.Execute == nil {
			return nil, fmt.Errorf("agent: register %q: execute function is required", d.ID)
		}
		if _, exists := r.byID[d.ID]; exists {
			return nil, fmt.Errorf("agent: duplicate agent id %q", d.ID)
		}
		r.byID[d.ID] = d
		r.ordered = append(r.ordered, d)
	}
	return r, nil
}

// Get returns the definition registered under id.
func (r *Registry) Get(id string) (Definition, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// All returns every definition in registration order.
func (r *Registry) All() []Definition {
	out := make([]Definition, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// AllByCategory returns the definitions in the given category, preserving
// registration order. An unknown category yields an empty slice.
func (r *Registry) AllByCategory(category string) []Definition {
	out := []Definition{}
	for _, d := range r.ordered {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	return len(r.ordered)
}
