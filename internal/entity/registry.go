package entity

import (
	"fmt"
	"sync"
)

// Definition describes one watched entity type: the table backing it and the
// column holding its identifier.
type Definition struct {
	EntityType string
	Table      string
	IDColumn   string
}

// Registry maps entity type names to their storage definitions. Registration
// happens once at startup; lookups happen on every intercepted write and every
// undo, so reads take the cheap path.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a watched entity type. The id column defaults to "id".
func (r *Registry) Register(def Definition) error {
	if def.EntityType == "" || def.Table == "" {
		return fmt.Errorf("entity registry: entity type and table are required")
	}
	if def.IDColumn == "" {
		def.IDColumn = "id"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.EntityType]; exists {
		return fmt.Errorf("entity registry: %q already registered", def.EntityType)
	}
	r.defs[def.EntityType] = def
	return nil
}

// Lookup resolves an entity type to its definition.
func (r *Registry) Lookup(entityType string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[entityType]
	if !ok {
		return Definition{}, fmt.Errorf("entity registry: unknown entity type %q", entityType)
	}
	return def, nil
}

// Types returns the registered entity type names.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.defs))
	for t := range r.defs {
		out = append(out, t)
	}
	return out
}
