package workflow

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor builds a node instance from its config and construction-time params.
type Constructor func(cfg NodeConfig, params map[string]any) (Node, error)

// Registry maps node type names to constructors.
// It is populated once at process start; there is no dynamic discovery.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ctors: make(map[string]Constructor),
	}
}

// Register adds a constructor to the registry.
// If a constructor with the same name exists, it is overwritten.
func (r *Registry) Register(typeName string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[typeName] = ctor
}

// Has reports whether typeName is registered.
func (r *Registry) Has(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ctors[typeName]
	return ok
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Construct looks up typeName and builds a node.
func (r *Registry) Construct(typeName string, cfg NodeConfig, params map[string]any) (Node, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[typeName]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("node type not found: %s", typeName)
	}

	node, err := ctor(cfg, params)
	if err != nil {
		return nil, fmt.Errorf("failed to construct node %s (%s): %w", cfg.ID, typeName, err)
	}
	return node, nil
}
