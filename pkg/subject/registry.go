package subject

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Factory builds a transform from recorded parameters.
type Factory func(Params) (Transform, error)

// Registry maps stable transform names to factories. It is filled at process
// start, usually from init functions, and read when history is reconstructed.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry is used when no registry is given to history operations.
var DefaultRegistry = NewRegistry()

// Register makes a transform available under name.
// It panics if name is registered twice or factory is nil.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if factory == nil {
		panic("subject: Register factory is nil for " + name)
	}
	if _, dup := r.factories[name]; dup {
		panic("subject: Register called twice for transform " + name)
	}
	r.factories[name] = factory
}

// New builds the transform registered under name.
func (r *Registry) New(name string, params Params) (Transform, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransform, name)
	}
	t, err := factory(params.Clone())
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	return t, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// Register adds a factory to DefaultRegistry.
func Register(name string, factory Factory) {
	DefaultRegistry.Register(name, factory)
}
