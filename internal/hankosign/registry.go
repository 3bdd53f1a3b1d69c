package hankosign

import (
	"context"
	"fmt"
	"sync"
)

// Loader resolves a target object of one type by primary key.
type Loader func(ctx context.Context, id string) (Target, error)

// Registry maps target type keys to loaders, so generic callers (the HTTP
// layer, admin tooling) can resolve a polymorphic reference to a concrete
// domain object without a shared inheritance hierarchy.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]Loader
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]Loader)}
}

// Register binds a type key to a loader. Re-registering a key replaces
// the previous loader.
func (r *Registry) Register(typeKey string, load Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[typeKey] = load
}

// Known reports whether a type key has a registered loader.
func (r *Registry) Known(typeKey string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.loaders[typeKey]
	return ok
}

// Resolve loads the target for (typeKey, id). ErrNotFound for unknown
// types or missing objects.
func (r *Registry) Resolve(ctx context.Context, typeKey, id string) (Target, error) {
	r.mu.RLock()
	load, ok := r.loaders[typeKey]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: target type %q", ErrNotFound, typeKey)
	}
	return load(ctx, id)
}
