package attrcrypt

import (
	"sort"
	"sync"
)

// Registry holds classes and the defaults layer they share. Most programs
// use the package-level DefaultRegistry; separate registries isolate
// defaults between tenants or tests.
type Registry struct {
	mu       sync.RWMutex
	defaults *layerOptions
	classes  map[string]*Class
}

// NewRegistry creates an empty registry, optionally seeded with defaults.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		defaults: applyOptions(opts),
		classes:  map[string]*Class{},
	}
}

// SetDefaults merges options into the registry defaults layer. Only
// declarations made afterwards see the change.
func (r *Registry) SetDefaults(opts ...Option) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = mergeLayers(r.defaults, applyOptions(opts))
}

func (r *Registry) defaultsClone() *layerOptions {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaults == nil {
		return nil
	}
	return r.defaults.clone()
}

// NewClass creates a class bound to this registry, optionally seeded with
// class defaults. A class with the same name is replaced.
func (r *Registry) NewClass(name string, opts ...Option) *Class {
	class := newClass(name, r, opts)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[name] = class
	return class
}

// Class returns a registered class by name.
func (r *Registry) Class(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	class, ok := r.classes[name]
	return class, ok
}

// Classes lists registered class names, sorted.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset drops every class and the registry defaults. Primarily useful for
// test isolation.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = nil
	r.classes = map[string]*Class{}
}

// DefaultRegistry backs the package-level helpers.
var DefaultRegistry = NewRegistry()

// SetDefaults merges options into the DefaultRegistry defaults layer.
func SetDefaults(opts ...Option) {
	DefaultRegistry.SetDefaults(opts...)
}

// NewClass creates a class on the DefaultRegistry.
func NewClass(name string, opts ...Option) *Class {
	return DefaultRegistry.NewClass(name, opts...)
}

// ClassFor returns a class registered on the DefaultRegistry.
func ClassFor(name string) (*Class, bool) {
	return DefaultRegistry.Class(name)
}
