// Package backends resolves a configured backend name to an opened store.
package backends

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/brettbedarf/dirstore"
	"github.com/brettbedarf/dirstore/config"
)

// Opened is a ready store plus the function releasing its resources.
type Opened struct {
	Store dirstore.Store
	Close func() error
}

// Opener builds a store from the service configuration.
type Opener func(ctx context.Context, cfg *config.Config) (*Opened, error)

// Registry maps backend names to openers. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	openers map[config.Backend]Opener
}

func NewRegistry() *Registry {
	return &Registry{openers: make(map[config.Backend]Opener)}
}

// Register ties an opener to a backend name. The first registration for a
// name wins; later ones are ignored.
func (r *Registry) Register(name config.Backend, open Opener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.openers[name]; ok {
		return
	}
	r.openers[name] = open
}

// Names lists the registered backends in sorted order.
func (r *Registry) Names() []config.Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]config.Backend, 0, len(r.openers))
	for name := range r.openers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Open picks the opener for cfg.Backend.
// The backend must have been registered with [Registry.Register].
func (r *Registry) Open(ctx context.Context, cfg *config.Config) (*Opened, error) {
	r.mu.RLock()
	open, ok := r.openers[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no backend registered for %q (known: %v)", cfg.Backend, r.Names())
	}
	opened, err := open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	return opened, nil
}
