package backends

import (
	"context"

	"github.com/brettbedarf/dirstore/badgerstore"
	"github.com/brettbedarf/dirstore/config"
	"github.com/brettbedarf/dirstore/memstore"
)

// RegisterBuiltins registers all built-in backends by default
// or only the specific ones if names are provided
func RegisterBuiltins(r *Registry, names ...config.Backend) {
	if len(names) == 0 {
		names = []config.Backend{config.BackendMemory, config.BackendBadger}
	}

	for _, name := range names {
		switch name {
		case config.BackendMemory:
			r.Register(name, openMemory)
		case config.BackendBadger:
			r.Register(name, openBadger)
		}
	}
}

// Default returns a registry holding every built-in backend.
func Default() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

func openMemory(_ context.Context, cfg *config.Config) (*Opened, error) {
	s := memstore.New(memstore.Options{
		FetchConcurrency: cfg.FetchConcurrency,
		MaxDepth:         cfg.MaxDepth,
	})
	return &Opened{Store: s, Close: func() error { return nil }}, nil
}

func openBadger(ctx context.Context, cfg *config.Config) (*Opened, error) {
	s, err := badgerstore.Open(ctx, badgerstore.Config{
		Dir:      cfg.DataDir,
		MaxDepth: cfg.MaxDepth,
	})
	if err != nil {
		return nil, err
	}
	return &Opened{Store: s, Close: s.Close}, nil
}
