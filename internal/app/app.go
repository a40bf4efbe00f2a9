// Package app assembles a runnable service from a validated configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/brettbedarf/dirstore"
	"github.com/brettbedarf/dirstore/backends"
	"github.com/brettbedarf/dirstore/config"
	"github.com/brettbedarf/dirstore/internal/seed"
	"github.com/brettbedarf/dirstore/internal/util"
	"github.com/brettbedarf/dirstore/metrics"
	"github.com/brettbedarf/dirstore/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests.
const ShutdownTimeout = 10 * time.Second

// App owns the store and the HTTP server built from one Config.
type App struct {
	cfg    *config.Config
	store  dirstore.Store
	close  func() error
	server *server.Server
	logger util.Logger
}

// New validates cfg, opens the configured store, optionally seeds it and
// builds the HTTP server. Call Close when done.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := util.GetLogger("app")

	opened, err := backends.Default().Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := opened.Store

	if err := seedStore(ctx, store, cfg); err != nil {
		_ = opened.Close()
		return nil, err
	}

	opts := server.Options{EnableCORS: cfg.EnableCORS}
	if cfg.EnableMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		store = metrics.Instrument(store, reg)
		opts.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	logger.Info().
		Str("backend", string(cfg.Backend)).
		Uint32("maxDepth", cfg.MaxDepth).
		Int("fetchConcurrency", cfg.FetchConcurrency).
		Bool("metrics", cfg.EnableMetrics).
		Msg("Store ready")

	return &App{
		cfg:    cfg,
		store:  store,
		close:  opened.Close,
		server: server.New(store, opts),
		logger: logger,
	}, nil
}

// seedStore applies the demo dataset and then the seed file, if configured.
func seedStore(ctx context.Context, store dirstore.Store, cfg *config.Config) error {
	logger := util.GetLogger("app")

	var datasets []seed.Dataset
	if cfg.Seed {
		datasets = append(datasets, seed.Default()...)
	}
	if cfg.SeedFile != "" {
		loaded, err := seed.LoadFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		datasets = append(datasets, loaded...)
	}

	for _, ds := range datasets {
		_, n, err := seed.Populate(ctx, store, ds.Owner, ds.Tree)
		if err != nil {
			return err
		}
		logger.Info().Uint64("owner", uint64(ds.Owner)).Int("directories", n).Msg("Seeded directory tree")
	}
	return nil
}

// Store returns the (possibly instrumented) store the server uses.
func (a *App) Store() dirstore.Store {
	return a.store
}

// Handler returns the HTTP handler without binding a socket.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Run serves until ctx is done or the server fails, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	done := a.server.ServeAsync(a.cfg.ListenAddress)

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		a.logger.Info().Dur("timeout", ShutdownTimeout).Msg("Stopping, draining in-flight requests")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-done
}

// Close releases the store.
func (a *App) Close() error {
	return a.close()
}
