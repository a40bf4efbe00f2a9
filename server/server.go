// Package server exposes a directory store over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/brettbedarf/dirstore"
	"github.com/brettbedarf/dirstore/internal/util"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Options controls the optional parts of the HTTP surface.
type Options struct {
	// EnableCORS allows any origin, header and method.
	EnableCORS bool
	// MetricsHandler is mounted at /metrics when non-nil.
	MetricsHandler http.Handler
}

// Server exposes a dirstore.Store over HTTP with abstractions over the
// underlying echo router.
type Server struct {
	store  dirstore.Store
	echo   *echo.Echo
	logger util.Logger
}

// New creates a Server serving store.
func New(store dirstore.Store, opts Options) *Server {
	logger := util.GetLogger("server")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newValidator()
	e.Server.ErrorLog = util.NewLogLogger("http", util.WarnLevel)

	s := &Server{
		store:  store,
		echo:   e,
		logger: logger,
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(s.logRequests)
	if opts.EnableCORS {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: []string{"*"},
			AllowHeaders: []string{"*"},
			AllowMethods: []string{
				http.MethodGet, http.MethodHead, http.MethodPost,
				http.MethodPut, http.MethodDelete, http.MethodOptions,
			},
		}))
	}

	s.registerRoutes(opts)
	return s
}

func (s *Server) registerRoutes(opts Options) {
	s.echo.GET("/health", s.handleHealth)
	if opts.MetricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(opts.MetricsHandler))
	}

	dirs := s.echo.Group("/directory", requireOwner)
	dirs.GET("/:id", s.handleGetDirectory)
	dirs.POST("", s.handleCreateDirectory)
	dirs.PUT("/:id", s.handleRenameDirectory)
	dirs.DELETE("/:id", s.handleDeleteDirectory)
}

// Handler returns the root http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Serve listens on addr and blocks until the server is shut down.
func (s *Server) Serve(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("Starting http server")
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ServeAsync runs Serve in the background. The channel yields Serve's result
// once and is then closed.
func (s *Server) ServeAsync(addr string) <-chan error {
	done := make(chan error, 1)

	go func() {
		done <- s.Serve(addr)
		close(done)
	}()

	return done
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down http server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		s.logger.Debug().
			Str("method", req.Method).
			Str("path", c.Path()).
			Str("uri", req.RequestURI).
			Int("status", c.Response().Status).
			Dur("duration", time.Since(start)).
			Str("requestId", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("Handled request")
		return nil
	}
}
