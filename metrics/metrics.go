// Package metrics instruments a [dirstore.Store] with Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/brettbedarf/dirstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation label values.
const (
	OpCreate = "create"
	OpGet    = "get"
	OpRename = "rename"
	OpDelete = "delete"
)

// Result label values.
const (
	ResultOK         = "ok"
	ResultNotFound   = "not_found"
	ResultDepthLimit = "depth_limit"
	ResultCanceled   = "canceled"
	ResultError      = "error"
)

// Store wraps another store and records one counter increment and one
// latency observation per call.
type Store struct {
	next       dirstore.Store
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

var _ dirstore.Store = (*Store)(nil)

// Instrument registers the store metrics on reg and returns the wrapper.
// Registering twice on the same registry panics, as with promauto.
func Instrument(next dirstore.Store, reg prometheus.Registerer) *Store {
	return &Store{
		next: next,
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dirstore_operations_total",
				Help: "Total store operations by operation and result",
			},
			[]string{"op", "result"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dirstore_operation_duration_seconds",
				Help:    "Duration of store operations in seconds",
				Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
			},
			[]string{"op"},
		),
	}
}

// Unwrap returns the instrumented store.
func (s *Store) Unwrap() dirstore.Store {
	return s.next
}

func (s *Store) observe(op string, start time.Time, err error) {
	s.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	s.operations.WithLabelValues(op, resultOf(err)).Inc()
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, dirstore.ErrDirectoryNotFound):
		return ResultNotFound
	case errors.Is(err, dirstore.ErrDepthLimitExceeded):
		return ResultDepthLimit
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ResultCanceled
	default:
		return ResultError
	}
}

func (s *Store) Create(ctx context.Context, owner dirstore.OwnerID, name string, parent *dirstore.DirectoryID) (*dirstore.Directory, error) {
	start := time.Now()
	dir, err := s.next.Create(ctx, owner, name, parent)
	s.observe(OpCreate, start, err)
	return dir, err
}

func (s *Store) Get(ctx context.Context, owner dirstore.OwnerID, id dirstore.DirectoryID) (*dirstore.Directory, error) {
	start := time.Now()
	dir, err := s.next.Get(ctx, owner, id)
	s.observe(OpGet, start, err)
	return dir, err
}

func (s *Store) Rename(ctx context.Context, owner dirstore.OwnerID, id dirstore.DirectoryID, name string) error {
	start := time.Now()
	err := s.next.Rename(ctx, owner, id, name)
	s.observe(OpRename, start, err)
	return err
}

func (s *Store) Delete(ctx context.Context, owner dirstore.OwnerID, id dirstore.DirectoryID) error {
	start := time.Now()
	err := s.next.Delete(ctx, owner, id)
	s.observe(OpDelete, start, err)
	return err
}
