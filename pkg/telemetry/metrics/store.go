package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/store"
)

// StoreMetrics tracks document store operations.
//
// Metrics:
//   - <ns>_<sub>_store_operations_total: count by operation and status
//   - <ns>_<sub>_store_operation_duration_seconds: duration histogram
type StoreMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewStoreMetrics creates and registers store metrics with the
// provided registry.
func NewStoreMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *StoreMetrics {
	sm := &StoreMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "store_operations_total",
				Help:      "Total number of document store operations",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "store_operation_duration_seconds",
				Help:      "Duration of document store operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(sm.operationsTotal, sm.operationDuration)
	return sm
}

// record classifies the outcome and updates both series.
func (sm *StoreMetrics) record(operation string, start time.Time, err error) {
	status := "success"
	switch {
	case store.IsNotFound(err):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	sm.operationsTotal.WithLabelValues(operation, status).Inc()
	sm.operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// InstrumentedStore wraps a store.Store and records a metric per
// operation.
type InstrumentedStore struct {
	inner   store.Store
	metrics *StoreMetrics
}

var _ store.Store = (*InstrumentedStore)(nil)

// Instrument wraps the given store.
func Instrument(inner store.Store, metrics *StoreMetrics) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, metrics: metrics}
}

func (s *InstrumentedStore) ResolveAndFetch(ctx context.Context, application, environment, ref string, category store.Category) (*store.Document, error) {
	start := time.Now()
	doc, err := s.inner.ResolveAndFetch(ctx, application, environment, ref, category)
	s.metrics.record("resolve_and_fetch", start, err)
	return doc, err
}

func (s *InstrumentedStore) ListCommits(ctx context.Context, application, environment string) ([]store.CommitRecord, error) {
	start := time.Now()
	records, err := s.inner.ListCommits(ctx, application, environment)
	s.metrics.record("list_commits", start, err)
	return records, err
}

func (s *InstrumentedStore) Bootstrap(ctx context.Context, application, environment string, documents map[store.Category][]byte) (*store.RepositoryInfo, error) {
	start := time.Now()
	info, err := s.inner.Bootstrap(ctx, application, environment, documents)
	s.metrics.record("bootstrap", start, err)
	return info, err
}

func (s *InstrumentedStore) ListRepositories(ctx context.Context) ([]store.RepositoryInfo, error) {
	start := time.Now()
	infos, err := s.inner.ListRepositories(ctx)
	s.metrics.record("list_repositories", start, err)
	return infos, err
}

func (s *InstrumentedStore) Healthy(ctx context.Context) bool {
	return s.inner.Healthy(ctx)
}
