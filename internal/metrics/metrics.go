// Package metrics exposes Prometheus collectors for the sourcing run.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles Prometheus collectors for the sourcer. All methods are
// nil-safe so components can run without metrics in tests.
type Metrics struct {
	Registry         *prometheus.Registry
	BooksTotal       *prometheus.CounterVec
	RetriesTotal     prometheus.Counter
	StoreErrorsTotal prometheus.Counter
	FetchDuration    *prometheus.HistogramVec
	ActiveWorkers    prometheus.Gauge
}

// New constructs and registers all collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	books := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sourcer_books_total",
			Help: "Total book identifiers processed, labeled by department and outcome.",
		},
		[]string{"department", "outcome"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sourcer_fetch_retries_total",
			Help: "Total fetch retry attempts scheduled.",
		},
	)
	storeErrors := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sourcer_store_errors_total",
			Help: "Total record writes that failed.",
		},
	)
	fetchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sourcer_fetch_duration_seconds",
			Help:    "Latency of one book fetch attempt.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"department"},
	)
	activeWorkers := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sourcer_active_workers",
			Help: "Number of workers currently sourcing a department.",
		},
	)

	registry.MustRegister(books, retries, storeErrors, fetchDuration, activeWorkers)

	return &Metrics{
		Registry:         registry,
		BooksTotal:       books,
		RetriesTotal:     retries,
		StoreErrorsTotal: storeErrors,
		FetchDuration:    fetchDuration,
		ActiveWorkers:    activeWorkers,
	}
}

// Handler returns an http.Handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveBook counts one terminal outcome for a department.
func (m *Metrics) ObserveBook(department, outcome string) {
	if m == nil {
		return
	}
	m.BooksTotal.WithLabelValues(department, outcome).Inc()
}

// IncRetries counts one scheduled retry.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncStoreErrors counts one failed record write.
func (m *Metrics) IncStoreErrors() {
	if m == nil {
		return
	}
	m.StoreErrorsTotal.Inc()
}

// ObserveFetch records the duration of one fetch attempt.
func (m *Metrics) ObserveFetch(department string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(department).Observe(d.Seconds())
}

// WorkerStarted increments the active workers gauge.
func (m *Metrics) WorkerStarted() {
	if m == nil {
		return
	}
	m.ActiveWorkers.Inc()
}

// WorkerStopped decrements the active workers gauge.
func (m *Metrics) WorkerStopped() {
	if m == nil {
		return
	}
	m.ActiveWorkers.Dec()
}
