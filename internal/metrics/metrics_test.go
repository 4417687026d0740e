package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveBook(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveBook("WA1M", "succeeded")
	m.ObserveBook("WA1M", "succeeded")
	m.ObserveBook("WA1M", "failed")

	require.Equal(t, float64(2), testutil.ToFloat64(m.BooksTotal.WithLabelValues("WA1M", "succeeded")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.BooksTotal.WithLabelValues("WA1M", "failed")))
}

func TestCountersAndGauge(t *testing.T) {
	t.Parallel()

	m := New()
	m.IncRetries()
	m.IncRetries()
	m.IncStoreErrors()
	m.WorkerStarted()
	m.WorkerStarted()
	m.WorkerStopped()

	require.Equal(t, float64(2), testutil.ToFloat64(m.RetriesTotal))
	require.Equal(t, float64(1), testutil.ToFloat64(m.StoreErrorsTotal))
	require.Equal(t, float64(1), testutil.ToFloat64(m.ActiveWorkers))
}

func TestNilMetricsAreSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveBook("WA1M", "succeeded")
	m.IncRetries()
	m.IncStoreErrors()
	m.ObserveFetch("WA1M", time.Second)
	m.WorkerStarted()
	m.WorkerStopped()
	require.NotNil(t, m.Handler())
}
