// Package dispatcher fans departments out over the worker pool.
package dispatcher

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jswiatek/ekw-sourcer/internal/metrics"
	"github.com/jswiatek/ekw-sourcer/internal/register"
)

// Sourcer processes one department and reports its counters.
type Sourcer interface {
	SourceDepartment(ctx context.Context, department string) register.Counters
}

// Summary aggregates outcomes across the whole run.
type Summary struct {
	PerDepartment map[string]register.Counters
	Totals        register.Counters
}

// NewSummary returns an empty Summary.
func NewSummary() Summary {
	return Summary{PerDepartment: make(map[string]register.Counters)}
}

// Add merges one department's counters into the summary.
func (s *Summary) Add(department string, counters register.Counters) {
	merged := s.PerDepartment[department]
	merged.Add(counters)
	s.PerDepartment[department] = merged
	s.Totals.Add(counters)
}

// Dispatcher partitions departments round-robin across a fixed pool of
// sourcers and joins them at the end. Workers share no state beyond the
// record store.
type Dispatcher struct {
	sourcers []Sourcer
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// New creates a Dispatcher.
func New(sourcers []Sourcer, m *metrics.Metrics, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sourcers: sourcers,
		metrics:  m,
		logger:   logger,
	}
}

// Run blocks until every worker has finished its partition, then returns the
// aggregated summary.
func (d *Dispatcher) Run(ctx context.Context, departments []string) Summary {
	summary := NewSummary()
	if len(d.sourcers) == 0 || len(departments) == 0 {
		return summary
	}

	assignments := partition(departments, len(d.sourcers))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i, sourcer := range d.sourcers {
		if len(assignments[i]) == 0 {
			continue
		}
		wg.Add(1)
		go func(index int, src Sourcer, assigned []string) {
			defer wg.Done()
			d.metrics.WorkerStarted()
			defer d.metrics.WorkerStopped()

			for _, department := range assigned {
				if ctx.Err() != nil {
					return
				}
				d.logger.Info("worker processing department",
					zap.Int("worker", index),
					zap.String("department", department),
				)
				counters := src.SourceDepartment(ctx, department)

				mu.Lock()
				summary.Add(department, counters)
				mu.Unlock()
			}
		}(i, sourcer, assignments[i])
	}
	wg.Wait()
	return summary
}

// partition deals departments round-robin across n buckets.
func partition(departments []string, n int) [][]string {
	buckets := make([][]string, n)
	for i, department := range departments {
		idx := i % n
		buckets[idx] = append(buckets[idx], department)
	}
	return buckets
}
