// Package worker implements the per-department sourcing loop.
package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jswiatek/ekw-sourcer/internal/metrics"
	"github.com/jswiatek/ekw-sourcer/internal/register"
)

// Config controls Worker behavior. MaxRetries counts total fetch attempts
// per identifier; ErrorSleep is the pause between attempts.
type Config struct {
	MaxRetries  int
	ErrorSleep  time.Duration
	MaxSequence int64
	Resume      bool
	RunID       string
}

// Worker walks the book sequence of its assigned departments, fetching each
// identifier through a register.Fetcher and writing outcomes to the store.
// Workers share nothing but the store.
type Worker struct {
	fetcher register.Fetcher
	store   register.RecordStore
	clock   register.Clock
	metrics *metrics.Metrics
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Worker.
func New(
	fetcher register.Fetcher,
	store register.RecordStore,
	clock register.Clock,
	m *metrics.Metrics,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxSequence <= 0 {
		cfg.MaxSequence = 99999999
	}
	return &Worker{
		fetcher: fetcher,
		store:   store,
		clock:   clock,
		metrics: m,
		cfg:     cfg,
		logger:  logger,
	}
}

// SourceDepartment processes one department's book sequence in increasing
// order and returns the outcome counters. A canceled context stops the loop;
// individual failures never do.
func (w *Worker) SourceDepartment(ctx context.Context, department string) register.Counters {
	var counters register.Counters

	start := int64(1)
	if w.cfg.Resume {
		last, ok, err := w.store.LastSequence(ctx, department)
		switch {
		case err != nil:
			w.logger.Warn("resume lookup failed, starting from the beginning",
				zap.String("department", department), zap.Error(err))
		case ok:
			start = last + 1
		}
	}
	w.logger.Info("sourcing department",
		zap.String("department", department), zap.Int64("from_sequence", start))

	for sequence := start; sequence <= w.cfg.MaxSequence; sequence++ {
		if ctx.Err() != nil {
			break
		}
		w.processBook(ctx, department, sequence, &counters)
	}
	return counters
}

// bookState tracks one identifier through pending → fetching → terminal.
type bookState struct {
	id     register.BookID
	status register.BookStatus
}

func (w *Worker) transition(state *bookState, next register.BookStatus) {
	w.logger.Debug("book state",
		zap.String("book", state.id.String()),
		zap.String("from", string(state.status)),
		zap.String("to", string(next)),
	)
	state.status = next
}

func (w *Worker) processBook(ctx context.Context, department string, sequence int64, counters *register.Counters) {
	id, err := register.NewBookID(department, sequence)
	if err != nil {
		// Validation failures never reach the fetch stage.
		counters.Skipped++
		w.metrics.ObserveBook(department, "skipped")
		w.logger.Warn("identifier failed validation, skipping",
			zap.String("department", department),
			zap.Int64("sequence", sequence),
			zap.Error(err),
		)
		return
	}

	state := bookState{id: id, status: register.StatusPending}
	w.transition(&state, register.StatusFetching)

	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxRetries; attempt++ {
		start := w.clock.Now()
		record, err := w.fetcher.FetchBook(ctx, id)
		w.metrics.ObserveFetch(department, w.clock.Now().Sub(start))

		if err == nil {
			w.transition(&state, register.StatusSucceeded)
			w.saveEvidence(ctx, record, counters)
			return
		}
		if register.IsTerminal(err) {
			w.transition(&state, register.StatusFailed)
			w.recordFailure(ctx, id, reasonFor(err), attempt, counters)
			return
		}

		lastErr = err
		w.logger.Warn("fetch attempt failed",
			zap.String("book", id.String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == w.cfg.MaxRetries {
			break
		}
		counters.Retries++
		w.metrics.IncRetries()
		if !w.wait(ctx) {
			// Process-level cancellation mid-sleep; the identifier is
			// abandoned without a record and picked up by the next run.
			return
		}
	}

	w.transition(&state, register.StatusFailed)
	reason := register.ReasonNavigation
	if register.IsTimeout(lastErr) {
		reason = register.ReasonTimeout
	}
	w.recordFailure(ctx, id, reason, w.cfg.MaxRetries, counters)
}

func (w *Worker) saveEvidence(ctx context.Context, record register.EvidenceRecord, counters *register.Counters) {
	record.RunID = w.cfg.RunID
	record.FetchedAt = w.clock.Now()

	if err := w.store.SaveEvidence(ctx, record); err != nil {
		// The write is idempotent by identifier, so the next run repairs it.
		counters.StoreErrors++
		w.metrics.IncStoreErrors()
		w.logger.Error("evidence write failed",
			zap.String("book", record.ID.String()), zap.Error(err))
	}
	counters.Succeeded++
	w.metrics.ObserveBook(record.ID.Department, "succeeded")
	w.logger.Info("book sourced", zap.String("book", record.ID.String()))
}

func (w *Worker) recordFailure(ctx context.Context, id register.BookID, reason register.FailureReason, attempts int, counters *register.Counters) {
	failure := register.FailureRecord{
		ID:       id,
		Reason:   reason,
		Attempts: attempts,
		RunID:    w.cfg.RunID,
		FailedAt: w.clock.Now(),
	}
	if err := w.store.SaveFailure(ctx, failure); err != nil {
		counters.StoreErrors++
		w.metrics.IncStoreErrors()
		w.logger.Error("failure write failed",
			zap.String("book", id.String()), zap.Error(err))
	}
	counters.Failed++
	w.metrics.ObserveBook(id.Department, "failed")
	w.logger.Warn("book failed",
		zap.String("book", id.String()),
		zap.String("reason", string(reason)),
		zap.Int("attempts", attempts),
	)
}

func reasonFor(err error) register.FailureReason {
	switch {
	case errors.Is(err, register.ErrControlRejected):
		return register.ReasonIncorrectControl
	case errors.Is(err, register.ErrBookNotFound):
		return register.ReasonNotFound
	default:
		return register.ReasonNavigation
	}
}

// wait sleeps for the configured error pause, returning false when the
// context finished first.
func (w *Worker) wait(ctx context.Context) bool {
	if w.cfg.ErrorSleep <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(w.cfg.ErrorSleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
