package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jswiatek/ekw-sourcer/internal/register"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

// fakeFetcher serves canned outcomes. With err set every attempt fails with
// it; otherwise the first transientFailures attempts fail with a wrapped
// deadline error and the rest succeed.
type fakeFetcher struct {
	mu                sync.Mutex
	err               error
	transientFailures int

	attempts int
	fetched  []register.BookID
}

func (f *fakeFetcher) FetchBook(_ context.Context, id register.BookID) (register.EvidenceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	f.fetched = append(f.fetched, id)
	if f.err != nil {
		return register.EvidenceRecord{}, f.err
	}
	if f.attempts <= f.transientFailures {
		return register.EvidenceRecord{}, fmt.Errorf("wait for result: %w", context.DeadlineExceeded)
	}
	return register.EvidenceRecord{ID: id, RegisterType: "GRUNTOWA"}, nil
}

type fakeStore struct {
	mu            sync.Mutex
	evidence      map[string]register.EvidenceRecord
	evidenceSaves int
	failures      []register.FailureRecord
	last          map[string]int64
	evidenceErr   error
	failureErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		evidence: make(map[string]register.EvidenceRecord),
		last:     make(map[string]int64),
	}
}

func (s *fakeStore) SaveEvidence(_ context.Context, record register.EvidenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.evidenceErr != nil {
		return s.evidenceErr
	}
	s.evidence[record.ID.String()] = record
	s.evidenceSaves++
	return nil
}

func (s *fakeStore) SaveFailure(_ context.Context, record register.FailureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failureErr != nil {
		return s.failureErr
	}
	s.failures = append(s.failures, record)
	return nil
}

func (s *fakeStore) LastSequence(_ context.Context, department string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.last[department]
	return last, ok, nil
}

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestWorker(fetcher register.Fetcher, store register.RecordStore, cfg Config) *Worker {
	return New(fetcher, store, &fakeClock{now: testTime}, nil, cfg, zap.NewNop())
}

func TestSourceDepartmentSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	store := newFakeStore()
	w := newTestWorker(fetcher, store, Config{
		MaxRetries:  3,
		MaxSequence: 1,
		RunID:       "run-1",
	})

	counters := w.SourceDepartment(context.Background(), "WA1M")

	require.Equal(t, 1, fetcher.attempts)
	require.Equal(t, register.Counters{Succeeded: 1}, counters)
	require.Empty(t, store.failures)

	record, ok := store.evidence["WA1M/00000001/1"]
	require.True(t, ok)
	require.Equal(t, "run-1", record.RunID)
	require.Equal(t, testTime, record.FetchedAt)
}

func TestSourceDepartmentRecoversAfterRetry(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{transientFailures: 1}
	store := newFakeStore()
	w := newTestWorker(fetcher, store, Config{
		MaxRetries:  3,
		MaxSequence: 1,
	})

	counters := w.SourceDepartment(context.Background(), "WA1M")

	require.Equal(t, 2, fetcher.attempts)
	require.Equal(t, register.Counters{Succeeded: 1, Retries: 1}, counters)
	require.Len(t, store.evidence, 1)
	require.Empty(t, store.failures)
}

func TestSourceDepartmentExhaustsRetriesOnTimeout(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: fmt.Errorf("wait for result: %w", context.DeadlineExceeded)}
	store := newFakeStore()
	w := newTestWorker(fetcher, store, Config{
		MaxRetries:  3,
		ErrorSleep:  0,
		MaxSequence: 1,
		RunID:       "run-1",
	})

	counters := w.SourceDepartment(context.Background(), "WA1M")

	require.Equal(t, 3, fetcher.attempts)
	require.Equal(t, register.Counters{Failed: 1, Retries: 2}, counters)
	require.Empty(t, store.evidence)

	require.Len(t, store.failures, 1)
	failure := store.failures[0]
	require.Equal(t, register.ReasonTimeout, failure.Reason)
	require.Equal(t, 3, failure.Attempts)
	require.Equal(t, "run-1", failure.RunID)
	require.Equal(t, "WA1M/00000001/1", failure.ID.String())
}

func TestSourceDepartmentDoesNotRetryNotFound(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: fmt.Errorf("search: %w", register.ErrBookNotFound)}
	store := newFakeStore()
	w := newTestWorker(fetcher, store, Config{
		MaxRetries:  3,
		MaxSequence: 1,
	})

	counters := w.SourceDepartment(context.Background(), "WA1M")

	require.Equal(t, 1, fetcher.attempts)
	require.Equal(t, register.Counters{Failed: 1}, counters)
	require.Len(t, store.failures, 1)
	require.Equal(t, register.ReasonNotFound, store.failures[0].Reason)
	require.Equal(t, 1, store.failures[0].Attempts)
}

func TestSourceDepartmentDoesNotRetryControlRejection(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: register.ErrControlRejected}
	store := newFakeStore()
	w := newTestWorker(fetcher, store, Config{
		MaxRetries:  3,
		MaxSequence: 1,
	})

	counters := w.SourceDepartment(context.Background(), "WA1M")

	require.Equal(t, 1, fetcher.attempts)
	require.Equal(t, register.Counters{Failed: 1}, counters)
	require.Len(t, store.failures, 1)
	require.Equal(t, register.ReasonIncorrectControl, store.failures[0].Reason)
}

func TestSourceDepartmentSkipsInvalidDepartment(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	store := newFakeStore()
	w := newTestWorker(fetcher, store, Config{
		MaxRetries:  3,
		MaxSequence: 2,
	})

	// Q is outside the identifier alphabet, so no identifier in this
	// department can validate and none may reach the portal.
	counters := w.SourceDepartment(context.Background(), "QQ1Q")

	require.Zero(t, fetcher.attempts)
	require.Equal(t, register.Counters{Skipped: 2}, counters)
	require.Empty(t, store.evidence)
	require.Empty(t, store.failures)
}

func TestSourceDepartmentResumesAfterLastSequence(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	store := newFakeStore()
	store.last["WA1M"] = 3
	w := newTestWorker(fetcher, store, Config{
		MaxRetries:  3,
		MaxSequence: 5,
		Resume:      true,
	})

	counters := w.SourceDepartment(context.Background(), "WA1M")

	require.Equal(t, 2, fetcher.attempts)
	require.Equal(t, int64(4), fetcher.fetched[0].Sequence)
	require.Equal(t, int64(5), fetcher.fetched[1].Sequence)
	require.Equal(t, register.Counters{Succeeded: 2}, counters)
}

func TestSourceDepartmentRerunOverwrites(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	store := newFakeStore()
	w := newTestWorker(fetcher, store, Config{
		MaxRetries:  3,
		MaxSequence: 1,
	})

	w.SourceDepartment(context.Background(), "WA1M")
	w.SourceDepartment(context.Background(), "WA1M")

	require.Equal(t, 2, store.evidenceSaves)
	require.Len(t, store.evidence, 1)
}

func TestSourceDepartmentContinuesAfterStoreError(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	store := newFakeStore()
	store.evidenceErr = fmt.Errorf("connection refused")
	w := newTestWorker(fetcher, store, Config{
		MaxRetries:  3,
		MaxSequence: 2,
	})

	counters := w.SourceDepartment(context.Background(), "WA1M")

	require.Equal(t, 2, fetcher.attempts)
	require.Equal(t, register.Counters{Succeeded: 2, StoreErrors: 2}, counters)
}

func TestSourceDepartmentStopsWhenCanceled(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	store := newFakeStore()
	w := newTestWorker(fetcher, store, Config{
		MaxRetries:  3,
		MaxSequence: 100,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	counters := w.SourceDepartment(ctx, "WA1M")

	require.Zero(t, fetcher.attempts)
	require.Equal(t, register.Counters{}, counters)
}
