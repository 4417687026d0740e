package register

import (
	"context"
	"time"
)

// Session is the capability set the sourcing logic needs from a browser
// automation library: navigate, wait, interact with form fields and read
// rendered text. Any automation backend satisfying it is interchangeable,
// which keeps the core testable against a stub.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	SendKeys(ctx context.Context, selector string, value string) error
	Text(ctx context.Context, selector string) (string, error)
	Visible(ctx context.Context, selector string) (bool, error)
}

// Fetcher loads and parses the portal page for one book identifier.
type Fetcher interface {
	FetchBook(ctx context.Context, id BookID) (EvidenceRecord, error)
}

// RecordStore persists sourcing outcomes. Implementations must tolerate
// concurrent independent writes; evidence writes are idempotent by book
// identifier, failure writes are append-only.
type RecordStore interface {
	SaveEvidence(ctx context.Context, record EvidenceRecord) error
	SaveFailure(ctx context.Context, record FailureRecord) error
	LastSequence(ctx context.Context, department string) (int64, bool, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
