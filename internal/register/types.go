// Package register defines core types shared across subsystems.
package register

import (
	"fmt"
	"time"
)

// BookStatus represents the lifecycle state of one book identifier
// inside a sourcing worker.
type BookStatus string

// Book status values a worker moves through while sourcing one identifier.
const (
	StatusPending   BookStatus = "pending"
	StatusFetching  BookStatus = "fetching"
	StatusSucceeded BookStatus = "succeeded"
	StatusFailed    BookStatus = "failed"
)

// FailureReason classifies why a book identifier ended up as a FailureRecord.
type FailureReason string

// Failure reasons persisted alongside failed identifiers.
const (
	ReasonTimeout          FailureReason = "timeout"
	ReasonNotFound         FailureReason = "not_found"
	ReasonNavigation       FailureReason = "navigation_error"
	ReasonIncorrectControl FailureReason = "incorrect_control_number"
)

// SequenceDigits is the fixed width of a book sequence number on the portal.
const SequenceDigits = 8

// BookID identifies one evidence book: department code, sequence number and
// the control digit derived from both.
type BookID struct {
	Department   string
	Sequence     int64
	ControlDigit int
}

// NewBookID derives the control digit for the given department code and
// sequence number and returns the full identifier. It fails with a
// *ValidationError when the identifier contains characters outside the
// portal's alphabet or the sequence is out of range.
func NewBookID(department string, sequence int64) (BookID, error) {
	digit, err := ControlDigit(department, sequence)
	if err != nil {
		return BookID{}, err
	}
	return BookID{
		Department:   department,
		Sequence:     sequence,
		ControlDigit: digit,
	}, nil
}

// SequenceText returns the zero-padded sequence number as entered on the
// portal search form.
func (id BookID) SequenceText() string {
	return fmt.Sprintf("%0*d", SequenceDigits, id.Sequence)
}

// String renders the canonical identifier form, e.g. "WA1M/00000001/1".
func (id BookID) String() string {
	return fmt.Sprintf("%s/%s/%d", id.Department, id.SequenceText(), id.ControlDigit)
}

// Validate recomputes the control digit and rejects the identifier when the
// carried digit does not match. Identifiers failing validation must never be
// dispatched for fetching.
func (id BookID) Validate() error {
	digit, err := ControlDigit(id.Department, id.Sequence)
	if err != nil {
		return err
	}
	if digit != id.ControlDigit {
		return &ValidationError{
			ID:     id.String(),
			Detail: fmt.Sprintf("control digit %d does not match computed %d", id.ControlDigit, digit),
		}
	}
	return nil
}

// EvidenceRecord is the metadata extracted for one successfully fetched book.
// Records are immutable once stored; writes are idempotent by book identifier.
type EvidenceRecord struct {
	ID             BookID            `json:"id"`
	RegisterNumber string            `json:"register_number"`
	RegisterType   string            `json:"register_type"`
	Court          string            `json:"court"`
	WrittenAt      string            `json:"written_at"`
	Location       string            `json:"location"`
	Owner          string            `json:"owner"`
	Sections       map[string]string `json:"sections"`
	RunID          string            `json:"run_id"`
	FetchedAt      time.Time         `json:"fetched_at"`
}

// FailureRecord is appended when a fetch attempt exhausts its retry budget
// or hits a terminal portal response.
type FailureRecord struct {
	ID       BookID        `json:"id"`
	Reason   FailureReason `json:"reason"`
	Attempts int           `json:"attempts"`
	RunID    string        `json:"run_id"`
	FailedAt time.Time     `json:"failed_at"`
}

// Counters tracks per-department sourcing outcomes.
type Counters struct {
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
	Skipped     int `json:"skipped"`
	Retries     int `json:"retries"`
	StoreErrors int `json:"store_errors"`
}

// Add merges another set of counters into the receiver.
func (c *Counters) Add(other Counters) {
	c.Succeeded += other.Succeeded
	c.Failed += other.Failed
	c.Skipped += other.Skipped
	c.Retries += other.Retries
	c.StoreErrors += other.StoreErrors
}
