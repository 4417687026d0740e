package register

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Terminal fetch outcomes. Neither is retried: a book the portal reports as
// missing stays missing for this run, and a rejected control digit means the
// identifier itself is wrong.
var (
	// ErrBookNotFound signals the portal reported no book for the identifier.
	ErrBookNotFound = errors.New("book not found")

	// ErrControlRejected signals the portal rejected the control digit.
	ErrControlRejected = errors.New("control digit rejected by portal")
)

// ValidationError marks an identifier that fails the control-digit check
// locally. Such identifiers are skipped without any portal interaction.
type ValidationError struct {
	ID     string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid book identifier %s: %s", e.ID, e.Detail)
}

// IsTerminal reports whether the fetch error must not be retried.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrBookNotFound) || errors.Is(err, ErrControlRejected)
}

// IsTimeout reports whether the error stems from an exceeded deadline,
// either a context timeout around a browser action or a network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
