package bulk

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned by Fetch before any I/O when a request is malformed.
	ErrInvalidRequest = errors.New("invalid bulk request")

	// ErrDeadlineExceeded marks requests that were still pending when the batch deadline expired.
	ErrDeadlineExceeded = errors.New("batch deadline exceeded")

	// ErrCancelled marks requests that were still pending when the caller cancelled the batch.
	ErrCancelled = errors.New("batch cancelled")
)

// StatusError describes a response that arrived but was not 2xx.
type StatusError struct {
	Key        string
	StatusCode int
	Class      StatusClass
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("request %q: unexpected status %d (%s)", e.Key, e.StatusCode, e.Class)
}
