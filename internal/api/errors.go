package api

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the API answers with a null body for an
// item id. The id is gone (or never existed); retrying won't help.
var ErrNotFound = errors.New("item not found")

// NetworkError is a transport-level failure: connection errors,
// timeouts, non-2xx statuses. Retryable.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError means the response arrived but didn't parse as the
// expected shape. Retrying usually reproduces it, so the UI surfaces
// it differently from a NetworkError.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Retryable reports whether err is worth offering a retry for.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) {
		return false
	}
	return true
}
