package coinbase

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork matches any *NetworkError via errors.Is.
	ErrNetwork = errors.New("network error")
	// ErrDecode matches any *DecodeError via errors.Is.
	ErrDecode = errors.New("decode error")
	// ErrStatus matches any *StatusError via errors.Is.
	ErrStatus = errors.New("unexpected status")
	// ErrEmptyPair is returned before any I/O when a pair argument is blank.
	ErrEmptyPair = errors.New("pair must not be empty")
)

// NetworkError wraps a transport failure: connection refused, DNS failure,
// a cancelled or expired context, or a body that could not be read.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// DecodeError reports a response body that is not valid JSON.
type DecodeError struct {
	URL    string
	Status int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s (status %d): %v", e.URL, e.Status, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// StatusError reports a non-2xx answer where only success is acceptable.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
}

func (e *StatusError) Is(target error) bool { return target == ErrStatus }
