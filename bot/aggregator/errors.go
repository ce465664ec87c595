package aggregator

import (
	"errors"
	"fmt"
)

// Errors checkable with errors.Is at the handler boundary.
var (
	// ErrUpstream is returned when the aggregator HTTP call fails or
	// times out.
	ErrUpstream = errors.New("aggregator: upstream request failed")

	// ErrNoUsableURL is returned when every tier of the quality ladder
	// yields no playable URL.
	ErrNoUsableURL = errors.New("aggregator: no usable url at any bitrate")

	// ErrBadResponse is returned when the response body matches none of
	// the known shapes.
	ErrBadResponse = errors.New("aggregator: unrecognized response shape")
)

// UpstreamError wraps a transport-level failure with request context.
type UpstreamError struct {
	Op     string
	Source string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("aggregator: %s (%s): %v", e.Op, e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is matches ErrUpstream so callers need not know the concrete type.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

func newUpstreamError(op, source string, err error) error {
	return &UpstreamError{Op: op, Source: source, Err: err}
}
