package scanner

import "errors"

// Package error sentinels. Wrap with fmt.Errorf("%w: ...") for detail and
// test with errors.Is.
var (
	// ErrInvalidMessage indicates a payload that failed to parse or
	// failed validation.
	ErrInvalidMessage = errors.New("scanner: invalid message")

	// ErrNotStarted indicates a decode was attempted before the decoder
	// subscribed to worker responses.
	ErrNotStarted = errors.New("scanner: decoder not started")

	// ErrDecodeRequestFailed indicates the decode request could not be
	// published to the broker.
	ErrDecodeRequestFailed = errors.New("scanner: decode request failed")

	// ErrWorkerFailed indicates a decode worker reported an error for a
	// request it accepted.
	ErrWorkerFailed = errors.New("scanner: decode worker failed")
)
