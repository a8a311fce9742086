package stream

import "errors"

// Sentinel errors for stream operations
var (
	// ErrSingleConsumer indicates a second subscribe on a single-consumer stream
	ErrSingleConsumer = errors.New("stream already has a consumer")

	// ErrNilFactory indicates a nil factory was passed to Retry
	ErrNilFactory = errors.New("stream factory cannot be nil")

	// ErrNilStream indicates a factory produced a nil stream
	ErrNilStream = errors.New("stream factory returned nil stream")
)
