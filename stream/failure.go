package stream

import (
	"runtime/debug"
	"time"
)

// Failure pairs an error with the context captured at the point it was
// raised: the producing goroutine's stack and the wall-clock time.
// A Failure is immutable once created.
type Failure struct {
	Err   error
	Stack []byte
	Time  time.Time
}

// NewFailure records err together with the current stack.
func NewFailure(err error) Failure {
	return Failure{
		Err:   err,
		Stack: debug.Stack(),
		Time:  time.Now(),
	}
}
