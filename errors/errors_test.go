package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClass_String(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(99).String())
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"connection lost", ErrConnectionLost, true},
		{"no connection", ErrNoConnection, true},
		{"subscription failed", ErrSubscriptionFailed, true},
		{"context deadline", context.DeadlineExceeded, true},
		{"timeout in message", errors.New("operation timeout"), true},
		{"network in message", errors.New("network unreachable"), true},
		{"invalid config", ErrInvalidConfig, false},
		{"plain error", errors.New("something went wrong"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ErrInvalidConfig))
	assert.True(t, IsFatal(ErrMissingConfig))
	assert.True(t, IsFatal(ErrDataCorrupted))
	assert.True(t, IsFatal(errors.New("fatal: cannot continue")))
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(ErrConnectionLost))
}

func TestIsInvalid(t *testing.T) {
	assert.True(t, IsInvalid(ErrInvalidData))
	assert.True(t, IsInvalid(WrapInvalid(errors.New("bad"), "C", "M", "parse")))
	assert.False(t, IsInvalid(nil))
	assert.False(t, IsInvalid(errors.New("other")))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(nil))
	assert.Equal(t, ErrorTransient, Classify(ErrConnectionTimeout))
	assert.Equal(t, ErrorFatal, Classify(ErrDataCorrupted))
	// Unknown errors default to transient to allow retry
	assert.Equal(t, ErrorTransient, Classify(errors.New("mystery")))
}

func TestWrap_Format(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(base, "Source", "Connect", "dial")

	assert.EqualError(t, err, "Source.Connect: dial failed: boom")
	assert.True(t, errors.Is(err, base))
	assert.Nil(t, Wrap(nil, "Source", "Connect", "dial"))
}

func TestWrapTransient_PreservesClassAndChain(t *testing.T) {
	base := errors.New("dial tcp: refused")
	err := WrapTransient(base, "Source", "Connect", "dial")

	assert.True(t, IsTransient(err))
	assert.True(t, errors.Is(err, base))

	var ce *ClassifiedError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, "Source", ce.Component)
	assert.Equal(t, "Connect", ce.Operation)
	assert.Equal(t, ErrorTransient, ce.Class)
}

func TestWrapFatal_OverridesMessagePatterns(t *testing.T) {
	// A transient-looking message wrapped as fatal stays fatal:
	// classification by type wins over pattern matching.
	err := WrapFatal(errors.New("connection hiccup"), "Store", "Write", "flush")

	assert.True(t, IsFatal(err))
	assert.False(t, IsTransient(err))
}

func TestClassification_ThroughWrapChain(t *testing.T) {
	inner := WrapTransient(ErrConnectionLost, "Source", "Read", "receive")
	outer := fmt.Errorf("pipeline stage: %w", inner)

	assert.True(t, IsTransient(outer))
	assert.True(t, errors.Is(outer, ErrConnectionLost))
}

func TestWrappers_NilPassthrough(t *testing.T) {
	assert.Nil(t, WrapTransient(nil, "C", "M", "a"))
	assert.Nil(t, WrapFatal(nil, "C", "M", "a"))
	assert.Nil(t, WrapInvalid(nil, "C", "M", "a"))
}
