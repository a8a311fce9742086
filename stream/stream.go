package stream

import (
	"sync"

	"github.com/google/uuid"
)

// Handlers holds the consumer callbacks for a subscription. Any of the
// three may be nil; the corresponding events are dropped.
type Handlers[T any] struct {
	OnData     func(T)
	OnError    func(Failure)
	OnComplete func()
}

// SubscribeOption configures a single subscription.
type SubscribeOption func(*subscribeOptions)

type subscribeOptions struct {
	cancelOnError bool
}

// CancelOnError controls whether the subscription cancels itself after
// the first error event. Defaults to true. Combinators that handle
// errors explicitly (such as Retry) turn it off.
func CancelOnError(on bool) SubscribeOption {
	return func(o *subscribeOptions) {
		o.cancelOnError = on
	}
}

// Stream is a cold, single-consumer push sequence of T. No work happens
// until Subscribe is called, and a stream accepts exactly one
// subscriber over its lifetime.
type Stream[T any] struct {
	subscribe func(h Handlers[T], o subscribeOptions) (*Subscription, error)
}

// Subscribe attaches the consumer and starts the producer. It returns
// ErrSingleConsumer if the stream already had a subscriber.
func (s *Stream[T]) Subscribe(h Handlers[T], opts ...SubscribeOption) (*Subscription, error) {
	o := subscribeOptions{cancelOnError: true}
	for _, opt := range opts {
		opt(&o)
	}
	return s.subscribe(h, o)
}

// Subscription is the consumer-facing handle for an active stream.
// All methods are safe for concurrent use and idempotent.
type Subscription struct {
	id string

	mu        sync.Mutex
	paused    bool
	cancelled bool
	finished  bool

	onPause  func()
	onResume func()
	onCancel func()
}

func newSubscription(onPause, onResume, onCancel func()) *Subscription {
	return &Subscription{
		id:       uuid.NewString(),
		onPause:  onPause,
		onResume: onResume,
		onCancel: onCancel,
	}
}

// ID returns the unique identifier of this subscription, useful for
// correlating log lines.
func (s *Subscription) ID() string {
	return s.id
}

// Pause asks the producer to stop emitting. No-op if already paused or
// in a terminal state. Data is not buffered while paused.
func (s *Subscription) Pause() {
	s.mu.Lock()
	if s.paused || s.cancelled || s.finished {
		s.mu.Unlock()
		return
	}
	s.paused = true
	hook := s.onPause
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// Resume asks the producer to continue emitting after a Pause.
func (s *Subscription) Resume() {
	s.mu.Lock()
	if !s.paused || s.cancelled || s.finished {
		s.mu.Unlock()
		return
	}
	s.paused = false
	hook := s.onResume
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// Cancel detaches the consumer and tears down the producer. Events
// arriving after Cancel are dropped. Idempotent, including after the
// stream reached a terminal state.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	if s.cancelled || s.finished {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	hook := s.onCancel
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// Paused reports whether the consumer has requested a pause.
func (s *Subscription) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// alive reports whether events should still be delivered.
func (s *Subscription) alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.cancelled && !s.finished
}

// finish marks the subscription terminal after the stream closed.
func (s *Subscription) finish() {
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()
}
