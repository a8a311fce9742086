package stream

import "sync"

// ControllerOption configures a Controller using the functional options
// pattern.
type ControllerOption func(*controllerOptions)

type controllerOptions struct {
	onListen func()
	onPause  func()
	onResume func()
	onCancel func()
}

// OnListen sets the hook invoked when the first (and only) consumer
// subscribes. Producers typically start their work here, keeping the
// stream cold until then.
func OnListen(fn func()) ControllerOption {
	return func(o *controllerOptions) { o.onListen = fn }
}

// OnPause sets the hook invoked when the consumer pauses.
func OnPause(fn func()) ControllerOption {
	return func(o *controllerOptions) { o.onPause = fn }
}

// OnResume sets the hook invoked when the consumer resumes.
func OnResume(fn func()) ControllerOption {
	return func(o *controllerOptions) { o.onResume = fn }
}

// OnCancel sets the hook invoked when the consumer cancels. Producers
// release their resources here.
func OnCancel(fn func()) ControllerOption {
	return func(o *controllerOptions) { o.onCancel = fn }
}

// Controller is the producer side of a Stream. Emit, Fail and Close
// must be called from a single producing goroutine; delivery to the
// consumer happens synchronously on that goroutine. Events emitted
// before a consumer subscribes, or after close or cancellation, are
// dropped.
type Controller[T any] struct {
	opts controllerOptions

	mu     sync.Mutex
	sub    *consumer[T]
	used   bool
	closed bool
}

type consumer[T any] struct {
	h             Handlers[T]
	cancelOnError bool
	s             *Subscription
}

// NewController creates a controller with the given lifecycle hooks.
func NewController[T any](opts ...ControllerOption) *Controller[T] {
	c := &Controller[T]{}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

// Stream returns the consumer-facing stream for this controller.
func (c *Controller[T]) Stream() *Stream[T] {
	return &Stream[T]{subscribe: c.doSubscribe}
}

func (c *Controller[T]) doSubscribe(h Handlers[T], o subscribeOptions) (*Subscription, error) {
	c.mu.Lock()
	if c.used {
		c.mu.Unlock()
		return nil, ErrSingleConsumer
	}
	c.used = true
	s := newSubscription(c.opts.onPause, c.opts.onResume, c.opts.onCancel)
	c.sub = &consumer[T]{h: h, cancelOnError: o.cancelOnError, s: s}
	closed := c.closed
	c.mu.Unlock()

	if closed {
		// Closed before anyone listened: deliver completion immediately.
		s.finish()
		if h.OnComplete != nil {
			h.OnComplete()
		}
		return s, nil
	}

	if c.opts.onListen != nil {
		c.opts.onListen()
	}
	return s, nil
}

// Emit delivers v to the consumer. Dropped when there is no live
// subscriber. Pause does not buffer: values emitted while paused are
// still delivered, honoring pause is the producer's contract.
func (c *Controller[T]) Emit(v T) {
	sub := c.liveConsumer()
	if sub == nil {
		return
	}
	if sub.h.OnData != nil {
		sub.h.OnData(v)
	}
}

// Fail delivers err as an error event, capturing the stack at the call
// site. If the subscription was created with CancelOnError(true), the
// subscription cancels itself after delivery.
func (c *Controller[T]) Fail(err error) {
	c.FailRecord(NewFailure(err))
}

// FailRecord delivers a previously captured failure, preserving its
// original stack. Combinators forwarding errors from an upstream use
// this to keep the originating trace.
func (c *Controller[T]) FailRecord(f Failure) {
	sub := c.liveConsumer()
	if sub == nil {
		return
	}
	if sub.h.OnError != nil {
		sub.h.OnError(f)
	}
	if sub.cancelOnError {
		sub.s.Cancel()
	}
}

// Close delivers completion and seals the controller. Exactly one
// terminal close is ever delivered; further calls are no-ops.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	sub := c.sub
	c.mu.Unlock()

	if sub == nil || !sub.s.alive() {
		return
	}
	sub.s.finish()
	if sub.h.OnComplete != nil {
		sub.h.OnComplete()
	}
}

// Closed reports whether Close has been called.
func (c *Controller[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// liveConsumer returns the consumer if events should be delivered.
func (c *Controller[T]) liveConsumer() *consumer[T] {
	c.mu.Lock()
	sub := c.sub
	closed := c.closed
	c.mu.Unlock()

	if closed || sub == nil || !sub.s.alive() {
		return nil
	}
	return sub
}
