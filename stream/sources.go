package stream

import (
	"context"

	"golang.org/x/time/rate"
)

// FromSlice returns a cold stream that emits each element of vs in
// order and then completes. Delivery is synchronous with Subscribe and
// ignores pause.
func FromSlice[T any](vs []T) *Stream[T] {
	var c *Controller[T]
	c = NewController[T](OnListen(func() {
		for _, v := range vs {
			c.Emit(v)
		}
		c.Close()
	}))
	return c.Stream()
}

// Just returns a cold stream emitting exactly the given values.
func Just[T any](vs ...T) *Stream[T] {
	return FromSlice(vs)
}

// FromError returns a cold stream that fails with err on subscribe and
// then closes.
func FromError[T any](err error) *Stream[T] {
	var c *Controller[T]
	c = NewController[T](OnListen(func() {
		c.Fail(err)
		c.Close()
	}))
	return c.Stream()
}

// Throttle returns a stream that forwards src's events while pacing
// data delivery through lim. Errors and completion pass through
// unchanged. Cancelling the returned stream cancels the upstream
// subscription and releases any waiter blocked on the limiter.
func Throttle[T any](src *Stream[T], lim *rate.Limiter) *Stream[T] {
	ctx, stop := context.WithCancel(context.Background())

	var (
		c     *Controller[T]
		inner *Subscription
	)
	c = NewController[T](
		OnListen(func() {
			sub, err := src.Subscribe(Handlers[T]{
				OnData: func(v T) {
					if err := lim.Wait(ctx); err != nil {
						return
					}
					c.Emit(v)
				},
				OnError:    c.FailRecord,
				OnComplete: c.Close,
			}, CancelOnError(false))
			if err != nil {
				c.Fail(err)
				c.Close()
				return
			}
			inner = sub
		}),
		OnPause(func() {
			if inner != nil {
				inner.Pause()
			}
		}),
		OnResume(func() {
			if inner != nil {
				inner.Resume()
			}
		}),
		OnCancel(func() {
			stop()
			if inner != nil {
				inner.Cancel()
			}
		}),
	)
	return c.Stream()
}
