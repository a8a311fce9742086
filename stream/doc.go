// Package stream provides a generic, cold, single-consumer push-stream
// primitive and combinators built on top of it.
//
// # Overview
//
// A Stream[T] delivers values to exactly one consumer through three
// callbacks: data, error, and completion. Streams are cold: no work
// happens until Subscribe is called. The producer side is a
// Controller[T], which exposes lifecycle hooks (listen, pause, resume,
// cancel) so producers can start, throttle, and tear down work in
// response to the consumer.
//
// # Core Types
//
//   - Stream[T]: cold single-consumer push sequence
//   - Controller[T]: producer handle with Emit, Fail, Close
//   - Subscription: consumer handle with Pause, Resume, Cancel
//   - Failure: an error paired with the stack captured where it was raised
//
// # Retry
//
// Retry wraps a stream factory and re-subscribes to a fresh stream
// whenever the current one fails, up to an optional retry budget:
//
//	out := stream.Retry(func() (*stream.Stream[int], error) {
//	    return flakySource(), nil
//	}, stream.WithMaxRetries(3))
//
//	sub, err := out.Subscribe(stream.Handlers[int]{
//	    OnData:     handle,
//	    OnError:    func(f stream.Failure) { log.Error("gave up", "err", f.Err) },
//	    OnComplete: done,
//	})
//
// Every per-attempt failure is recorded internally. When the budget is
// exhausted the consumer receives a single *ExhaustedError carrying the
// configured budget and the full ordered failure list, then the stream
// closes. Individual attempt failures are never surfaced on their own.
//
// Attempts restart immediately: there is no delay or backoff between
// attempts. Use pkg/retry for blocking operations that need backoff.
//
// # Delivery Model
//
// Event delivery is synchronous with respect to the producer: Emit,
// Fail, and Close invoke the consumer callbacks on the calling
// goroutine. A Controller expects a single producing goroutine; the
// consumer-facing Subscription methods are safe to call from any
// goroutine. Pausing invokes the producer's pause hook but does not
// buffer: a producer that keeps emitting while paused will still be
// delivered. Honoring pause is the producer's contract.
//
// # Single Consumer
//
// A Stream accepts exactly one subscriber over its lifetime. A second
// Subscribe returns ErrSingleConsumer.
package stream
