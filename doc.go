// Package streamkit provides push-based, single-consumer streams with
// lifecycle control and failure-aware retry.
//
// # Philosophy
//
// StreamKit models a stream as a cold, single-consumer sequence of events
// pushed by a producer. Nothing happens until a consumer subscribes; the
// consumer can pause, resume and cancel; the producer can emit values,
// report failures and close exactly once. Everything else in the module is
// built from that contract.
//
// The packages:
//
//   - stream: the core primitive (Stream, Controller, Subscription), the
//     Retry combinator, Throttle, and the simple sources (Just, FromSlice,
//     FromError)
//   - natsource: NATS subject and JetStream consumer sources
//   - websource: WebSocket frame sources
//   - errors: error classification (transient, invalid, fatal) shared by
//     sources and retry policies
//   - metric: Prometheus registry and exposition endpoint
//   - pkg/retry: backoff for point operations (dial, subscribe), as opposed
//     to stream.Retry which restarts whole streams
//
// # Retry
//
// The central combinator restarts a failing stream from a factory,
// carrying every failure in an append-only ledger. When the budget is
// exhausted the consumer receives one aggregated error describing the
// configured budget and every recorded failure, then completion:
//
//	out := stream.Retry(natsource.Factory(nc, "sensors.>"),
//	    stream.WithMaxRetries(5),
//	    stream.WithRetryIf(stream.RetryIfTransient))
//
//	sub, err := out.Subscribe(stream.Handlers[*nats.Msg]{
//	    OnData: func(m *nats.Msg) { process(m) },
//	    OnError: func(f stream.Failure) {
//	        var exhausted *stream.ExhaustedError
//	        if errors.As(f.Err, &exhausted) {
//	            log.Printf("gave up after %d failures", len(exhausted.Failures))
//	        }
//	    },
//	})
//
// Pause, resume and cancel on the subscription follow the live attempt,
// including attempts created after the consumer paused.
//
// # Design Principles
//
// Composition over configuration:
//   - Sources are plain streams; combinators take streams and factories
//   - Behavior is set with functional options, not config files
//
// Testability:
//   - Explicit dependencies (no globals)
//   - Delivery is synchronous on the producer goroutine, so tests assert
//     ordering without sleeps
//
// Failure transparency:
//   - Failures carry the originating stack and timestamp
//   - Retry never discards a failure; the ledger survives into the
//     aggregated terminal error
package streamkit
