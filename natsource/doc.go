// Package natsource provides NATS-backed stream sources for StreamKit.
//
// # Overview
//
// A source turns a NATS subject subscription into a cold stream.Stream of
// *nats.Msg. Subscribing to the stream subscribes to the subject; cancelling
// unsubscribes; pause and resume gate message delivery without dropping.
//
// # Usage
//
//	src := natsource.Subject(nc, "sensors.>")
//	sub, err := src.Subscribe(stream.Handlers[*nats.Msg]{
//	    OnData: func(m *nats.Msg) { process(m) },
//	})
//
// A connection loss fails the stream with a transient error, which makes
// sources compose naturally with the stream retry combinator:
//
//	out := stream.Retry(natsource.Factory(nc, "sensors.>"),
//	    stream.WithRetryIf(stream.RetryIfTransient))
//
// Each retry attempt re-subscribes to the subject on the (reconnecting)
// connection.
//
// # JetStream
//
// Consumer builds a stream over a durable JetStream consumer instead of a
// core subject subscription. Messages are acknowledged after delivery, so
// frames lost to a crashed consumer are redelivered:
//
//	src := natsource.Consumer(js, "SENSORS", "sensors.>")
//
// ConsumerFactory is the retry-composable variant.
//
// # Delivery
//
// Messages are pumped from a buffered channel subscription to the consumer
// on a dedicated goroutine. While paused the pump blocks; NATS buffers up to
// the channel capacity and drops beyond it, matching core NATS semantics.
package natsource
