// Package websource provides a WebSocket client stream source for StreamKit.
//
// # Overview
//
// A source dials a WebSocket endpoint when a consumer subscribes and turns
// the incoming frames into a cold stream.Stream of Message. Cancelling the
// subscription closes the connection; pause and resume gate frame reads,
// letting TCP flow control push back on the sender.
//
// # Usage
//
//	src := websource.Dial("wss://hub.example.com/ingest")
//	sub, err := src.Subscribe(stream.Handlers[websource.Message]{
//	    OnData: func(m websource.Message) { process(m.Data) },
//	})
//
// Read failures and abnormal closures fail the stream with a transient
// error; a normal close frame completes it. Paired with the retry
// combinator this yields a reconnecting client:
//
//	out := stream.Retry(websource.Factory("wss://hub.example.com/ingest"),
//	    stream.WithMaxRetries(5))
//
// Each attempt dials a fresh connection.
package websource
