// Package retry provides simple exponential backoff retry logic for blocking operations.
//
// # Overview
//
// This package offers a minimal retry mechanism with exponential backoff for
// transient failures in connection establishment and resource initialization.
// It is the blocking counterpart of the stream package's Retry combinator:
// use this for one-shot operations that return an error, use stream.Retry
// for push sequences that must be re-subscribed.
//
// # Core Functions
//
//   - Do: Execute function with retry and exponential backoff
//   - DoWithResult: Execute function with retry, returns both result and error
//
// # Configuration Presets
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay (normal operations)
//   - Quick(): 10 attempts, 50ms-1s delay (connection startup)
//
// # Usage Examples
//
// Basic retry with defaults:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return client.Connect()
//	})
//
// Retry with result:
//
//	sub, err := retry.DoWithResult(ctx, retry.Quick(), func() (*nats.Subscription, error) {
//	    return nc.ChanSubscribe(subject, msgs)
//	})
//
// Marking an error as terminal:
//
//	if badCredentials {
//	    return retry.NonRetryable(err)
//	}
//
// # Context Cancellation
//
// All retry operations respect context cancellation and stop immediately when
// the context is cancelled, either during the operation or during backoff.
//
// # Design Philosophy
//
// Intentionally minimal: no circuit breakers, no metrics collection, no error
// classification. Callers decide what to retry; see the errors package for
// classification helpers.
package retry
