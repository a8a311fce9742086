package natsource

import (
	"log/slog"

	"github.com/c360/streamkit/metric"
	"github.com/c360/streamkit/pkg/retry"
)

// Option is a functional option for configuring a source
type Option func(*options)

type options struct {
	buffer         int
	logger         *slog.Logger
	registry       *metric.Registry
	prefix         string
	subscribeRetry retry.Config
}

func defaultOptions() options {
	return options{
		buffer:         1024,
		subscribeRetry: retry.Quick(),
	}
}

// WithBuffer sets the capacity of the subscription's message channel.
// NATS drops messages beyond this capacity while the consumer is slow
// or paused.
func WithBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// WithLogger sets a structured logger for the source. Silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics registers source counters with the framework's registry
func WithMetrics(registry *metric.Registry, prefix string) Option {
	return func(o *options) {
		if registry != nil && prefix != "" {
			o.registry = registry
			o.prefix = prefix
		}
	}
}

// WithSubscribeRetry sets the backoff configuration used when
// establishing the subject subscription.
func WithSubscribeRetry(cfg retry.Config) Option {
	return func(o *options) { o.subscribeRetry = cfg }
}
