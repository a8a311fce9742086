// Package metric provides Prometheus metrics registration and serving for StreamKit.
//
// # Overview
//
// The package wraps a dedicated Prometheus registry with typed registration
// helpers and duplicate detection. Components register their metrics under a
// service name so collisions are caught at registration time rather than at
// scrape time.
//
// # Usage
//
// Create a registry and register component metrics:
//
//	registry := metric.NewRegistry()
//
//	attempts := prometheus.NewCounter(prometheus.CounterOpts{
//	    Name: "source_attempts_total",
//	    Help: "Total connection attempts",
//	})
//	if err := registry.RegisterCounter("nats_source", "source_attempts_total", attempts); err != nil {
//	    return err
//	}
//
// Expose the registry for scraping:
//
//	server := metric.NewServer(9090, "/metrics", registry)
//	if err := server.Start(); err != nil {
//	    return err
//	}
//	defer server.Stop(ctx)
//
// The stream retry combinator and the transport sources accept a *Registry
// through their WithMetrics options and register their own counters.
//
// # Thread Safety
//
// All registration operations are safe for concurrent use.
package metric
