package natsource

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/metric"
	"github.com/c360/streamkit/pkg/retry"
	"github.com/c360/streamkit/stream"
)

// Factory returns a stream factory producing a fresh subject
// subscription per invocation, suitable for stream.Retry.
func Factory(nc *nats.Conn, subject string, opts ...Option) stream.Factory[*nats.Msg] {
	return func() (*stream.Stream[*nats.Msg], error) {
		return Subject(nc, subject, opts...), nil
	}
}

// Subject returns a cold stream of messages published on subject. The
// subscription is established when a consumer subscribes and torn down
// when it cancels. A lost connection fails the stream with a transient
// error.
func Subject(nc *nats.Conn, subject string, opts ...Option) *stream.Stream[*nats.Msg] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &source{
		nc:      nc,
		subject: subject,
		opts:    o,
		id:      uuid.NewString(),
		done:    make(chan struct{}),
		gate:    newGate(),
	}
	if o.registry != nil {
		s.metrics = newSourceMetrics(o.registry, o.prefix)
	}
	s.ctrl = stream.NewController[*nats.Msg](
		stream.OnListen(s.listen),
		stream.OnPause(s.gate.pause),
		stream.OnResume(s.gate.resume),
		stream.OnCancel(s.cancel),
	)
	return s.ctrl.Stream()
}

type source struct {
	nc      *nats.Conn
	subject string
	opts    options
	id      string
	ctrl    *stream.Controller[*nats.Msg]
	metrics *sourceMetrics
	gate    *gate

	mu       sync.Mutex
	sub      *nats.Subscription
	done     chan struct{}
	teardown sync.Once
}

func (s *source) listen() {
	if s.nc == nil || s.nc.IsClosed() {
		s.ctrl.Fail(errors.WrapTransient(errors.ErrNoConnection, "Subject", "listen", "check connection"))
		s.ctrl.Close()
		return
	}

	msgs := make(chan *nats.Msg, s.opts.buffer)
	sub, err := retry.DoWithResult(context.Background(), s.opts.subscribeRetry, func() (*nats.Subscription, error) {
		return s.nc.ChanSubscribe(s.subject, msgs)
	})
	if err != nil {
		s.ctrl.Fail(errors.WrapTransient(err, "Subject", "listen", "subscribe"))
		s.ctrl.Close()
		return
	}

	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	if s.opts.logger != nil {
		s.opts.logger.Info("nats source subscribed",
			"source", s.id, "subject", s.subject)
	}

	status := s.nc.StatusChanged(nats.CLOSED)
	go s.pump(msgs, status)
}

// pump delivers messages until the subscription is cancelled, the
// message channel closes, or the connection is lost.
func (s *source) pump(msgs chan *nats.Msg, status chan nats.Status) {
	for {
		select {
		case <-s.done:
			return
		case <-status:
			if s.metrics != nil {
				s.metrics.connectionLosses.Inc()
			}
			if s.opts.logger != nil {
				s.opts.logger.Warn("nats source lost connection",
					"source", s.id, "subject", s.subject)
			}
			s.ctrl.Fail(errors.WrapTransient(errors.ErrConnectionLost, "Subject", "pump", "receive"))
			s.ctrl.Close()
			s.cancel()
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			if !s.gate.wait() {
				return
			}
			if s.metrics != nil {
				s.metrics.received.Inc()
			}
			s.ctrl.Emit(m)
		}
	}
}

// cancel releases the subject subscription. Reached from the consumer's
// Cancel and from the pump's own failure path; runs at most once.
func (s *source) cancel() {
	s.teardown.Do(func() {
		s.mu.Lock()
		sub := s.sub
		s.sub = nil
		s.mu.Unlock()

		if sub != nil {
			if err := sub.Unsubscribe(); err != nil && s.opts.logger != nil {
				s.opts.logger.Warn("nats source unsubscribe failed",
					"source", s.id, "subject", s.subject, "error", err)
			}
		}
		s.gate.release()
		close(s.done)
	})
}

// gate blocks the pump while the consumer is paused
type gate struct {
	mu       sync.Mutex
	cond     *sync.Cond
	paused   bool
	released bool
}

func newGate() *gate {
	g := &gate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

func (g *gate) pause() {
	g.mu.Lock()
	g.paused = true
	g.mu.Unlock()
}

func (g *gate) resume() {
	g.mu.Lock()
	g.paused = false
	g.cond.Broadcast()
	g.mu.Unlock()
}

func (g *gate) release() {
	g.mu.Lock()
	g.released = true
	g.cond.Broadcast()
	g.mu.Unlock()
}

// wait blocks while paused. Returns false once the gate is released.
func (g *gate) wait() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.paused && !g.released {
		g.cond.Wait()
	}
	return !g.released
}

// sourceMetrics holds Prometheus counters for source observability
type sourceMetrics struct {
	received         prometheus.Counter
	connectionLosses prometheus.Counter
}

func newSourceMetrics(registry *metric.Registry, prefix string) *sourceMetrics {
	m := &sourceMetrics{
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_messages_total",
			Help: "Total messages delivered by the source",
		}),
		connectionLosses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_connection_losses_total",
			Help: "Total connection losses observed by the source",
		}),
	}

	serviceName := "nats_source"
	registry.RegisterCounter(serviceName, prefix+"_messages_total", m.received)
	registry.RegisterCounter(serviceName, prefix+"_connection_losses_total", m.connectionLosses)

	return m
}
