package natsource

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/pkg/retry"
	"github.com/c360/streamkit/stream"
)

// ConsumerFactory returns a stream factory producing a fresh JetStream
// consumer per invocation, suitable for stream.Retry.
func ConsumerFactory(js jetstream.JetStream, streamName, subject string, opts ...Option) stream.Factory[jetstream.Msg] {
	return func() (*stream.Stream[jetstream.Msg], error) {
		return Consumer(js, streamName, subject, opts...), nil
	}
}

// Consumer returns a cold stream of JetStream messages from the named
// stream, filtered by subject. The consumer is created when a listener
// subscribes and stopped when it cancels. Messages are acknowledged
// after delivery, so a paused listener holds back acks as well.
func Consumer(js jetstream.JetStream, streamName, subject string, opts ...Option) *stream.Stream[jetstream.Msg] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &jsSource{
		js:         js,
		streamName: streamName,
		subject:    subject,
		opts:       o,
		id:         uuid.NewString(),
		gate:       newGate(),
	}
	if o.registry != nil {
		s.metrics = newSourceMetrics(o.registry, o.prefix)
	}
	s.ctrl = stream.NewController[jetstream.Msg](
		stream.OnListen(s.listen),
		stream.OnPause(s.gate.pause),
		stream.OnResume(s.gate.resume),
		stream.OnCancel(s.cancel),
	)
	return s.ctrl.Stream()
}

type jsSource struct {
	js         jetstream.JetStream
	streamName string
	subject    string
	opts       options
	id         string
	ctrl       *stream.Controller[jetstream.Msg]
	metrics    *sourceMetrics
	gate       *gate

	mu       sync.Mutex
	cc       jetstream.ConsumeContext
	teardown sync.Once
}

func (s *jsSource) listen() {
	if s.js == nil {
		s.ctrl.Fail(errors.WrapTransient(errors.ErrNoConnection, "Consumer", "listen", "check connection"))
		s.ctrl.Close()
		return
	}

	cons, err := retry.DoWithResult(context.Background(), s.opts.subscribeRetry, func() (jetstream.Consumer, error) {
		return s.js.CreateOrUpdateConsumer(context.Background(), s.streamName, jetstream.ConsumerConfig{
			FilterSubject: s.subject,
		})
	})
	if err != nil {
		s.ctrl.Fail(errors.WrapTransient(err, "Consumer", "listen", "create consumer"))
		s.ctrl.Close()
		return
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		if !s.gate.wait() {
			return
		}
		if s.metrics != nil {
			s.metrics.received.Inc()
		}
		s.ctrl.Emit(msg)
		if err := msg.Ack(); err != nil && s.opts.logger != nil {
			s.opts.logger.Warn("jetstream source ack failed",
				"source", s.id, "stream", s.streamName, "subject", s.subject, "error", err)
		}
	})
	if err != nil {
		s.ctrl.Fail(errors.WrapTransient(err, "Consumer", "listen", "start consume"))
		s.ctrl.Close()
		return
	}

	s.mu.Lock()
	s.cc = cc
	s.mu.Unlock()

	if s.opts.logger != nil {
		s.opts.logger.Info("jetstream source consuming",
			"source", s.id, "stream", s.streamName, "subject", s.subject)
	}
}

// cancel stops the consume context. Runs at most once.
func (s *jsSource) cancel() {
	s.teardown.Do(func() {
		s.mu.Lock()
		cc := s.cc
		s.cc = nil
		s.mu.Unlock()

		if cc != nil {
			cc.Stop()
		}
		s.gate.release()
	})
}
