package stream

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	skerrors "github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/metric"
)

// Factory produces a fresh stream for each retry attempt. It must not
// depend on state left over from a previous invocation. An error return
// is treated as a failed attempt: it is recorded and consumes retry
// budget like a stream failure.
type Factory[T any] func() (*Stream[T], error)

// RetryOption configures the Retry combinator.
type RetryOption func(*retryOptions)

type retryOptions struct {
	maxRetries int
	bounded    bool
	retryIf    func(Failure) bool
	logger     *slog.Logger
	registry   *metric.Registry
	prefix     string
}

// WithMaxRetries bounds the number of retries after the first attempt.
// Zero means the first failure is immediately terminal. Without this
// option the stream retries indefinitely.
func WithMaxRetries(n int) RetryOption {
	return func(o *retryOptions) {
		if n < 0 {
			n = 0
		}
		o.maxRetries = n
		o.bounded = true
	}
}

// WithRetryIf gates the retry decision per failure. A failure the
// predicate rejects is terminal immediately: the consumer receives the
// aggregated error built from the ledger so far. The default retries
// every failure.
func WithRetryIf(fn func(Failure) bool) RetryOption {
	return func(o *retryOptions) { o.retryIf = fn }
}

// WithLogger enables structured logging of recorded failures.
func WithLogger(logger *slog.Logger) RetryOption {
	return func(o *retryOptions) { o.logger = logger }
}

// WithMetrics registers retry counters with the framework's registry.
func WithMetrics(registry *metric.Registry, prefix string) RetryOption {
	return func(o *retryOptions) {
		if registry != nil && prefix != "" {
			o.registry = registry
			o.prefix = prefix
		}
	}
}

// RetryIfTransient is a WithRetryIf predicate that retries only
// failures classified as transient.
func RetryIfTransient(f Failure) bool {
	return skerrors.IsTransient(f.Err)
}

// ExhaustedError is the single terminal error delivered when the retry
// budget is exhausted. It carries the configured budget and the full
// ordered list of per-attempt failures.
type ExhaustedError struct {
	// Retries is the configured retry budget, or -1 when unbounded.
	Retries int
	// Failures holds one record per failed attempt, oldest first.
	Failures []Failure
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	if e.Retries < 0 {
		return fmt.Sprintf("stream retry halted after %d failed attempts", len(e.Failures))
	}
	return fmt.Sprintf("stream retry budget of %d exhausted after %d failed attempts", e.Retries, len(e.Failures))
}

// Unwrap exposes the per-attempt errors for errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Retry returns a stream that subscribes to a fresh stream from factory
// and forwards its events to the consumer. When an attempt fails, the
// failed subscription is cancelled, the failure is recorded, and a new
// attempt starts immediately, until an attempt completes or the retry
// budget is exhausted. The consumer then sees either a clean completion
// or exactly one *ExhaustedError followed by close.
//
// Pause, resume and cancel on the returned stream are forwarded to
// whichever attempt is active at the moment of the call.
func Retry[T any](factory Factory[T], opts ...RetryOption) *Stream[T] {
	if factory == nil {
		return FromError[T](ErrNilFactory)
	}

	o := retryOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	r := &retryState[T]{factory: factory, opts: o}
	if o.registry != nil {
		r.metrics = newRetryMetrics(o.registry, o.prefix)
	}
	r.out = NewController[T](
		OnListen(r.start),
		OnPause(r.pause),
		OnResume(r.resume),
		OnCancel(r.cancel),
	)
	return r.out.Stream()
}

// retryState is the single state record shared by the lifecycle hooks
// and the attempt runner. One mutex guards the whole record.
type retryState[T any] struct {
	factory Factory[T]
	opts    retryOptions
	out     *Controller[T]
	metrics *retryMetrics

	mu       sync.Mutex
	active   *Subscription // current attempt's subscription, nil between attempts
	failures []Failure     // append-only failure ledger
	step     int           // retries consumed so far
	curID    uint64        // id of the current attempt
	dead     uint64        // id of the attempt that already failed, if any
	paused   bool
	done     bool // terminal state reached or consumer cancelled
	pending  bool // a new attempt should be started
	looping  bool // attempt loop is on the stack
}

func (r *retryState[T]) start() {
	r.mu.Lock()
	r.pending = true
	r.mu.Unlock()
	r.run()
}

func (r *retryState[T]) pause() {
	r.mu.Lock()
	r.paused = true
	active := r.active
	r.mu.Unlock()

	if active != nil {
		active.Pause()
	}
}

func (r *retryState[T]) resume() {
	r.mu.Lock()
	r.paused = false
	active := r.active
	r.mu.Unlock()

	if active != nil {
		active.Resume()
	}
}

func (r *retryState[T]) cancel() {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.done = true
	active := r.active
	r.active = nil
	r.mu.Unlock()

	if active != nil {
		active.Cancel()
	}
}

// run drives the attempt loop. It is a trampoline: failure callbacks
// arriving while the loop is already on the stack only mark an attempt
// as pending, so back-to-back synchronous failures cannot grow the
// call stack.
func (r *retryState[T]) run() {
	r.mu.Lock()
	if r.looping {
		r.mu.Unlock()
		return
	}
	r.looping = true
	for r.pending && !r.done {
		r.pending = false
		r.curID++
		id := r.curID
		paused := r.paused
		r.mu.Unlock()

		if r.metrics != nil {
			r.metrics.attempts.Inc()
		}
		sub, err := r.subscribeAttempt(id)
		if err != nil {
			r.onFailure(id, NewFailure(err))
			r.mu.Lock()
			continue
		}

		r.mu.Lock()
		if r.done || id == r.dead {
			// The attempt failed synchronously during subscribe, or the
			// consumer cancelled. Release the handle now that we have it.
			r.mu.Unlock()
			sub.Cancel()
			r.mu.Lock()
			continue
		}
		r.active = sub
		if paused || r.paused {
			// Carry the consumer's pause request over to the new attempt.
			r.mu.Unlock()
			sub.Pause()
			r.mu.Lock()
		}
	}
	r.looping = false
	r.mu.Unlock()
}

func (r *retryState[T]) subscribeAttempt(id uint64) (*Subscription, error) {
	src, err := r.factory()
	if err != nil {
		return nil, fmt.Errorf("stream factory: %w", err)
	}
	if src == nil {
		return nil, ErrNilStream
	}
	return src.Subscribe(Handlers[T]{
		OnData:     func(v T) { r.onData(id, v) },
		OnError:    func(f Failure) { r.onFailure(id, f) },
		OnComplete: func() { r.onComplete(id) },
	}, CancelOnError(false))
}

func (r *retryState[T]) onData(id uint64, v T) {
	r.mu.Lock()
	if r.done || id != r.curID || id == r.dead {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	r.out.Emit(v)
}

func (r *retryState[T]) onFailure(id uint64, f Failure) {
	r.mu.Lock()
	if r.done || id != r.curID || id == r.dead {
		r.mu.Unlock()
		return
	}
	r.dead = id
	active := r.active
	r.active = nil
	r.mu.Unlock()

	// Release the failed attempt before anything else. On a synchronous
	// failure the subscription handle does not exist yet; the attempt
	// loop cancels it as soon as subscribe returns.
	if active != nil {
		active.Cancel()
	}
	if r.metrics != nil {
		r.metrics.failures.Inc()
	}

	retriable := r.opts.retryIf == nil || r.opts.retryIf(f)

	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.failures = append(r.failures, f)
	recorded := len(r.failures)
	exhausted := !retriable || (r.opts.bounded && r.step == r.opts.maxRetries)
	if exhausted {
		r.done = true
		budget := -1
		if r.opts.bounded {
			budget = r.opts.maxRetries
		}
		agg := &ExhaustedError{
			Retries:  budget,
			Failures: append([]Failure(nil), r.failures...),
		}
		r.mu.Unlock()

		if r.metrics != nil {
			r.metrics.exhausted.Inc()
		}
		if r.opts.logger != nil {
			r.opts.logger.Error("stream retry exhausted",
				"failures", recorded, "retriable", retriable, "error", f.Err)
		}
		r.out.Fail(agg)
		r.out.Close()
		return
	}
	r.step++
	r.pending = true
	r.mu.Unlock()

	if r.opts.logger != nil {
		r.opts.logger.Warn("stream attempt failed, retrying",
			"failures", recorded, "error", f.Err)
	}
	r.run()
}

func (r *retryState[T]) onComplete(id uint64) {
	r.mu.Lock()
	if r.done || id != r.curID || id == r.dead {
		r.mu.Unlock()
		return
	}
	r.done = true
	r.active = nil
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.completed.Inc()
	}
	r.out.Close()
}

// retryMetrics holds Prometheus counters for retry observability
type retryMetrics struct {
	attempts  prometheus.Counter
	failures  prometheus.Counter
	exhausted prometheus.Counter
	completed prometheus.Counter
}

func newRetryMetrics(registry *metric.Registry, prefix string) *retryMetrics {
	m := &retryMetrics{
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_attempts_total",
			Help: "Total stream attempts started",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_failures_total",
			Help: "Total attempt failures recorded",
		}),
		exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_exhausted_total",
			Help: "Total retry budget exhaustions",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_completed_total",
			Help: "Total streams that completed successfully",
		}),
	}

	serviceName := "stream_retry"
	registry.RegisterCounter(serviceName, prefix+"_attempts_total", m.attempts)
	registry.RegisterCounter(serviceName, prefix+"_failures_total", m.failures)
	registry.RegisterCounter(serviceName, prefix+"_exhausted_total", m.exhausted)
	registry.RegisterCounter(serviceName, prefix+"_completed_total", m.completed)

	return m
}
