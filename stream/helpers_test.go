package stream

import "sync"

// recorder collects every event a subscription delivers.
type recorder[T any] struct {
	mu        sync.Mutex
	data      []T
	failures  []Failure
	completed int
}

func (r *recorder[T]) handlers() Handlers[T] {
	return Handlers[T]{
		OnData: func(v T) {
			r.mu.Lock()
			r.data = append(r.data, v)
			r.mu.Unlock()
		},
		OnError: func(f Failure) {
			r.mu.Lock()
			r.failures = append(r.failures, f)
			r.mu.Unlock()
		},
		OnComplete: func() {
			r.mu.Lock()
			r.completed++
			r.mu.Unlock()
		},
	}
}

func (r *recorder[T]) Data() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.data...)
}

func (r *recorder[T]) Failures() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Failure(nil), r.failures...)
}

func (r *recorder[T]) Completed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

// manualSource is a controller-backed stream whose lifecycle hook
// invocations are recorded, used to observe how combinators drive the
// attempts they subscribe to.
type manualSource[T any] struct {
	ctrl *Controller[T]

	mu       sync.Mutex
	listens  int
	pauses   int
	resumes  int
	cancels  int
	sequence *[]string
	label    string
}

func newManualSource[T any](label string, sequence *[]string) *manualSource[T] {
	m := &manualSource[T]{sequence: sequence, label: label}
	m.ctrl = NewController[T](
		OnListen(func() { m.record("listen", &m.listens) }),
		OnPause(func() { m.record("pause", &m.pauses) }),
		OnResume(func() { m.record("resume", &m.resumes) }),
		OnCancel(func() { m.record("cancel", &m.cancels) }),
	)
	return m
}

func (m *manualSource[T]) record(event string, counter *int) {
	m.mu.Lock()
	*counter++
	if m.sequence != nil {
		*m.sequence = append(*m.sequence, m.label+":"+event)
	}
	m.mu.Unlock()
}

func (m *manualSource[T]) counts() (listens, pauses, resumes, cancels int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listens, m.pauses, m.resumes, m.cancels
}
