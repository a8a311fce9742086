package websource

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/pkg/retry"
	"github.com/c360/streamkit/stream"
)

// Message is a single WebSocket frame received from the peer.
type Message struct {
	Type int
	Data []byte
}

// Option is a functional option for configuring a source
type Option func(*options)

type options struct {
	dialer       *websocket.Dialer
	header       http.Header
	pingInterval time.Duration
	pongWait     time.Duration
	dialRetry    retry.Config
	logger       *slog.Logger
}

func defaultOptions() options {
	return options{
		dialer:       websocket.DefaultDialer,
		pingInterval: 30 * time.Second,
		pongWait:     60 * time.Second,
		dialRetry:    retry.Quick(),
	}
}

// WithDialer sets a custom websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithHeader sets HTTP headers sent with the handshake, e.g. for
// bearer-token authentication.
func WithHeader(h http.Header) Option {
	return func(o *options) { o.header = h }
}

// WithKeepalive sets the ping interval and the pong deadline.
func WithKeepalive(pingInterval, pongWait time.Duration) Option {
	return func(o *options) {
		if pingInterval > 0 {
			o.pingInterval = pingInterval
		}
		if pongWait > 0 {
			o.pongWait = pongWait
		}
	}
}

// WithDialRetry sets the backoff configuration used while dialing.
func WithDialRetry(cfg retry.Config) Option {
	return func(o *options) { o.dialRetry = cfg }
}

// WithLogger sets a structured logger for the source. Silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Factory returns a stream factory that dials a fresh connection per
// invocation, suitable for stream.Retry.
func Factory(url string, opts ...Option) stream.Factory[Message] {
	return func() (*stream.Stream[Message], error) {
		return Dial(url, opts...), nil
	}
}

// Dial returns a cold stream of frames from the given WebSocket URL.
// The connection is established when a consumer subscribes and closed
// when it cancels.
func Dial(url string, opts ...Option) *stream.Stream[Message] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &source{url: url, opts: o}
	s.ctx, s.stop = context.WithCancel(context.Background())
	s.ctrl = stream.NewController[Message](
		stream.OnListen(s.listen),
		stream.OnPause(s.pause),
		stream.OnResume(s.resume),
		stream.OnCancel(s.cancel),
	)
	return s.ctrl.Stream()
}

type source struct {
	url  string
	opts options
	ctrl *stream.Controller[Message]

	ctx  context.Context
	stop context.CancelFunc

	mu     sync.Mutex
	cond   *sync.Cond
	paused bool
	conn   *websocket.Conn
}

func (s *source) listen() {
	s.cond = sync.NewCond(&s.mu)

	conn, err := retry.DoWithResult(s.ctx, s.opts.dialRetry, func() (*websocket.Conn, error) {
		c, resp, dialErr := s.opts.dialer.DialContext(s.ctx, s.url, s.opts.header)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return c, dialErr
	})
	if err != nil {
		s.ctrl.Fail(errors.WrapTransient(err, "Dial", "listen", "dial"))
		s.ctrl.Close()
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	if s.opts.logger != nil {
		s.opts.logger.Info("websocket source connected", "url", s.url)
	}

	conn.SetReadDeadline(time.Now().Add(s.opts.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.opts.pongWait))
	})

	g, ctx := errgroup.WithContext(s.ctx)
	readDone := make(chan struct{})
	g.Go(func() error {
		defer close(readDone)
		return s.readPump(conn)
	})
	g.Go(func() error { return s.pingLoop(ctx, conn, readDone) })

	go func() {
		err := g.Wait()
		conn.Close()
		if s.ctx.Err() != nil {
			// Consumer cancelled; the controller drops events anyway.
			return
		}
		if err != nil {
			if s.opts.logger != nil {
				s.opts.logger.Warn("websocket source read failed", "url", s.url, "error", err)
			}
			s.ctrl.Fail(err)
		}
		s.ctrl.Close()
	}()
}

// readPump reads frames until the connection fails or closes. A normal
// close frame returns nil, completing the stream.
func (s *source) readPump(conn *websocket.Conn) error {
	for {
		if !s.wait() {
			return nil
		}
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return errors.WrapTransient(err, "Dial", "readPump", "read frame")
		}
		s.ctrl.Emit(Message{Type: msgType, Data: data})
	}
}

func (s *source) pingLoop(ctx context.Context, conn *websocket.Conn, readDone <-chan struct{}) error {
	ticker := time.NewTicker(s.opts.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-readDone:
			return nil
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return errors.WrapTransient(err, "Dial", "pingLoop", "write ping")
			}
		}
	}
}

func (s *source) pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

func (s *source) resume() {
	s.mu.Lock()
	s.paused = false
	if s.cond != nil {
		s.cond.Broadcast()
	}
	s.mu.Unlock()
}

func (s *source) cancel() {
	s.stop()
	s.mu.Lock()
	conn := s.conn
	s.paused = false
	if s.cond != nil {
		s.cond.Broadcast()
	}
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// wait blocks while paused. Returns false once the source is cancelled.
func (s *source) wait() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.paused && s.ctx.Err() == nil {
		s.cond.Wait()
	}
	return s.ctx.Err() == nil
}
