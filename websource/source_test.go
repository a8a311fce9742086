package websource

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	skerrors "github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/pkg/retry"
	"github.com/c360/streamkit/stream"
)

// recorder collects stream events for assertions.
type recorder struct {
	mu        sync.Mutex
	data      []Message
	failures  []stream.Failure
	completed chan struct{}
}

func newRecorder() *recorder {
	return &recorder{completed: make(chan struct{})}
}

func (r *recorder) handlers() stream.Handlers[Message] {
	return stream.Handlers[Message]{
		OnData: func(m Message) {
			r.mu.Lock()
			r.data = append(r.data, m)
			r.mu.Unlock()
		},
		OnError: func(f stream.Failure) {
			r.mu.Lock()
			r.failures = append(r.failures, f)
			r.mu.Unlock()
		},
		OnComplete: func() { close(r.completed) },
	}
}

func (r *recorder) Data() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.data...)
}

func (r *recorder) Failures() []stream.Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stream.Failure(nil), r.failures...)
}

func (r *recorder) waitComplete(t *testing.T) {
	t.Helper()
	select {
	case <-r.completed:
	case <-time.After(3 * time.Second):
		t.Fatal("stream did not complete")
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

var testUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func TestDial_DeliversFramesUntilNormalClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("Upgrade error: %v", err)
			return
		}
		defer conn.Close()

		for _, msg := range []string{"alpha", "beta", "gamma"} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	rec := newRecorder()
	_, err := Dial(wsURL(server)).Subscribe(rec.handlers())
	require.NoError(t, err)

	rec.waitComplete(t)

	data := rec.Data()
	require.Len(t, data, 3)
	assert.Equal(t, "alpha", string(data[0].Data))
	assert.Equal(t, "beta", string(data[1].Data))
	assert.Equal(t, "gamma", string(data[2].Data))
	assert.Equal(t, websocket.TextMessage, data[0].Type)
	assert.Empty(t, rec.Failures())
}

func TestDial_AbnormalDisconnectFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Drop the connection without a close handshake.
		conn.Close()
	}))
	defer server.Close()

	rec := newRecorder()
	_, err := Dial(wsURL(server)).Subscribe(rec.handlers(), stream.CancelOnError(false))
	require.NoError(t, err)

	rec.waitComplete(t)

	failures := rec.Failures()
	require.Len(t, failures, 1)
	assert.True(t, skerrors.IsTransient(failures[0].Err))
	assert.NotEmpty(t, failures[0].Stack)
}

func TestDial_DialFailureFails(t *testing.T) {
	cfg := retry.Config{
		MaxAttempts:  1,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   2,
	}

	rec := newRecorder()
	_, err := Dial("ws://127.0.0.1:1", WithDialRetry(cfg)).
		Subscribe(rec.handlers(), stream.CancelOnError(false))
	require.NoError(t, err)

	rec.waitComplete(t)

	failures := rec.Failures()
	require.Len(t, failures, 1)
	assert.True(t, skerrors.IsTransient(failures[0].Err))
	assert.Empty(t, rec.Data())
}

func TestDial_ColdUntilSubscribed(t *testing.T) {
	var upgrades atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrades.Add(1)
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		time.Sleep(50 * time.Millisecond)
	}))
	defer server.Close()

	s := Dial(wsURL(server))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), upgrades.Load())

	rec := newRecorder()
	_, err := s.Subscribe(rec.handlers())
	require.NoError(t, err)

	rec.waitComplete(t)
	assert.Equal(t, int32(1), upgrades.Load())
}

func TestDial_PauseGatesDelivery(t *testing.T) {
	sendFrames := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		<-sendFrames
		conn.WriteMessage(websocket.TextMessage, []byte("one"))
		conn.WriteMessage(websocket.TextMessage, []byte("two"))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	rec := newRecorder()
	sub, err := Dial(wsURL(server)).Subscribe(rec.handlers())
	require.NoError(t, err)

	// The first frame may already be in flight when pause lands, so it
	// is still delivered; the read of the second frame is gated.
	sub.Pause()
	close(sendFrames)

	time.Sleep(200 * time.Millisecond)
	assert.LessOrEqual(t, len(rec.Data()), 1)

	sub.Resume()
	rec.waitComplete(t)

	data := rec.Data()
	require.Len(t, data, 2)
	assert.Equal(t, "one", string(data[0].Data))
	assert.Equal(t, "two", string(data[1].Data))
}

func TestDial_CancelClosesConnection(t *testing.T) {
	serverSawClose := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Block reading until the client side goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(serverSawClose)
				return
			}
		}
	}))
	defer server.Close()

	rec := newRecorder()
	sub, err := Dial(wsURL(server)).Subscribe(rec.handlers())
	require.NoError(t, err)

	sub.Cancel()

	select {
	case <-serverSawClose:
	case <-time.After(3 * time.Second):
		t.Fatal("server never observed the connection closing")
	}
	assert.Empty(t, rec.Failures())
}

func TestRetry_ReconnectsAfterDrop(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if attempts.Add(1) == 1 {
			// First connection drops without a close handshake.
			conn.Close()
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	s := stream.Retry(Factory(wsURL(server)), stream.WithMaxRetries(3))

	rec := newRecorder()
	_, err := s.Subscribe(rec.handlers())
	require.NoError(t, err)

	rec.waitComplete(t)

	data := rec.Data()
	require.Len(t, data, 1)
	assert.Equal(t, "hello", string(data[0].Data))
	assert.Empty(t, rec.Failures())
	assert.Equal(t, int32(2), attempts.Load())
}

func TestOptions_Defaults(t *testing.T) {
	o := defaultOptions()
	assert.Same(t, websocket.DefaultDialer, o.dialer)
	assert.Equal(t, 30*time.Second, o.pingInterval)
	assert.Equal(t, 60*time.Second, o.pongWait)
	assert.Equal(t, retry.Quick(), o.dialRetry)
}

func TestOptions_RejectInvalid(t *testing.T) {
	o := defaultOptions()
	WithDialer(nil)(&o)
	assert.Same(t, websocket.DefaultDialer, o.dialer)
	WithKeepalive(0, -time.Second)(&o)
	assert.Equal(t, 30*time.Second, o.pingInterval)
	assert.Equal(t, 60*time.Second, o.pongWait)
}
