package cloud

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nexensys/scratch3-api/internal/retry"
	"github.com/nexensys/scratch3-api/internal/transport"
)

const waitFor = 2 * time.Second

var errBrokenPipe = errors.New("broken pipe")

// fakeConn is an in-memory transport.Conn.  Tests feed inbound messages
// through in and inspect what the session wrote.
type fakeConn struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once
	// hangup makes every read fail at once, as if the server closed
	// the socket right after the handshake.
	hangup bool

	mu         sync.Mutex
	writes     []string
	failWrites bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	if c.hangup {
		return nil, io.EOF
	}
	select {
	case m := <-c.in:
		return m, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
		return errBrokenPipe
	default:
	}
	if c.failWrites {
		return errBrokenPipe
	}
	c.writes = append(c.writes, string(data))
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) Written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes...)
}

func (c *fakeConn) FailWrites() {
	c.mu.Lock()
	c.failWrites = true
	c.mu.Unlock()
}

func (c *fakeConn) Send(msg string) { c.in <- []byte(msg) }

// fakeConnector hands out fakeConns, or fails, or blocks on gate.
type fakeConnector struct {
	conns chan *fakeConn

	mu      sync.Mutex
	fail    error
	gate    chan struct{}
	hangup  bool
	dials   int
	headers []http.Header
	urls    []string
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{conns: make(chan *fakeConn, 16)}
}

func (f *fakeConnector) Connect(ctx context.Context, url string, header http.Header) (transport.Conn, error) {
	f.mu.Lock()
	f.dials++
	f.headers = append(f.headers, header)
	f.urls = append(f.urls, url)
	fail, gate, hangup := f.fail, f.gate, f.hangup
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		return nil, fail
	}
	c := newFakeConn()
	c.hangup = hangup
	select {
	case f.conns <- c:
	default:
	}
	return c, nil
}

// SetHangup makes every new connection drop right after the handshake.
func (f *fakeConnector) SetHangup(on bool) {
	f.mu.Lock()
	f.hangup = on
	f.mu.Unlock()
}

func (f *fakeConnector) SetFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

func (f *fakeConnector) SetGate(g chan struct{}) {
	f.mu.Lock()
	f.gate = g
	f.mu.Unlock()
}

func (f *fakeConnector) Dials() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

func (f *fakeConnector) next(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-f.conns:
		return c
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for a connection")
		return nil
	}
}

// recorder is a Handler that reports every event as a string.
type recorder struct {
	events chan string
	errs   chan error
}

func newRecorder() *recorder {
	return &recorder{events: make(chan string, 64), errs: make(chan error, 4)}
}

func (r *recorder) OnOpen(*Session)  { r.events <- "open" }
func (r *recorder) OnReset(*Session) { r.events <- "reset" }
func (r *recorder) OnSet(_ *Session, name, value string) {
	r.events <- "set " + name + "=" + value
}
func (r *recorder) OnAddVariable(_ *Session, name, value string) {
	r.events <- "add " + name + "=" + value
}
func (r *recorder) OnDisconnect(_ *Session, err error) {
	r.events <- "disconnect"
	r.errs <- err
}

func (r *recorder) next(t *testing.T) string {
	t.Helper()
	select {
	case e := <-r.events:
		return e
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for an event")
		return ""
	}
}

func (r *recorder) expect(t *testing.T, want ...string) {
	t.Helper()
	for _, w := range want {
		if got := r.next(t); got != w {
			t.Fatalf("event = %q, want %q", got, w)
		}
	}
}

// quiet reports whether no event arrives within a short window.
func (r *recorder) quiet(d time.Duration) (string, bool) {
	select {
	case e := <-r.events:
		return e, false
	case <-time.After(d):
		return "", true
	}
}

func fastBackoff(attempts int) *retry.Backoff {
	return &retry.Backoff{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
		MaxAttempts:  attempts,
	}
}

func lenientBreaker() *retry.CircuitBreaker {
	return retry.NewCircuitBreaker(&retry.CircuitBreakerConfig{MaxFailures: 1000, ResetTimeout: time.Millisecond})
}

var testUser = Credentials{User: "tester", SessionID: "sid123"}

func newTestSession(t *testing.T, fc *fakeConnector, rec *recorder, opts ...Option) *Session {
	t.Helper()
	base := []Option{
		WithConnector(fc),
		WithHandler(rec),
		WithBackoff(fastBackoff(3)),
		WithCircuitBreaker(lenientBreaker()),
	}
	s, err := New(testUser, "10128407", Scratch, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.End() }) //nolint:errcheck
	return s
}

func connect(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}

func isHandshake(frame string) bool {
	return strings.Contains(frame, `"method":"handshake"`)
}
