// Package cloud keeps a set of cloud variables in sync with a cloud data
// server over a WebSocket.
//
// A Session reads and writes variables by name.  Writes are visible to
// Get at once and are sent as soon as the connection is open; while it
// is not, they are queued and flushed, in order, right after the next
// handshake.  Lost connections are re-established with exponential
// backoff until the budget runs out or End is called.
//
//	s, err := cloud.Create(ctx, cloud.Credentials{User: "me", SessionID: sid},
//		"10128407", cloud.Scratch)
//	if err != nil {
//		return err
//	}
//	defer s.End()
//	s.Set(s.Name("score"), "10")
package cloud

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/nexensys/scratch3-api/internal/codec"
	cerr "github.com/nexensys/scratch3-api/internal/errors"
	"github.com/nexensys/scratch3-api/internal/framer"
	"github.com/nexensys/scratch3-api/internal/metrics"
	"github.com/nexensys/scratch3-api/internal/protocol"
	"github.com/nexensys/scratch3-api/internal/retry"
	"github.com/nexensys/scratch3-api/internal/session"
	"github.com/nexensys/scratch3-api/internal/store"
	"github.com/nexensys/scratch3-api/internal/transport"
	"github.com/nexensys/scratch3-api/util"
)

// Sigil prefixes the display name of every cloud variable.
const Sigil = "☁ "

// State is the connection state of a Session.
type State int

const (
	Disconnected State = iota
	Connecting
	Open
	Closing
	// Closed is terminal: the session was ended or gave up reconnecting.
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one synchronized view of a project's cloud variables.
type Session struct {
	identity         Identity
	projectID        string
	endpoint         Endpoint
	envelope         protocol.Envelope
	store            *store.Store
	framer           *framer.Framer
	handler          Handler
	logger           *util.Logger
	metrics          *metrics.Collector
	backoff          *retry.Backoff
	breaker          *retry.CircuitBreaker
	connector        transport.Connector
	handshakeTimeout time.Duration

	// mu guards everything below and serializes socket writes.
	mu       sync.Mutex
	state    State
	conn     *session.Session
	pending  [][]byte
	started  bool
	ended    bool
	opened   bool
	err      error
	cancel   context.CancelFunc
	openCh   chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

// Option configures a Session.
type Option func(*Session)

// WithHandler routes events to h.
func WithHandler(h Handler) Option {
	return func(s *Session) { s.handler = h }
}

// WithLogger sets the logger.
func WithLogger(l *util.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics records connection and frame statistics in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Session) { s.metrics = c }
}

// WithBackoff sets the reconnect policy.  MaxAttempts 0 retries until
// End is called.
func WithBackoff(b *retry.Backoff) Option {
	return func(s *Session) { s.backoff = b }
}

// WithCircuitBreaker routes dials through cb.
func WithCircuitBreaker(cb *retry.CircuitBreaker) Option {
	return func(s *Session) { s.breaker = cb }
}

// WithConnector replaces the WebSocket connector, e.g. to dial through
// an SSH tunnel or a test double.
func WithConnector(c transport.Connector) Option {
	return func(s *Session) { s.connector = c }
}

// WithExtensions adds fields to every outbound frame.  Base fields
// cannot be overridden.
func WithExtensions(ext protocol.Extensions) Option {
	return func(s *Session) { s.envelope.Ext = ext }
}

// WithHandshakeTimeout bounds each dial including the upgrade.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(s *Session) { s.handshakeTimeout = d }
}

// WithEndpoint overrides the endpoint chosen by the variant, for
// self-hosted servers.
func WithEndpoint(ep Endpoint) Option {
	return func(s *Session) { s.endpoint = ep }
}

// New returns an unconnected Session for projectID.
func New(identity Identity, projectID string, variant Variant, opts ...Option) (*Session, error) {
	if identity == nil {
		return nil, fmt.Errorf("cloud: nil identity")
	}
	if projectID == "" {
		return nil, fmt.Errorf("cloud: empty project id")
	}
	ep, err := EndpointFor(variant, identity)
	if err != nil {
		return nil, err
	}

	s := &Session{
		identity:         identity,
		projectID:        projectID,
		endpoint:         ep,
		envelope:         protocol.Envelope{User: identity.Username(), ProjectID: projectID},
		store:            store.New(),
		handshakeTimeout: 15 * time.Second,
		openCh:           make(chan struct{}),
		done:             make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}

	if s.handshakeTimeout <= 0 {
		s.handshakeTimeout = 15 * time.Second
	}
	if s.handler == nil {
		s.handler = &BaseHandler{Logger: s.logger}
	}
	if s.backoff == nil {
		s.backoff = retry.DefaultBackoff()
	}
	if s.breaker == nil {
		s.breaker = retry.NewCircuitBreaker(nil)
	}
	if s.connector == nil {
		s.connector = &transport.WebSocketConnector{HandshakeTimeout: s.handshakeTimeout}
	}
	s.framer = framer.New(s.endpoint.Framing, s.logger, s.metrics)
	return s, nil
}

// Create returns a connected Session.  It returns once the first
// handshake has been sent, or with the error that ended the first
// connection attempts.
func Create(ctx context.Context, identity Identity, projectID string, variant Variant, opts ...Option) (*Session, error) {
	s, err := New(identity, projectID, variant, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Connect starts the connection loop and waits for the first handshake.
// Cancelling ctx before then ends the session.  Calling Connect on a
// session that is already running only waits.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return cerr.ErrSessionClosed
	}
	if !s.started {
		s.started = true
		loopCtx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.run(loopCtx, cancel)
	}
	s.mu.Unlock()

	select {
	case <-s.openCh:
		return nil
	case <-s.done:
		if err := s.Err(); err != nil {
			return err
		}
		return cerr.ErrSessionClosed
	case <-ctx.Done():
		s.End() //nolint:errcheck
		return fmt.Errorf("cloud connect: %w", ctx.Err())
	}
}

// End closes the connection and stops reconnecting.  Queued frames are
// dropped.  End is idempotent.
func (s *Session) End() error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil
	}
	s.ended = true
	s.state = Closing
	c := s.conn
	s.conn = nil
	s.metrics.PendingAdd(-len(s.pending))
	s.pending = nil
	cancel := s.cancel
	started := s.started
	s.state = Closed
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if c != nil {
		err = c.Conn.Close()
	}
	if !started {
		s.closeDone()
	}
	s.logger.Verbose("cloud session for project %s ended", s.projectID)
	return err
}

// Get returns the current value of name.
func (s *Session) Get(name string) (string, bool) {
	return s.store.Get(name)
}

// Set writes value locally and sends it.  Values that do not read as a
// number are sent anyway but logged, since the server may drop them.
// The only error is [cerr.ErrSessionClosed].
func (s *Session) Set(name, value string) error {
	if !store.IsNumeric(value) {
		s.logger.Warn("value for %s is not a number; the server may reject it", name)
	}
	return s.send(name, value)
}

// SetNumber sets name to the shortest decimal form of v.
func (s *Session) SetNumber(name string, v float64) error {
	return s.Set(name, strconv.FormatFloat(v, 'f', -1, 64))
}

// SetText encodes text with the digit codec and sets name to it.
func (s *Session) SetText(name, text string) error {
	digits, err := codec.Encode(text)
	if err != nil {
		return err
	}
	return s.Set(name, digits)
}

// GetText decodes the digit-encoded value of name.
func (s *Session) GetText(name string) (string, error) {
	v, ok := s.Get(name)
	if !ok {
		return "", fmt.Errorf("cloud: unknown variable %q", name)
	}
	return codec.Decode(v, 0)
}

// Name returns label with the cloud sigil prefix.
func (s *Session) Name(label string) string { return Name(label) }

// Name returns label with the cloud sigil prefix.
func Name(label string) string { return Sigil + label }

// Variables returns a copy of all known variables.
func (s *Session) Variables() map[string]string { return s.store.Snapshot() }

// Names returns the known variable names, sorted.
func (s *Session) Names() []string { return s.store.Names() }

// Variable returns a handle bound to name.
func (s *Session) Variable(name string) Variable { return Variable{s: s, name: name} }

// User returns the username sent in every frame.
func (s *Session) User() string { return s.identity.Username() }

// ProjectID returns the project this session syncs.
func (s *Session) ProjectID() string { return s.projectID }

// Endpoint returns the endpoint in use.
func (s *Session) Endpoint() Endpoint { return s.endpoint }

// PendingCount returns the number of frames waiting for a connection.
func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// State returns the connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed when the session reaches Closed and its goroutine has
// exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns why the session closed, or nil if it is running or was
// ended by the caller.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) closeDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

// Variable is a handle to one named variable of a Session.
type Variable struct {
	s    *Session
	name string
}

// Name returns the variable name.
func (v Variable) Name() string { return v.name }

// Get returns the current value.
func (v Variable) Get() (string, bool) { return v.s.Get(v.name) }

// Set writes the value through the session.
func (v Variable) Set(value string) error { return v.s.Set(v.name, value) }
