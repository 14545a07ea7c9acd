// Package session represents a single connection lifecycle, binding an
// open cloud connection to its identity, logger and start time.
//
// A cloud session outlives many connections; each successful dial gets
// a fresh Session so log lines and metrics can be attributed to the
// connection that produced them.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/nexensys/scratch3-api/internal/transport"
	"github.com/nexensys/scratch3-api/util"
)

// Session encapsulates the runtime context for a single connection.
type Session struct {
	ID      string
	Conn    transport.Conn
	Logger  *util.Logger
	Attempt int // dial attempt that produced Conn (1-based)
	Started time.Time
}

// New creates a Session bound to conn.  The logger is tagged with a
// short connection id.
func New(conn transport.Conn, attempt int, logger *util.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:      id,
		Conn:    conn,
		Logger:  logger.With("conn", ShortID(id)),
		Attempt: attempt,
		Started: time.Now(),
	}
}

// ShortID returns the first block of a UUID for log output.
func ShortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// Uptime returns how long the connection has been open.
func (s *Session) Uptime() time.Duration {
	return time.Since(s.Started).Truncate(time.Millisecond)
}
