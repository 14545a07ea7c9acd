package cloud

import (
	"context"
	"errors"
	"fmt"
	"time"

	cerr "github.com/nexensys/scratch3-api/internal/errors"
	"github.com/nexensys/scratch3-api/internal/retry"
	"github.com/nexensys/scratch3-api/internal/session"
	"github.com/nexensys/scratch3-api/internal/transport"
)

// stableUptime is how long a connection must stay up before its drop
// stops counting against the reconnect budget.
const stableUptime = 10 * time.Second

// run owns the connection lifecycle: dial, serve until the connection
// drops, wait, dial again.  It returns when the session ends or the
// reconnect budget is spent.
//
// A redial always waits at least the backoff's InitialDelay.  Drops of
// connections that lived less than stableUptime are consecutive
// failures: the wait grows with each one, and more than MaxAttempts of
// them in a row end the session.
func (s *Session) run(ctx context.Context, cancel context.CancelFunc) {
	defer s.closeDone()
	defer cancel()

	drops := 0
	for {
		conn, first, err := s.dial(ctx)
		if err != nil {
			s.fail(err)
			return
		}
		s.metrics.ConnectionOpened()
		if first {
			s.handler.OnOpen(s)
		}
		s.handler.OnReset(s)
		if first {
			close(s.openCh)
		}

		s.serve(conn)
		if ctx.Err() != nil {
			return
		}

		if conn.Uptime() >= stableUptime {
			drops = 0
		}
		drops++
		if limit := s.backoff.MaxAttempts; limit > 0 && drops > limit {
			s.fail(fmt.Errorf("%w: %d connections in a row closed within %v",
				retry.ErrExhausted, drops, stableUptime))
			return
		}
		s.logger.Verbose("reconnecting to project %s (drop %d)", s.projectID, drops)
		if err := s.backoff.Sleep(ctx, drops); err != nil {
			return
		}
		s.metrics.Reconnect()
	}
}
