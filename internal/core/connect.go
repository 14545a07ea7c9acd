package core

import (
	"context"
	"fmt"

	"github.com/nexensys/scratch3-api/cloud"
	"github.com/nexensys/scratch3-api/internal/transport"
	"github.com/nexensys/scratch3-api/util"
)

// Connect holds everything needed to open a cloud session.  Modes call
// Open with their own handler.
type Connect struct {
	Identity cloud.Identity
	Project  string
	Variant  cloud.Variant
	Options  []cloud.Option
	Logger   *util.Logger

	// Dialer, if set, is closed by Close (e.g. an SSH tunnel).
	Dialer transport.Dialer
}

// Open creates a session routed to h and waits for its first handshake.
func (c *Connect) Open(ctx context.Context, h cloud.Handler) (*cloud.Session, error) {
	opts := make([]cloud.Option, 0, len(c.Options)+1)
	opts = append(opts, c.Options...)
	opts = append(opts, cloud.WithHandler(h))

	c.Logger.Verbose("connecting to %s cloud for project %s", c.Variant, c.Project)
	s, err := cloud.Create(ctx, c.Identity, c.Project, c.Variant, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to project %s: %w", c.Project, err)
	}
	return s, nil
}

// Close releases the dialer.
func (c *Connect) Close() error {
	if c.Dialer == nil {
		return nil
	}
	return c.Dialer.Close()
}

// await blocks until ctx is cancelled or the session closes on its own,
// then ends the session.  It returns the session's terminal error, if
// any.
func await(ctx context.Context, s *cloud.Session) error {
	select {
	case <-ctx.Done():
	case <-s.Done():
	}
	s.End() //nolint:errcheck
	return s.Err()
}
