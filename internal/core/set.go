package core

import (
	"context"
	"fmt"
	"time"

	"github.com/nexensys/scratch3-api/cloud"
	cerr "github.com/nexensys/scratch3-api/internal/errors"
	"github.com/nexensys/scratch3-api/util"
)

// drainPoll is how often SetMode checks the outbound queue.
const drainPoll = 20 * time.Millisecond

// SetMode writes one variable and ends once the frame has left the
// queue.
type SetMode struct {
	Connect *Connect
	Name    string
	Value   string
	Wait    time.Duration
	Logger  *util.Logger
}

// Run connects, sets Name to Value and waits up to Wait for delivery.
func (m *SetMode) Run(ctx context.Context) error {
	defer m.Connect.Close() //nolint:errcheck

	s, err := m.Connect.Open(ctx, &cloud.BaseHandler{Logger: m.Logger})
	if err != nil {
		return err
	}
	defer s.End() //nolint:errcheck

	if err := s.Set(m.Name, m.Value); err != nil {
		return err
	}

	deadline := time.Now().Add(m.Wait)
	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()
	for s.PendingCount() > 0 {
		if m.Wait > 0 && time.Now().After(deadline) {
			return fmt.Errorf("%w: %s still queued after %v", cerr.ErrTimeout, m.Name, m.Wait)
		}
		select {
		case <-ticker.C:
		case <-s.Done():
			return s.Err()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.Logger.Verbose("sent %s = %s", m.Name, m.Value)
	return nil
}
