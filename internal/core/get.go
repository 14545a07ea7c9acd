package core

import (
	"context"
	"fmt"
	"time"

	"github.com/nexensys/scratch3-api/cloud"
	cerr "github.com/nexensys/scratch3-api/internal/errors"
	"github.com/nexensys/scratch3-api/util"
)

// GetMode waits for one variable and prints its value.
type GetMode struct {
	Connect *Connect
	Name    string
	Wait    time.Duration
	Logger  *util.Logger
	output
}

// Run connects, waits up to Wait for Name to arrive and prints it.
func (m *GetMode) Run(ctx context.Context) error {
	defer m.Connect.Close() //nolint:errcheck

	h := &getHandler{
		BaseHandler: cloud.BaseHandler{Logger: m.Logger},
		name:        m.Name,
		got:         make(chan string, 1),
	}
	s, err := m.Connect.Open(ctx, h)
	if err != nil {
		return err
	}
	defer s.End() //nolint:errcheck

	var timeout <-chan time.Time
	if m.Wait > 0 {
		t := time.NewTimer(m.Wait)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case v := <-h.got:
		fmt.Fprintln(m.stdout(), v)
		return nil
	case <-timeout:
		return fmt.Errorf("%w: %s not received within %v", cerr.ErrTimeout, m.Name, m.Wait)
	case <-s.Done():
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

type getHandler struct {
	cloud.BaseHandler
	name string
	got  chan string
}

func (h *getHandler) OnSet(_ *cloud.Session, name, value string) {
	if name != h.name {
		return
	}
	select {
	case h.got <- value:
	default:
	}
}
