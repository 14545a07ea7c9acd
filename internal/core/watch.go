package core

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/nexensys/scratch3-api/cloud"
	"github.com/nexensys/scratch3-api/util"
)

// WatchMode prints every value the server sends as name=value until
// interrupted.
type WatchMode struct {
	Connect *Connect
	Logger  *util.Logger
	output
}

// Run watches until ctx is cancelled or the session gives up.
func (m *WatchMode) Run(ctx context.Context) error {
	defer m.Connect.Close() //nolint:errcheck

	h := &watchHandler{BaseHandler: cloud.BaseHandler{Logger: m.Logger}, out: m.stdout()}
	s, err := m.Connect.Open(ctx, h)
	if err != nil {
		return err
	}
	m.Logger.Info("watching project %s (Ctrl-C to stop)", s.ProjectID())
	return await(ctx, s)
}

type watchHandler struct {
	cloud.BaseHandler
	mu  sync.Mutex
	out io.Writer
}

func (h *watchHandler) OnSet(_ *cloud.Session, name, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.out, "%s=%s\n", name, value)
}
