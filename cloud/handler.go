package cloud

import (
	"github.com/nexensys/scratch3-api/internal/protocol"
	"github.com/nexensys/scratch3-api/util"
)

// Handler receives session events.  Calls are made one at a time, in
// order, from the session's connection goroutine, so a Handler must not
// block for long.  Embed [BaseHandler] to implement only some methods.
type Handler interface {
	// OnOpen fires once, after the first successful handshake.
	OnOpen(s *Session)
	// OnReset fires after every successful handshake, the first included.
	OnReset(s *Session)
	// OnSet fires for every value the server sends.  Local Set calls do
	// not raise it.
	OnSet(s *Session, name, value string)
	// OnAddVariable fires before OnSet the first time the server sends
	// a value for name.
	OnAddVariable(s *Session, name, value string)
	// OnDisconnect fires once when the session gives up reconnecting.
	// It does not fire after End.
	OnDisconnect(s *Session, err error)
}

// BaseHandler logs every event and otherwise does nothing.
type BaseHandler struct {
	Logger *util.Logger
}

func (h *BaseHandler) OnOpen(s *Session) {
	h.Logger.Verbose("cloud session for project %s open", s.ProjectID())
}

func (h *BaseHandler) OnReset(s *Session) {
	h.Logger.Debug("cloud connection (re)established, %d variables known", s.store.Len())
}

func (h *BaseHandler) OnSet(_ *Session, name, value string) {
	h.Logger.Debug("set %s = %s", name, value)
}

func (h *BaseHandler) OnAddVariable(_ *Session, name, value string) {
	h.Logger.Verbose("new variable %s = %s", name, value)
}

func (h *BaseHandler) OnDisconnect(_ *Session, err error) {
	h.Logger.Error("cloud session disconnected: %v", err)
}

// handleFrame applies one inbound frame.  Runs on the connection
// goroutine.
func (s *Session) handleFrame(fr protocol.Frame) {
	switch fr.Method {
	case protocol.MethodSet:
		if fr.Name == "" {
			s.logger.Debug("ignoring set frame without a name: %s", fr.Raw)
			return
		}
		if s.store.Apply(fr.Name, fr.Value) {
			s.handler.OnAddVariable(s, fr.Name, fr.Value)
		}
		s.handler.OnSet(s, fr.Name, fr.Value)
	case "":
		s.logger.Debug("ignoring frame without method: %s", fr.Raw)
	default:
		s.logger.Debug("ignoring %q frame", fr.Method)
	}
}
