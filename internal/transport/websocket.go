package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	cerr "github.com/nexensys/scratch3-api/internal/errors"
)

// WebSocketConnector opens WebSocket connections with gorilla/websocket.
type WebSocketConnector struct {
	// Dialer makes the underlying TCP connection.  Nil dials directly
	// and honours HTTPS_PROXY.
	Dialer Dialer
	// HandshakeTimeout bounds TCP, TLS and upgrade together (default 15s).
	HandshakeTimeout time.Duration
	// WriteTimeout bounds each WriteMessage (default 10s).
	WriteTimeout time.Duration
}

// Connect dials url and performs the WebSocket upgrade.  A non-101
// answer is returned as *cerr.HandshakeError.
func (c *WebSocketConnector) Connect(ctx context.Context, url string, header http.Header) (Conn, error) {
	d := websocket.Dialer{
		HandshakeTimeout: c.HandshakeTimeout,
	}
	if d.HandshakeTimeout <= 0 {
		d.HandshakeTimeout = 15 * time.Second
	}
	if c.Dialer != nil {
		d.NetDialContext = c.Dialer.Dial
	} else {
		d.Proxy = http.ProxyFromEnvironment
	}

	ws, resp, err := d.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
			return nil, &cerr.HandshakeError{URL: url, Status: resp.StatusCode, Err: err}
		}
		return nil, cerr.Wrap("dial", url, err)
	}

	wt := c.WriteTimeout
	if wt <= 0 {
		wt = 10 * time.Second
	}
	return &wsConn{ws: ws, writeTimeout: wt}, nil
}

type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	closeOnce    sync.Once
	closeErr     error
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame (best effort) and closes the socket.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

// IsNormalClose reports whether err is the peer (or we) closing the
// connection cleanly rather than a transport failure.
func IsNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
