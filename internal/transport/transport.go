// Package transport provides abstractions for reaching a cloud data
// server.  A Connector produces message-oriented Conns; a Dialer
// underneath it decides how the TCP connection is made (directly or
// through an SSH tunnel).
package transport

import (
	"context"
	"net"
	"net/http"
)

// Dialer opens outbound network connections.  Implementations include
// a plain TCP dialer and an SSH-tunnelled dialer that routes traffic
// through an encrypted gateway.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}

// Conn is an open, message-oriented connection.  ReadMessage is called
// from one goroutine only; WriteMessage callers serialize themselves.
type Conn interface {
	// ReadMessage blocks for the next inbound message.
	ReadMessage() ([]byte, error)
	// WriteMessage sends data as one text message.
	WriteMessage(data []byte) error
	// Close tears the connection down and unblocks ReadMessage.
	Close() error
}

// Connector opens Conns to a URL with the given handshake headers.
type Connector interface {
	Connect(ctx context.Context, url string, header http.Header) (Conn, error)
}
