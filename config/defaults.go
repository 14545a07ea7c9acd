package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultVariant is the cloud server used when none is chosen.
	DefaultVariant = "scratch"

	// DefaultConnTimeout bounds each dial including the WebSocket
	// upgrade.
	DefaultConnTimeout = 15 * time.Second

	// DefaultMaxReconnect is how many connection attempts are made
	// before the session gives up.
	DefaultMaxReconnect = 10

	// DefaultReconnectInitial is the first wait between attempts and
	// the minimum interval between two dials.
	DefaultReconnectInitial = 500 * time.Millisecond

	// DefaultReconnectMax caps the exponential backoff between
	// reconnection attempts.
	DefaultReconnectMax = 30 * time.Second

	// DefaultWait is how long get waits for a value and set waits for
	// the queue to drain.
	DefaultWait = 5 * time.Second
)
