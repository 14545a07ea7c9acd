// Package config defines the runtime configuration for cloudvar and
// provides helpers for parsing tunnel specifications.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	cerr "github.com/nexensys/scratch3-api/internal/errors"
)

// Actions understood by the CLI.
const (
	ActionWatch  = "watch"
	ActionGet    = "get"
	ActionSet    = "set"
	ActionEncode = "encode"
	ActionDecode = "decode"
)

// actionArgs is the number of positional arguments each action takes.
var actionArgs = map[string]int{ //nolint:gochecknoglobals
	ActionWatch:  0,
	ActionGet:    1,
	ActionSet:    2,
	ActionEncode: 1,
	ActionDecode: 1,
}

// Config holds every tuneable for a single cloudvar run.
type Config struct {
	// ── Identity ─────────────────────────────────────────────────────
	Username  string
	SessionID string
	Project   string
	Variant   string // "scratch" or "turbowarp"

	// ── Action ───────────────────────────────────────────────────────
	Action string
	Args   []string

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Connection ───────────────────────────────────────────────────
	ConnTimeout      time.Duration
	MaxReconnect     int // 0 = unlimited
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
	Wait             time.Duration // get/set: how long to wait for the server

	// ── Output ───────────────────────────────────────────────────────
	MetricsAddr string
	Verbose     int
	DryRun      bool
	ConfigFile  string
}

// Defaults returns a Config populated from defaults.go.
func Defaults() *Config {
	return &Config{
		Variant:          DefaultVariant,
		ConnTimeout:      DefaultConnTimeout,
		MaxReconnect:     DefaultMaxReconnect,
		ReconnectInitial: DefaultReconnectInitial,
		ReconnectMax:     DefaultReconnectMax,
		Wait:             DefaultWait,
	}
}

// NeedsNetwork reports whether the action talks to the cloud server.
func (c *Config) NeedsNetwork() bool {
	return c.Action != ActionEncode && c.Action != ActionDecode
}

// IsTurboWarp reports whether Variant selects the TurboWarp server.
func (c *Config) IsTurboWarp() bool {
	v := strings.ToLower(strings.TrimSpace(c.Variant))
	return v == "turbowarp" || v == "tw"
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ApplyTunnelSpec parses TunnelSpec into the tunnel fields.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &cerr.ConfigError{Field: "tunnel", Value: c.TunnelSpec, Message: err.Error()}
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Every failure is a *cerr.ConfigError.
func (c *Config) Validate() error {
	if c.Action == "" {
		return &cerr.ConfigError{
			Field:   "action",
			Message: "an action is required",
			Hint:    "one of: watch, get <name>, set <name> <value>, encode <text>, decode <digits>",
		}
	}
	want, ok := actionArgs[c.Action]
	if !ok {
		return &cerr.ConfigError{
			Field:   "action",
			Value:   c.Action,
			Message: "unknown action",
			Hint:    "one of: watch, get, set, encode, decode",
		}
	}
	if len(c.Args) != want {
		return &cerr.ConfigError{
			Field:   "action",
			Value:   c.Action,
			Message: fmt.Sprintf("takes %d argument(s), got %d", want, len(c.Args)),
		}
	}

	if !c.NeedsNetwork() {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(c.Variant)) {
	case "", "scratch", "turbowarp", "tw":
	default:
		return &cerr.ConfigError{
			Field:   "variant",
			Value:   c.Variant,
			Message: "unknown cloud variant",
			Hint:    "use scratch (default) or --turbowarp",
		}
	}
	if c.Project == "" {
		return &cerr.ConfigError{
			Field:   "project",
			Message: "a project id is required",
			Hint:    "pass -P <id> or set CLOUDVAR_PROJECT",
		}
	}
	if c.Username == "" {
		return &cerr.ConfigError{
			Field:   "user",
			Message: "a username is required",
			Hint:    "pass -u <name> or set CLOUDVAR_USER",
		}
	}
	if c.MaxReconnect < 0 {
		return &cerr.ConfigError{
			Field:   "max-reconnect",
			Value:   c.MaxReconnect,
			Message: "must not be negative",
			Hint:    "0 retries until interrupted",
		}
	}
	if c.ConnTimeout < 0 || c.ReconnectInitial < 0 || c.ReconnectMax < 0 || c.Wait < 0 {
		return &cerr.ConfigError{Field: "timeout", Message: "durations must not be negative"}
	}
	if c.ReconnectMax > 0 && c.ReconnectInitial > c.ReconnectMax {
		return &cerr.ConfigError{
			Field:   "reconnect-initial",
			Value:   c.ReconnectInitial,
			Message: fmt.Sprintf("exceeds reconnect-max %v", c.ReconnectMax),
		}
	}
	if c.TunnelEnabled && c.TunnelHost == "" {
		return &cerr.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
	}
	return nil
}
