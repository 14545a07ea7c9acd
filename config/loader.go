package config

// loader.go - configuration loading from a TOML file and environment
// variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables
//   3. Config file (--config or CLOUDVAR_CONFIG)
//   4. Defaults   (defaults.go)

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ── Config file ──────────────────────────────────────────────────────

type fileConfig struct {
	User             string `toml:"user"`
	Session          string `toml:"session"`
	Project          string `toml:"project"`
	Variant          string `toml:"variant"`
	Tunnel           string `toml:"tunnel"`
	SSHKey           string `toml:"ssh_key"`
	SSHPassword      bool   `toml:"ssh_password"`
	SSHAgent         bool   `toml:"ssh_agent"`
	StrictHostKey    bool   `toml:"strict_hostkey"`
	KnownHosts       string `toml:"known_hosts"`
	Timeout          string `toml:"timeout"`
	MaxReconnect     int    `toml:"max_reconnect"`
	ReconnectInitial string `toml:"reconnect_initial"`
	ReconnectMax     string `toml:"reconnect_max"`
	Wait             string `toml:"wait"`
	MetricsAddr      string `toml:"metrics_addr"`
	Verbose          int    `toml:"verbose"`
}

// LoadFile overlays the keys defined in the TOML file at path onto cfg.
// Keys absent from the file leave cfg untouched.
func LoadFile(path string, cfg *Config) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("user") {
		cfg.Username = strings.TrimSpace(raw.User)
	}
	if meta.IsDefined("session") {
		cfg.SessionID = strings.TrimSpace(raw.Session)
	}
	if meta.IsDefined("project") {
		cfg.Project = strings.TrimSpace(raw.Project)
	}
	if meta.IsDefined("variant") {
		cfg.Variant = strings.TrimSpace(raw.Variant)
	}
	if meta.IsDefined("tunnel") {
		cfg.TunnelSpec = strings.TrimSpace(raw.Tunnel)
	}
	if meta.IsDefined("ssh_key") {
		cfg.SSHKeyPath = raw.SSHKey
	}
	if meta.IsDefined("ssh_password") {
		cfg.SSHPassword = raw.SSHPassword
	}
	if meta.IsDefined("ssh_agent") {
		cfg.UseSSHAgent = raw.SSHAgent
	}
	if meta.IsDefined("strict_hostkey") {
		cfg.StrictHostKey = raw.StrictHostKey
	}
	if meta.IsDefined("known_hosts") {
		cfg.KnownHostsPath = raw.KnownHosts
	}
	if meta.IsDefined("max_reconnect") {
		cfg.MaxReconnect = raw.MaxReconnect
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("verbose") {
		cfg.Verbose = raw.Verbose
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"timeout", raw.Timeout, &cfg.ConnTimeout},
		{"reconnect_initial", raw.ReconnectInitial, &cfg.ReconnectInitial},
		{"reconnect_max", raw.ReconnectMax, &cfg.ReconnectMax},
		{"wait", raw.Wait, &cfg.Wait},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the CLOUDVAR_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("CLOUDVAR_USER"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("CLOUDVAR_SESSION"); v != "" {
		cfg.SessionID = v
	}
	if v := os.Getenv("CLOUDVAR_PROJECT"); v != "" {
		cfg.Project = v
	}
	if v := os.Getenv("CLOUDVAR_VARIANT"); v != "" {
		cfg.Variant = v
	}
	if envBool("CLOUDVAR_TURBOWARP") {
		cfg.Variant = "turbowarp"
	}

	// Connection
	if v := envInt("CLOUDVAR_TIMEOUT"); v > 0 {
		cfg.ConnTimeout = secondsDuration(v)
	}
	if v, ok := envIntOK("CLOUDVAR_MAX_RECONNECT"); ok {
		cfg.MaxReconnect = v
	}
	if v := envInt("CLOUDVAR_WAIT"); v > 0 {
		cfg.Wait = secondsDuration(v)
	}

	// SSH tunnel
	if v := os.Getenv("CLOUDVAR_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("CLOUDVAR_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("CLOUDVAR_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("CLOUDVAR_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("CLOUDVAR_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("CLOUDVAR_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if v := os.Getenv("CLOUDVAR_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := envInt("CLOUDVAR_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	n, _ := envIntOK(key)
	return n
}

func envIntOK(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
