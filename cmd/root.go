// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/nexensys/scratch3-api/cloud"
	"github.com/nexensys/scratch3-api/config"
	"github.com/nexensys/scratch3-api/internal/core"
	"github.com/nexensys/scratch3-api/internal/metrics"
	"github.com/nexensys/scratch3-api/tunnel"
	"github.com/nexensys/scratch3-api/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X github.com/nexensys/scratch3-api/cmd.version=2.0.0"
var version = "0.1.0" //nolint:gochecknoglobals

// Execute parses args and runs the requested action.
func Execute(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout)
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	// ── config file and environment ──────────────────────────────
	cfg := config.Defaults()
	cfg.ConfigFile = configPath(args)
	if cfg.ConfigFile != "" {
		if err := config.LoadFile(cfg.ConfigFile, cfg); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)

	// ── flags (defaults are the values loaded so far) ────────────
	fs := flag.NewFlagSet("cloudvar", flag.ContinueOnError)

	fs.StringVarP(&cfg.Username, "user", "u", cfg.Username, "Username sent in every frame")
	fs.StringVarP(&cfg.SessionID, "session", "s", cfg.SessionID, "Session credential (prompted when omitted)")
	fs.StringVarP(&cfg.Project, "project", "P", cfg.Project, "Project id")
	turbowarp := fs.Bool("turbowarp", cfg.IsTurboWarp(), "Use the TurboWarp cloud server")
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "TOML config file")

	// ── connection ───────────────────────────────────────────────
	fs.DurationVarP(&cfg.Wait, "wait", "w", cfg.Wait, "get/set: how long to wait for the server")
	fs.DurationVar(&cfg.ConnTimeout, "timeout", cfg.ConnTimeout, "Connect and handshake timeout")
	fs.IntVar(&cfg.MaxReconnect, "max-reconnect", cfg.MaxReconnect, "Connection attempts before giving up (0 = unlimited)")
	fs.DurationVar(&cfg.ReconnectInitial, "reconnect-initial", cfg.ReconnectInitial, "First reconnect delay")
	fs.DurationVar(&cfg.ReconnectMax, "reconnect-max", cfg.ReconnectMax, "Maximum reconnect delay")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "Reach the server via SSH [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address")
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate and print the frames without connecting")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "cloudvar %s\n", version)
		return nil
	}

	if fs.Changed("turbowarp") {
		cfg.Variant = config.DefaultVariant
		if *turbowarp {
			cfg.Variant = "turbowarp"
		}
	}

	// ── positional arguments ─────────────────────────────────────
	if rest := fs.Args(); len(rest) > 0 {
		cfg.Action = strings.ToLower(rest[0])
		cfg.Args = rest[1:]
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if err := cfg.ApplyTunnelSpec(); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := util.NewLogger(cfg.Verbose)

	if cfg.NeedsNetwork() && !cfg.DryRun && !cfg.IsTurboWarp() && cfg.SessionID == "" {
		sid, err := promptSession()
		if err != nil {
			return err
		}
		cfg.SessionID = sid
	}

	// ── metrics ──────────────────────────────────────────────────
	collector := metrics.New()
	if cfg.MetricsAddr != "" && cfg.NeedsNetwork() && !cfg.DryRun {
		ms, err := serveMetrics(cfg.MetricsAddr, collector, logger)
		if err != nil {
			return err
		}
		defer ms.Close() //nolint:errcheck
	}

	// ── build and run ────────────────────────────────────────────
	mode, err := core.Build(cfg, logger, cloud.WithMetrics(collector))
	if err != nil {
		return err
	}
	setStdout(mode, stdout)
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

// configPath finds --config before the full flag set exists, so the
// file can supply the flag defaults.  CLOUDVAR_CONFIG is the fallback.
func configPath(args []string) string {
	pre := flag.NewFlagSet("cloudvar-config", flag.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.SetOutput(io.Discard)
	pre.Usage = func() {}
	path := pre.String("config", os.Getenv("CLOUDVAR_CONFIG"), "")
	pre.Parse(args) //nolint:errcheck
	return *path
}

// promptSession reads the session credential from the terminal.
func promptSession() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("a session credential is required: pass -s or set CLOUDVAR_SESSION")
	}
	b, err := tunnel.TerminalPrompt("Session id: ")
	if err != nil {
		return "", fmt.Errorf("read session id: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// setStdout points a printing mode at w.
func setStdout(mode core.Mode, w io.Writer) {
	switch m := mode.(type) {
	case *core.WatchMode:
		m.Stdout = w
	case *core.GetMode:
		m.Stdout = w
	case *core.CodecMode:
		m.Stdout = w
	case *core.DryRunMode:
		m.Stdout = w
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `cloudvar – cloud variable client v%s

Reads and writes the cloud variables of a Scratch or TurboWarp project.

Usage:
  cloudvar [options] watch                    Print every update
  cloudvar [options] get <name>               Print one variable
  cloudvar [options] set <name> <value>       Set one variable
  cloudvar encode <text>                      Text to cloud digits
  cloudvar decode <digits>                    Cloud digits to text

Names without the ☁ prefix get it added.

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  cloudvar -u me -P 10128407 watch
  cloudvar -u me -P 10128407 set score 42
  cloudvar --turbowarp -u me -P 10128407 get score
  cloudvar -T admin@bastion -u me -P 10128407 watch
  cloudvar set score $(cloudvar encode "hello") -u me -P 1 --dry-run
`)
}
