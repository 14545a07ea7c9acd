package core

import (
	"fmt"

	"github.com/nexensys/scratch3-api/cloud"
	"github.com/nexensys/scratch3-api/config"
	"github.com/nexensys/scratch3-api/internal/protocol"
	"github.com/nexensys/scratch3-api/internal/retry"
	"github.com/nexensys/scratch3-api/internal/transport"
	"github.com/nexensys/scratch3-api/tunnel"
	"github.com/nexensys/scratch3-api/util"
)

// Build constructs the appropriate Mode from the given configuration.
// extra is appended to the session options Build derives from cfg, so
// callers can attach metrics or override the endpoint.
func Build(cfg *config.Config, logger *util.Logger, extra ...cloud.Option) (Mode, error) {
	switch cfg.Action {
	case config.ActionEncode:
		return &CodecMode{Input: cfg.Args[0]}, nil
	case config.ActionDecode:
		return &CodecMode{Decode: true, Input: cfg.Args[0]}, nil
	}

	if cfg.DryRun {
		return buildDryRun(cfg)
	}

	conn, err := buildConnect(cfg, logger, extra)
	if err != nil {
		return nil, err
	}

	switch cfg.Action {
	case config.ActionWatch:
		return &WatchMode{Connect: conn, Logger: logger}, nil
	case config.ActionGet:
		return &GetMode{Connect: conn, Name: VarName(cfg.Args[0]), Wait: cfg.Wait, Logger: logger}, nil
	case config.ActionSet:
		return &SetMode{Connect: conn, Name: VarName(cfg.Args[0]), Value: cfg.Args[1], Wait: cfg.Wait, Logger: logger}, nil
	}
	return nil, fmt.Errorf("unknown action %q", cfg.Action)
}

// ── mode builders ────────────────────────────────────────────────────

func buildConnect(cfg *config.Config, logger *util.Logger, extra []cloud.Option) (*Connect, error) {
	variant, err := cloud.ParseVariant(cfg.Variant)
	if err != nil {
		return nil, err
	}

	dialer := buildDialer(cfg, logger)
	if cfg.TunnelEnabled {
		ep, err := cloud.EndpointFor(variant, cloud.Credentials{})
		if err != nil {
			return nil, err
		}
		addr, err := util.EndpointAddr(ep.URL)
		if err != nil {
			return nil, err
		}
		logger.Verbose("%s will be reached through %s", addr, util.FormatAddr(cfg.TunnelHost, cfg.TunnelPort))
	}
	breaker := retry.NewCircuitBreaker(&retry.CircuitBreakerConfig{
		MaxFailures:  retry.DefaultCircuitBreakerConfig().MaxFailures,
		ResetTimeout: cfg.ReconnectMax,
		OnStateChange: func(from, to retry.State) {
			logger.Verbose("circuit breaker %s → %s", from, to)
		},
	})

	opts := []cloud.Option{
		cloud.WithLogger(logger),
		cloud.WithBackoff(buildBackoff(cfg)),
		cloud.WithCircuitBreaker(breaker),
		cloud.WithHandshakeTimeout(cfg.ConnTimeout),
		cloud.WithConnector(&transport.WebSocketConnector{
			Dialer:           dialer,
			HandshakeTimeout: cfg.ConnTimeout,
		}),
	}
	opts = append(opts, extra...)

	return &Connect{
		Identity: cloud.Credentials{User: cfg.Username, SessionID: cfg.SessionID},
		Project:  cfg.Project,
		Variant:  variant,
		Options:  opts,
		Logger:   logger,
		Dialer:   dialer,
	}, nil
}

func buildDryRun(cfg *config.Config) (Mode, error) {
	variant, err := cloud.ParseVariant(cfg.Variant)
	if err != nil {
		return nil, err
	}
	ep, err := cloud.EndpointFor(variant, cloud.Credentials{User: cfg.Username, SessionID: cfg.SessionID})
	if err != nil {
		return nil, err
	}

	env := protocol.Envelope{User: cfg.Username, ProjectID: cfg.Project}
	frames := [][]byte{env.Handshake()}
	if cfg.Action == config.ActionSet {
		frames = append(frames, env.Set(VarName(cfg.Args[0]), cfg.Args[1]))
	}
	return &DryRunMode{URL: ep.URL, Frames: frames}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildBackoff maps the reconnect settings onto a retry policy.
func buildBackoff(cfg *config.Config) *retry.Backoff {
	return &retry.Backoff{
		InitialDelay: cfg.ReconnectInitial,
		MaxDelay:     cfg.ReconnectMax,
		Multiplier:   2.0,
		MaxAttempts:  cfg.MaxReconnect,
		Jitter:       true,
	}
}

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.ConnTimeout,
		}, logger)
	}
	return &transport.TCPDialer{Timeout: cfg.ConnTimeout}
}
