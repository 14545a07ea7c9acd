package core

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/nexensys/scratch3-api/config"
	"github.com/nexensys/scratch3-api/internal/transport"
	"github.com/nexensys/scratch3-api/util"
)

func netConfig(action string, args ...string) *config.Config {
	cfg := config.Defaults()
	cfg.Action = action
	cfg.Args = args
	cfg.Username = "tester"
	cfg.SessionID = "sid"
	cfg.Project = "42"
	return cfg
}

// TestBuild_Modes verifies that Build picks the mode matching the action.
func TestBuild_Modes(t *testing.T) {
	logger := util.NewLogger(0)

	tests := []struct {
		name  string
		cfg   *config.Config
		check func(Mode) bool
	}{
		{"watch", netConfig(config.ActionWatch), func(m Mode) bool { _, ok := m.(*WatchMode); return ok }},
		{"get", netConfig(config.ActionGet, "score"), func(m Mode) bool {
			g, ok := m.(*GetMode)
			return ok && g.Name == "☁ score"
		}},
		{"set", netConfig(config.ActionSet, "☁ score", "5"), func(m Mode) bool {
			s, ok := m.(*SetMode)
			return ok && s.Name == "☁ score" && s.Value == "5"
		}},
		{"encode", &config.Config{Action: config.ActionEncode, Args: []string{"hi"}}, func(m Mode) bool {
			c, ok := m.(*CodecMode)
			return ok && !c.Decode
		}},
		{"decode", &config.Config{Action: config.ActionDecode, Args: []string{"181900"}}, func(m Mode) bool {
			c, ok := m.(*CodecMode)
			return ok && c.Decode
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := Build(tt.cfg, logger)
			if err != nil {
				t.Fatal(err)
			}
			if !tt.check(mode) {
				t.Errorf("unexpected mode %T %+v", mode, mode)
			}
		})
	}
}

// TestBuild_Dialer verifies the direct and tunnelled dialers.
func TestBuild_Dialer(t *testing.T) {
	logger := util.NewLogger(0)

	mode, err := Build(netConfig(config.ActionWatch), logger)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := mode.(*WatchMode).Connect.Dialer.(*transport.TCPDialer); !ok {
		t.Errorf("expected *TCPDialer, got %T", mode.(*WatchMode).Connect.Dialer)
	}

	cfg := netConfig(config.ActionWatch)
	cfg.TunnelSpec = "ops@bastion:2222"
	if err := cfg.ApplyTunnelSpec(); err != nil {
		t.Fatal(err)
	}
	mode, err = Build(cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := mode.(*WatchMode).Connect.Dialer.(*transport.SSHDialer); !ok {
		t.Errorf("expected *SSHDialer, got %T", mode.(*WatchMode).Connect.Dialer)
	}
}

func TestBuild_BadVariant(t *testing.T) {
	cfg := netConfig(config.ActionWatch)
	cfg.Variant = "snap"
	if _, err := Build(cfg, util.NewLogger(0)); err == nil {
		t.Error("expected error")
	}
}

// TestBuild_DryRun verifies that dry-run prints frames instead of
// connecting.
func TestBuild_DryRun(t *testing.T) {
	cfg := netConfig(config.ActionSet, "score", "10")
	cfg.DryRun = true

	mode, err := Build(cfg, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	dr, ok := mode.(*DryRunMode)
	if !ok {
		t.Fatalf("expected *DryRunMode, got %T", mode)
	}
	var out bytes.Buffer
	dr.Stdout = &out
	if err := dr.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := strings.Join([]string{
		"# wss://clouddata.scratch.mit.edu/",
		`{"user":"tester","project_id":42,"method":"handshake"}`,
		`{"user":"tester","project_id":42,"method":"set","name":"☁ score","value":"10"}`,
		"",
	}, "\n")
	if out.String() != want {
		t.Errorf("output =\n%s\nwant\n%s", out.String(), want)
	}
}

func TestBuildBackoff(t *testing.T) {
	cfg := config.Defaults()
	cfg.MaxReconnect = 0
	b := buildBackoff(cfg)
	if b.MaxAttempts != 0 || b.InitialDelay != cfg.ReconnectInitial || b.MaxDelay != cfg.ReconnectMax || !b.Jitter {
		t.Errorf("backoff = %+v", b)
	}
}

func TestVarName(t *testing.T) {
	if got := VarName("score"); got != "☁ score" {
		t.Errorf("VarName(score) = %q", got)
	}
	if got := VarName("☁ score"); got != "☁ score" {
		t.Errorf("VarName(☁ score) = %q", got)
	}
}
