package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cerr "github.com/nexensys/scratch3-api/internal/errors"
	"github.com/nexensys/scratch3-api/internal/metrics"
	"github.com/nexensys/scratch3-api/util"
)

func runCapture(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

// TestExecute_Version verifies --version prints a version string.
func TestExecute_Version(t *testing.T) {
	out, err := runCapture(t, "--version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "cloudvar ") {
		t.Errorf("output = %q", out)
	}
}

// TestExecute_Help verifies --help (and no args) returns without error.
func TestExecute_Help(t *testing.T) {
	for _, args := range [][]string{{"--help"}, {}} {
		name := "no-args"
		if len(args) > 0 {
			name = args[0]
		}
		t.Run(name, func(t *testing.T) {
			err := Execute(context.Background(), args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// TestExecute_Codec verifies the offline encode and decode actions.
func TestExecute_Codec(t *testing.T) {
	out, err := runCapture(t, "encode", "hi")
	if err != nil || out != "181900\n" {
		t.Errorf("encode: out=%q err=%v", out, err)
	}
	out, err = runCapture(t, "decode", "181900")
	if err != nil || out != "hi\n" {
		t.Errorf("decode: out=%q err=%v", out, err)
	}
	if _, err := runCapture(t, "decode", "999"); err == nil {
		t.Error("expected error for invalid digits")
	}
}

// TestExecute_DryRun verifies --dry-run validates and prints frames.
func TestExecute_DryRun(t *testing.T) {
	out, err := runCapture(t, "-u", "me", "-P", "123", "--dry-run", "set", "score", "5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `{"user":"me","project_id":123,"method":"handshake"}`) {
		t.Errorf("missing handshake in %q", out)
	}
	if !strings.Contains(out, `"name":"☁ score","value":"5"`) {
		t.Errorf("missing set frame in %q", out)
	}
}

func TestExecute_DryRunTurboWarp(t *testing.T) {
	out, err := runCapture(t, "--turbowarp", "-u", "me", "-P", "1", "--dry-run", "watch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "# wss://clouddata.turbowarp.org/") {
		t.Errorf("output = %q", out)
	}
}

// TestExecute_DryRunInvalid verifies --dry-run still catches bad configs.
func TestExecute_DryRunInvalid(t *testing.T) {
	t.Setenv("CLOUDVAR_PROJECT", "")
	_, err := runCapture(t, "-u", "me", "--dry-run", "watch") // no project
	var ce *cerr.ConfigError
	if !errors.As(err, &ce) || ce.Field != "project" {
		t.Fatalf("expected project ConfigError, got %v", err)
	}
}

// TestExecute_InvalidFlags verifies unknown flags produce an error.
func TestExecute_InvalidFlags(t *testing.T) {
	err := Execute(context.Background(), []string{"--nonexistent-flag"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestExecute_UnknownAction(t *testing.T) {
	_, err := runCapture(t, "delete", "x")
	if err == nil || !strings.Contains(err.Error(), "unknown action") {
		t.Errorf("err = %v", err)
	}
}

func TestExecute_BadTunnel(t *testing.T) {
	_, err := runCapture(t, "-T", "u@h:99999", "-u", "me", "-P", "1", "--dry-run", "watch")
	if err == nil {
		t.Fatal("expected tunnel error")
	}
}

// TestExecute_Precedence verifies flags > env > config file.
func TestExecute_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloudvar.toml")
	body := "user = \"from-file\"\nproject = \"7\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := runCapture(t, "--config", path, "--dry-run", "watch")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"user":"from-file","project_id":7`) {
		t.Errorf("file values not applied: %q", out)
	}

	t.Setenv("CLOUDVAR_USER", "from-env")
	out, err = runCapture(t, "--config", path, "--dry-run", "watch")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"user":"from-env"`) {
		t.Errorf("env did not override file: %q", out)
	}

	out, err = runCapture(t, "--config", path, "-u", "from-flag", "--dry-run", "watch")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"user":"from-flag"`) {
		t.Errorf("flag did not override env: %q", out)
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("CLOUDVAR_CONFIG", "")
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"-vv", "--config", "a.toml", "watch"}, "a.toml"},
		{[]string{"-u", "me", "--config=b.toml"}, "b.toml"},
		{[]string{"watch"}, ""},
	}
	for _, tt := range tests {
		if got := configPath(tt.args); got != tt.want {
			t.Errorf("configPath(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}

	t.Setenv("CLOUDVAR_CONFIG", "env.toml")
	if got := configPath([]string{"watch"}); got != "env.toml" {
		t.Errorf("configPath from env = %q", got)
	}
}

func TestServeMetrics(t *testing.T) {
	c := metrics.New()
	c.ConnectionOpened()
	c.FrameSent(10)

	ms, err := serveMetrics("127.0.0.1:0", c, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	defer ms.Close() //nolint:errcheck

	get := func(path string) string {
		t.Helper()
		resp, err := http.Get("http://" + ms.Addr() + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		return string(b)
	}

	body := get("/metrics")
	for _, want := range []string{"cloudvar_connections_total 1", "cloudvar_bytes_sent_total 10"} {
		if !strings.Contains(body, want) {
			t.Errorf("/metrics missing %q", want)
		}
	}
	if stats := get("/stats"); !strings.Contains(stats, "{") {
		t.Errorf("/stats = %q", stats)
	}
}
