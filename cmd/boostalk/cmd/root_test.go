package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Its-donkey/Boostalk/internal/config"
	"github.com/Its-donkey/Boostalk/internal/countdown"
	"github.com/Its-donkey/Boostalk/internal/mailchimp"
	"github.com/Its-donkey/Boostalk/internal/waitlist"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("BOOSTALK_MAILCHIMP_URL", "")
	t.Setenv("BOOSTALK_LAUNCH_AT", "")
	t.Setenv("BOOSTALK_LISTEN", "")

	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	missing := filepath.Join(t.TempDir(), "missing.json")
	root.SetArgs(append([]string{"--config", missing}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func newMailchimpServer(t *testing.T, result, msg string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/subscribe/post-json" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `%s({"result":%q,"msg":%q})`, r.URL.Query().Get("c"), result, msg)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != "boostalk dev\n" {
		t.Fatalf("expected version line, got %q", out)
	}
}

func TestRootHasSubcommands(t *testing.T) {
	want := map[string]bool{"serve": false, "countdown": false, "subscribe": false, "config": false, "version": false}
	for _, c := range NewRootCommand().Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("expected %q subcommand to be registered", name)
		}
	}
}

func TestUnknownCommandFails(t *testing.T) {
	if _, err := execute(t, "unknown-command-xyz"); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestCountdownAfterLaunchPrintsExpired(t *testing.T) {
	out, err := execute(t, "countdown", "--at", "2020-01-01T00:00:00")
	if err != nil {
		t.Fatalf("countdown: %v", err)
	}
	if out != countdown.Expired+"\n" {
		t.Fatalf("expected single expired line, got %q", out)
	}
}

func TestCountdownRunsToExpiry(t *testing.T) {
	at := time.Now().Add(1500 * time.Millisecond).Format(time.RFC3339)
	out, err := execute(t, "countdown", "--at", at, "--interval", "50ms")
	if err != nil {
		t.Fatalf("countdown: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected several lines, got %q", out)
	}
	if lines[len(lines)-1] != countdown.Expired {
		t.Fatalf("expected last line %q, got %q", countdown.Expired, lines[len(lines)-1])
	}
}

func TestCountdownRejectsBadInstant(t *testing.T) {
	if _, err := execute(t, "countdown", "--at", "next tuesday"); err == nil {
		t.Fatal("expected error for unparseable launch instant")
	}
}

func TestSubscribeSuccess(t *testing.T) {
	srv := newMailchimpServer(t, "success", "Thank you for subscribing!")
	out, err := execute(t, "subscribe", "someone@example.com", "--form-url", srv.URL+"/subscribe/post?u=abc&id=def")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	for _, want := range []string{"status: sending", "status: success", waitlist.ConfirmationMessage} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
}

func TestSubscribeRefusal(t *testing.T) {
	srv := newMailchimpServer(t, "error", "0 - Member Exists")
	_, err := execute(t, "subscribe", "someone@example.com", "--form-url", srv.URL+"/subscribe/post?u=abc&id=def")
	if err == nil || err.Error() != "Member Exists" {
		t.Fatalf("expected Member Exists, got %v", err)
	}
}

func TestSubscribeInvalidEmail(t *testing.T) {
	_, err := execute(t, "subscribe", "not-an-email")
	if err == nil || err.Error() != waitlist.InvalidEmailNotice {
		t.Fatalf("expected invalid email notice, got %v", err)
	}
}

func TestServeRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("launch:\n  at: someday\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"serve", "--config", path})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected error for invalid launch time")
	}
}

func TestConfigCommandPrintsEffectiveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "app:\n  name: Boostalk Beta\nwaitlist:\n  trusted_proxies:\n    - 10.0.0.0/8\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(config.EnvMailchimpURL, "")
	t.Setenv(config.EnvLaunchAt, "")
	t.Setenv(config.EnvListen, "")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"config", "--config", path})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(out.Bytes(), &cfg); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.App.Name != "Boostalk Beta" {
		t.Fatalf("expected file value, got %q", cfg.App.Name)
	}
	if len(cfg.Waitlist.TrustedProxies) != 1 || cfg.Waitlist.TrustedProxies[0] != "10.0.0.0/8" {
		t.Fatalf("expected trusted proxies from file, got %v", cfg.Waitlist.TrustedProxies)
	}
	if cfg.Mailchimp.FormURL != mailchimp.DefaultFormURL {
		t.Fatalf("expected default form URL, got %q", cfg.Mailchimp.FormURL)
	}
}

func TestConfigCommandDefaultsIgnoreEnvironment(t *testing.T) {
	t.Setenv(config.EnvLaunchAt, "2030-01-01T00:00:00Z")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"config", "--defaults"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(out.Bytes(), &cfg); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	want := config.DefaultConfig()
	if cfg.Launch != want.Launch {
		t.Fatalf("expected default launch %+v, got %+v", want.Launch, cfg.Launch)
	}
	if cfg.Server != want.Server || cfg.App != want.App || cfg.Mailchimp != want.Mailchimp {
		t.Fatalf("expected built-in defaults, got %+v", cfg)
	}
	if len(cfg.Waitlist.TrustedProxies) != 0 {
		t.Fatalf("expected no trusted proxies, got %v", cfg.Waitlist.TrustedProxies)
	}
}
