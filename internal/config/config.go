// Package config loads and normalises Boostalk server configuration files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Its-donkey/Boostalk/internal/mailchimp"
	"github.com/Its-donkey/Boostalk/internal/ratelimit"
)

const (
	defaultAddr          = "127.0.0.1"
	defaultPort          = ":8080"
	defaultName          = "Boostalk"
	defaultLogs          = "logs"
	defaultLogLevel      = "info"
	defaultLaunchAt      = "2025-07-20T00:00:00"
	defaultLaunchLabel   = "Countdown to launch – July 20"
	defaultTimezone      = "Local"
	defaultMailchimpSecs = 10
	defaultSessionTTL    = 30 * 60
	defaultSettleMillis  = 1500
	defaultSubmitRate    = 0.5
	defaultSubmitBurst   = 5

	// Environment fallbacks consulted when the file leaves a value empty.
	EnvMailchimpURL = "BOOSTALK_MAILCHIMP_URL"
	EnvLaunchAt     = "BOOSTALK_LAUNCH_AT"
	EnvListen       = "BOOSTALK_LISTEN"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
	Port string `json:"port" yaml:"port"`
}

// AppConfig configures the rendered site and where logs go. Empty Templates or
// Assets mean the copies compiled into the binary.
type AppConfig struct {
	Name      string `json:"name" yaml:"name"`
	Templates string `json:"templates" yaml:"templates"`
	Assets    string `json:"assets" yaml:"assets"`
	Logs      string `json:"logs" yaml:"logs"`
	LogLevel  string `json:"log_level" yaml:"log_level"`
}

// LaunchConfig describes the instant the countdown runs to.
type LaunchConfig struct {
	At       string `json:"at" yaml:"at"`
	Timezone string `json:"timezone" yaml:"timezone"`
	Label    string `json:"label" yaml:"label"`
}

// MailchimpConfig points at the hosted signup form.
type MailchimpConfig struct {
	FormURL        string `json:"form_url" yaml:"form_url"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// WaitlistConfig tunes visitor sessions and submission throttling.
type WaitlistConfig struct {
	SessionTTLSeconds   int     `json:"session_ttl_seconds" yaml:"session_ttl_seconds"`
	SettleTimeoutMillis int     `json:"settle_timeout_ms" yaml:"settle_timeout_ms"`
	SubmitRate          float64 `json:"submit_rate" yaml:"submit_rate"`
	SubmitBurst         int     `json:"submit_burst" yaml:"submit_burst"`
	// TrustedProxies are CIDRs or addresses of reverse proxies whose
	// X-Forwarded-For header identifies the client. Empty trusts nobody.
	TrustedProxies []string `json:"trusted_proxies" yaml:"trusted_proxies"`
}

// Config represents the combined runtime settings.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	App       AppConfig       `json:"app" yaml:"app"`
	Launch    LaunchConfig    `json:"launch" yaml:"launch"`
	Mailchimp MailchimpConfig `json:"mailchimp" yaml:"mailchimp"`
	Waitlist  WaitlistConfig  `json:"waitlist" yaml:"waitlist"`
}

// Load reads the config at path. JSON is assumed unless the extension is
// .yaml or .yml. A missing file yields the defaults.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := decode(path, data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	normalise(&cfg)
	if _, err := cfg.LaunchTarget(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.TrustedProxies(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfig returns the built-in configuration without consulting the environment.
func DefaultConfig() Config {
	var cfg Config
	normalise(&cfg)
	return cfg
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode config: %w", err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	if cfg.Mailchimp.FormURL == "" {
		cfg.Mailchimp.FormURL = envValue(EnvMailchimpURL)
	}
	if cfg.Launch.At == "" {
		cfg.Launch.At = envValue(EnvLaunchAt)
	}
	if listen := envValue(EnvListen); listen != "" && cfg.Server.Addr == "" && cfg.Server.Port == "" {
		if host, port, err := net.SplitHostPort(listen); err == nil {
			cfg.Server.Addr = host
			cfg.Server.Port = ":" + port
		}
	}
}

func normalise(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = defaultPort
	}
	if !strings.HasPrefix(cfg.Server.Port, ":") {
		cfg.Server.Port = ":" + cfg.Server.Port
	}

	if cfg.App.Name == "" {
		cfg.App.Name = defaultName
	}
	if cfg.App.Logs == "" {
		cfg.App.Logs = defaultLogs
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = defaultLogLevel
	}

	if cfg.Launch.At == "" {
		cfg.Launch.At = defaultLaunchAt
	}
	if cfg.Launch.Timezone == "" {
		cfg.Launch.Timezone = defaultTimezone
	}
	if cfg.Launch.Label == "" {
		cfg.Launch.Label = defaultLaunchLabel
	}

	if cfg.Mailchimp.FormURL == "" {
		cfg.Mailchimp.FormURL = mailchimp.DefaultFormURL
	}
	if cfg.Mailchimp.TimeoutSeconds <= 0 {
		cfg.Mailchimp.TimeoutSeconds = defaultMailchimpSecs
	}

	if cfg.Waitlist.SessionTTLSeconds <= 0 {
		cfg.Waitlist.SessionTTLSeconds = defaultSessionTTL
	}
	if cfg.Waitlist.SettleTimeoutMillis <= 0 {
		cfg.Waitlist.SettleTimeoutMillis = defaultSettleMillis
	}
	if cfg.Waitlist.SubmitRate <= 0 {
		cfg.Waitlist.SubmitRate = defaultSubmitRate
	}
	if cfg.Waitlist.SubmitBurst <= 0 {
		cfg.Waitlist.SubmitBurst = defaultSubmitBurst
	}
}

// ListenAddr joins the server address and port, e.g. "127.0.0.1:8080".
func (c Config) ListenAddr() string {
	return c.Server.Addr + c.Server.Port
}

// LaunchTarget resolves the launch instant. Values without an offset are read
// in the configured timezone ("Local" by default).
func (c Config) LaunchTarget() (time.Time, error) {
	loc := time.Local
	if tz := strings.TrimSpace(c.Launch.Timezone); tz != "" && tz != "Local" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, fmt.Errorf("launch timezone: %w", err)
		}
		loc = l
	}
	at := strings.TrimSpace(c.Launch.At)
	if t, err := time.Parse(time.RFC3339, at); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, at, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("launch time %q: expected RFC 3339 or YYYY-MM-DDTHH:MM:SS", c.Launch.At)
}

// MailchimpTimeout is the per-request timeout for the signup endpoint.
func (c Config) MailchimpTimeout() time.Duration {
	return time.Duration(c.Mailchimp.TimeoutSeconds) * time.Second
}

// SessionTTL is how long an idle visitor session is kept.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.Waitlist.SessionTTLSeconds) * time.Second
}

// TrustedProxies parses waitlist.trusted_proxies.
func (c Config) TrustedProxies() ([]netip.Prefix, error) {
	return ratelimit.ParseTrustedProxies(c.Waitlist.TrustedProxies)
}

// SettleTimeout bounds how long a form post waits for the submission verdict.
func (c Config) SettleTimeout() time.Duration {
	return time.Duration(c.Waitlist.SettleTimeoutMillis) * time.Millisecond
}

func envValue(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
