package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNoToken = errors.New("config: telegram token is empty")

const (
	ModeWebhook = "webhook"
	ModePolling = "polling"
)

// Config is the whole service configuration. Durations are Go duration
// strings ("500ms", "10s", "1m"); empty means the default.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Admin     AdminConfig     `json:"admin"`
	HTTP      HTTPConfig      `json:"http"`
	Storage   StorageConfig   `json:"storage"`
	Broadcast BroadcastConfig `json:"broadcast"`
	Metrics   MetricsConfig   `json:"metrics"`
	Logging   LoggingConfig   `json:"logging"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// Mode is "webhook" (default) or "polling".
	Mode        string `json:"mode,omitempty"`
	PollTimeout string `json:"poll_timeout,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
	// WebhookURL is the public URL registered by `webhook set`.
	WebhookURL    string `json:"webhook_url,omitempty"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// AdminConfig identifies the single sender allowed to add jobs.
// ID 0 disables /addjob for everyone.
type AdminConfig struct {
	ID     int64  `json:"id"`
	Secret string `json:"secret,omitempty"`
}

type HTTPConfig struct {
	Addr            string `json:"addr"`
	Path            string `json:"path,omitempty"`
	ReadTimeout     string `json:"read_timeout,omitempty"`
	WriteTimeout    string `json:"write_timeout,omitempty"`
	ShutdownTimeout string `json:"shutdown_timeout,omitempty"`
}

// StorageConfig selects and configures the state store.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./data" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	DSN         string `json:"dsn,omitempty"`
	Addr        string `json:"addr,omitempty"`
	Password    string `json:"password,omitempty"`
	DB          int    `json:"db,omitempty"`
	KeyPrefix   string `json:"key_prefix,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite
}

type BroadcastConfig struct {
	Workers int `json:"workers,omitempty"`
	// RatePerSec caps sends per second. 0 means the default (25); a negative
	// value disables the limit.
	RatePerSec float64 `json:"rate_per_sec,omitempty"`
	// Timeout bounds handling of one update, broadcast included. Keep it
	// below http.write_timeout so the webhook still gets its answer.
	Timeout string `json:"timeout,omitempty"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Default returns a config that runs a webhook server on :8080 with the
// file store in ./data.
func Default() *Config {
	c := &Config{}
	c.Logging.Console = true
	c.Metrics.Enabled = true
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Telegram.Mode) == "" {
		c.Telegram.Mode = ModeWebhook
	}
	c.Telegram.Mode = strings.ToLower(strings.TrimSpace(c.Telegram.Mode))
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.Path == "" {
		c.HTTP.Path = "/api/bot"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "file"
	}
	if c.Storage.Driver == "file" && c.Storage.Path == "" {
		c.Storage.Path = "./data"
	}
	if c.Broadcast.Workers <= 0 {
		c.Broadcast.Workers = 4
	}
	if c.Broadcast.RatePerSec == 0 {
		c.Broadcast.RatePerSec = 25
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks a config after defaults and env overrides were applied.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return ErrNoToken
	}
	switch c.Telegram.Mode {
	case ModeWebhook, ModePolling:
	default:
		return fmt.Errorf("telegram.mode: unknown mode %q", c.Telegram.Mode)
	}
	if !strings.HasPrefix(c.HTTP.Path, "/") {
		return fmt.Errorf("http.path: must start with /: %q", c.HTTP.Path)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path: must start with /: %q", c.Metrics.Path)
	}
	if c.Metrics.Enabled && c.Metrics.Path == c.HTTP.Path {
		return fmt.Errorf("metrics.path: collides with http.path %q", c.HTTP.Path)
	}
	if c.Admin.ID < 0 {
		return fmt.Errorf("admin.id: must be >= 0")
	}
	durations := []struct{ path, raw string }{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"telegram.send_timeout", c.Telegram.SendTimeout},
		{"http.read_timeout", c.HTTP.ReadTimeout},
		{"http.write_timeout", c.HTTP.WriteTimeout},
		{"http.shutdown_timeout", c.HTTP.ShutdownTimeout},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
		{"broadcast.timeout", c.Broadcast.Timeout},
	}
	for _, d := range durations {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}
	return nil
}

// Durations resolved with defaults. Call Validate first; invalid values
// fall back to the default here.

func (t TelegramConfig) PollTimeoutOrDefault() time.Duration {
	d, _ := ParseDurationOrDefault("telegram.poll_timeout", t.PollTimeout, 10*time.Second)
	return d
}

func (t TelegramConfig) SendTimeoutOrDefault() time.Duration {
	d, _ := ParseDurationOrDefault("telegram.send_timeout", t.SendTimeout, 10*time.Second)
	return d
}

func (h HTTPConfig) ReadTimeoutOrDefault() time.Duration {
	d, _ := ParseDurationOrDefault("http.read_timeout", h.ReadTimeout, 15*time.Second)
	return d
}

// WriteTimeoutOrDefault is generous: the webhook answers only after the broadcast.
func (h HTTPConfig) WriteTimeoutOrDefault() time.Duration {
	d, _ := ParseDurationOrDefault("http.write_timeout", h.WriteTimeout, 5*time.Minute)
	return d
}

func (h HTTPConfig) ShutdownTimeoutOrDefault() time.Duration {
	d, _ := ParseDurationOrDefault("http.shutdown_timeout", h.ShutdownTimeout, 10*time.Second)
	return d
}

func (s StorageConfig) BusyTimeoutOrDefault() time.Duration {
	d, _ := ParseDurationOrDefault("storage.busy_timeout", s.BusyTimeout, 5*time.Second)
	return d
}

func (b BroadcastConfig) TimeoutOrDefault() time.Duration {
	d, _ := ParseDurationOrDefault("broadcast.timeout", b.Timeout, 4*time.Minute)
	return d
}
