package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoadJSON(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.json", `{
  "telegram": {"token": "123:abc", "send_timeout": "3s"},
  "admin": {"id": 42},
  "storage": {"driver": "memory"},
  "logging": {"level": "debug", "console": true}
}`)
	m := NewConfigManager(p)
	m.SetGetenv(envMap(nil))

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Mode != ModeWebhook || cfg.HTTP.Path != "/api/bot" || cfg.HTTP.Addr != ":8080" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Admin.ID != 42 || cfg.Storage.Driver != "memory" {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if got := cfg.Telegram.SendTimeoutOrDefault(); got != 3*time.Second {
		t.Fatalf("send timeout = %v, want 3s", got)
	}
	if got := cfg.Telegram.PollTimeoutOrDefault(); got != 10*time.Second {
		t.Fatalf("poll timeout = %v, want 10s", got)
	}
	if m.Get() != cfg {
		t.Fatal("Load did not commit")
	}
}

func TestLoadYAML(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.yaml", `
telegram:
  token: "123:abc"
  mode: Polling
broadcast:
  workers: 8
  rate_per_sec: 10
  timeout: 90s
`)
	m := NewConfigManager(p)
	m.SetGetenv(envMap(nil))

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Mode != ModePolling {
		t.Fatalf("mode = %q, want polling", cfg.Telegram.Mode)
	}
	if cfg.Broadcast.Workers != 8 || cfg.Broadcast.RatePerSec != 10 {
		t.Fatalf("broadcast = %+v", cfg.Broadcast)
	}
	if got := cfg.Broadcast.TimeoutOrDefault(); got != 90*time.Second {
		t.Fatalf("broadcast timeout = %v, want 90s", got)
	}
}

func TestBroadcastDefaults(t *testing.T) {
	c := Default()
	if c.Broadcast.RatePerSec != 25 {
		t.Fatalf("rate = %v, want 25", c.Broadcast.RatePerSec)
	}
	if got := c.Broadcast.TimeoutOrDefault(); got != 4*time.Minute {
		t.Fatalf("timeout = %v, want 4m", got)
	}
	if c.Broadcast.TimeoutOrDefault() >= c.HTTP.WriteTimeoutOrDefault() {
		t.Fatal("update timeout must stay below the http write timeout")
	}

	c.Broadcast.RatePerSec = -1
	c.ApplyDefaults()
	if c.Broadcast.RatePerSec != -1 {
		t.Fatalf("rate = %v, negative must survive defaults", c.Broadcast.RatePerSec)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.json", `{"telegram": {"token": "x"}, "plugins": {}}`)
	m := NewConfigManager(p)
	m.SetGetenv(envMap(nil))
	if _, err := m.Load(); err == nil || !strings.Contains(err.Error(), "plugins") {
		t.Fatalf("Load() = %v, want unknown field error", err)
	}
}

func TestLoadRejectsTrailingData(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.json", `{"telegram": {"token": "x"}} {}`)
	m := NewConfigManager(p)
	m.SetGetenv(envMap(nil))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected trailing data error")
	}
}

func TestEnvOnlyConfig(t *testing.T) {
	m := NewConfigManager("")
	m.SetGetenv(envMap(map[string]string{
		EnvBotToken:      "999:tok",
		EnvAdminID:       "1234",
		EnvAdminSecret:   "s3cret",
		EnvPort:          "5000",
		EnvWebhookSecret: "hook",
	}))

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "999:tok" || cfg.Admin.ID != 1234 || cfg.Admin.Secret != "s3cret" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.HTTP.Addr != ":5000" {
		t.Fatalf("addr = %q, want :5000", cfg.HTTP.Addr)
	}
	if cfg.Telegram.WebhookSecret != "hook" {
		t.Fatalf("webhook secret = %q", cfg.Telegram.WebhookSecret)
	}
	if cfg.Storage.Driver != "file" || cfg.Storage.Path != "./data" {
		t.Fatalf("storage defaults = %+v", cfg.Storage)
	}
}

func TestApplyEnvKeepsHost(t *testing.T) {
	cfg := &Config{HTTP: HTTPConfig{Addr: "127.0.0.1:8080"}}
	if err := ApplyEnv(cfg, envMap(map[string]string{EnvPort: "9000"})); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.HTTP.Addr != "127.0.0.1:9000" {
		t.Fatalf("addr = %q", cfg.HTTP.Addr)
	}
}

func TestApplyEnvErrors(t *testing.T) {
	tests := []map[string]string{
		{EnvAdminID: "abc"},
		{EnvPort: "http"},
		{EnvPort: "70000"},
	}
	for _, env := range tests {
		if err := ApplyEnv(&Config{}, envMap(env)); err == nil {
			t.Errorf("ApplyEnv(%v) = nil, want error", env)
		}
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := Default()
		c.Telegram.Token = "t"
		return c
	}
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"default", func(c *Config) {}, true},
		{"no token", func(c *Config) { c.Telegram.Token = "" }, false},
		{"bad mode", func(c *Config) { c.Telegram.Mode = "carrier-pigeon" }, false},
		{"bad path", func(c *Config) { c.HTTP.Path = "api" }, false},
		{"metrics collides", func(c *Config) { c.Metrics.Path = c.HTTP.Path }, false},
		{"bad duration", func(c *Config) { c.HTTP.ReadTimeout = "soon" }, false},
		{"negative duration", func(c *Config) { c.Telegram.SendTimeout = "-1s" }, false},
		{"rate limit disabled", func(c *Config) { c.Broadcast.RatePerSec = -1 }, true},
		{"bad broadcast timeout", func(c *Config) { c.Broadcast.Timeout = "later" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, ok=%v", err, tt.ok)
			}
		})
	}
	c := base()
	c.Telegram.Token = " "
	if err := c.Validate(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Validate() = %v, want ErrNoToken", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, ".env", "JOBALERT_TEST_DOTENV=from-file\n")
	t.Setenv("JOBALERT_TEST_DOTENV", "")
	os.Unsetenv("JOBALERT_TEST_DOTENV")

	if err := LoadDotEnv(p, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("JOBALERT_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("env = %q, want from-file", got)
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	a := Default()
	a.Telegram.Token = "old"
	b := *a
	b.Admin.ID = 7
	b.Logging.Level = "debug"

	changed, attrs := SummarizeConfigChange(a, &b)
	if strings.Join(changed, ",") != "admin,logging" {
		t.Fatalf("changed = %v", changed)
	}
	if len(attrs) == 0 {
		t.Fatal("expected attrs")
	}
	if got := RestartRequired(changed); len(got) != 0 {
		t.Fatalf("RestartRequired = %v, want none", got)
	}

	b.Storage.Driver = "redis"
	changed, _ = SummarizeConfigChange(a, &b)
	if got := RestartRequired(changed); len(got) != 1 || got[0] != "storage" {
		t.Fatalf("RestartRequired = %v, want [storage]", got)
	}
}

func TestWatchPublishesChanges(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.json", `{"telegram": {"token": "t"}, "admin": {"id": 1}}`)
	m := NewConfigManager(p)
	m.SetGetenv(envMap(nil))
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "config.json", `{"telegram": {"token": "t"}, "admin": {"id": 2}}`)

	select {
	case cfg := <-ch:
		if cfg.Admin.ID != 2 {
			t.Fatalf("published admin id = %d, want 2", cfg.Admin.ID)
		}
	case <-ctx.Done():
		t.Fatal("no config published")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch: %v", err)
	}
}
