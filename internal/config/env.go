package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvBotToken      = "BOT_TOKEN"
	EnvAdminID       = "ADMIN_ID"
	EnvAdminSecret   = "ADMIN_SECRET"
	EnvPort          = "PORT"
	EnvWebhookSecret = "WEBHOOK_SECRET"
)

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment values onto cfg. getenv defaults to os.Getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvBotToken)); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(getenv(EnvAdminID)); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid id %q: %w", EnvAdminID, v, err)
		}
		cfg.Admin.ID = id
	}
	if v := getenv(EnvAdminSecret); v != "" {
		cfg.Admin.Secret = v
	}
	if v := strings.TrimSpace(getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		host := ""
		if i := strings.LastIndex(cfg.HTTP.Addr, ":"); i > 0 {
			host = cfg.HTTP.Addr[:i]
		}
		cfg.HTTP.Addr = host + ":" + strconv.Itoa(port)
	}
	if v := getenv(EnvWebhookSecret); v != "" {
		cfg.Telegram.WebhookSecret = v
	}
	return nil
}
