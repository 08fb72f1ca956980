package app

import (
	"jobalert/internal/config"
	telegram "jobalert/internal/transport/telegram/adapter"
	logx "jobalert/pkg/logx"
)

// NewTelegram builds the Bot API adapter. Webhook mode skips the getMe
// handshake so the server can start without reaching Telegram.
func NewTelegram(cfg *config.Config, log logx.Logger) (*telegram.Adapter, error) {
	return telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: cfg.Telegram.PollTimeoutOrDefault(),
		SendTimeout: cfg.Telegram.SendTimeoutOrDefault(),
		Offline:     cfg.Telegram.Mode != config.ModePolling,
	}, log.With(logx.String("comp", "telegram")))
}
