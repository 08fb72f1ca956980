package adapter

import "time"

type Config struct {
	Token       string
	PollTimeout time.Duration
	// SendTimeout bounds each Bot API HTTP call.
	SendTimeout time.Duration
	// Offline skips the getMe handshake. Used in webhook mode and tests.
	Offline bool
	// URL overrides the Bot API endpoint.
	URL string
}
