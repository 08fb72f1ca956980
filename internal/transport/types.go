package transport

import "context"

// Update is one inbound platform event. Message is nil for update kinds the
// bot does not act on (callbacks, member changes, heartbeats).
type Update struct {
	ID      int
	Message *Message
}

type Message struct {
	ID            int
	ChatID        int64
	FromID        int64
	FromFirstName string
	Text          string
	Edited        bool
}

const ParseModeHTML = "HTML"

type SendOptions struct {
	// ParseMode is ParseModeHTML for formatted messages, empty for plain text.
	ParseMode      string
	DisablePreview bool
}

// Handler consumes inbound updates. A non-nil error means the update could
// not be processed (e.g. the store is down) and is surfaced to the transport.
type Handler interface {
	Handle(ctx context.Context, up Update) error
}

type HandlerFunc func(ctx context.Context, up Update) error

func (f HandlerFunc) Handle(ctx context.Context, up Update) error { return f(ctx, up) }
