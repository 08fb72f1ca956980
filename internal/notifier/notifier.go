// Package notifier defines the outbound "send one message to one chat"
// capability the dispatcher and broadcaster depend on.
//
// Implementations report delivery failure as a returned error and never
// panic for recipient-level problems (blocked bot, unknown chat, network).
// A failed send is terminal for that call; callers do not retry.
package notifier

import (
	"context"
	"errors"
)

// ErrNoRecipient is returned for a zero chat id.
var ErrNoRecipient = errors.New("notifier: empty recipient")

// Notifier sends text to one chat. formatted selects HTML parse mode; the
// caller is responsible for escaping dynamic values in formatted text.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string, formatted bool) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, chatID int64, text string, formatted bool) error

func (f Func) Send(ctx context.Context, chatID int64, text string, formatted bool) error {
	return f(ctx, chatID, text, formatted)
}
