// Package testutil provides shared test helpers for jobalert.
package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// ErrSendFailed is returned by RecordingNotifier for chats marked as failing.
var ErrSendFailed = errors.New("testutil: send failed")

// Sent is one message captured by RecordingNotifier.
type Sent struct {
	ChatID    int64
	Text      string
	Formatted bool
}

// RecordingNotifier records every send. Chats passed to FailFor get
// ErrSendFailed and are not recorded; chats passed to PanicFor panic.
type RecordingNotifier struct {
	mu     sync.Mutex
	sent   []Sent
	fail   map[int64]bool
	panics map[int64]bool
	calls  int
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{fail: map[int64]bool{}, panics: map[int64]bool{}}
}

func (r *RecordingNotifier) FailFor(ids ...int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.fail[id] = true
	}
}

func (r *RecordingNotifier) PanicFor(ids ...int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.panics[id] = true
	}
}

func (r *RecordingNotifier) Send(ctx context.Context, chatID int64, text string, formatted bool) error {
	r.mu.Lock()
	r.calls++
	fail := r.fail[chatID]
	boom := r.panics[chatID]
	r.mu.Unlock()

	if boom {
		panic("testutil: send panicked")
	}
	if fail {
		return ErrSendFailed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.sent = append(r.sent, Sent{ChatID: chatID, Text: text, Formatted: formatted})
	r.mu.Unlock()
	return nil
}

// Sent returns a copy of all successful sends in call order.
func (r *RecordingNotifier) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// SentTo returns successful sends to chatID in call order.
func (r *RecordingNotifier) SentTo(chatID int64) []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Sent
	for _, s := range r.sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

// Calls returns the number of Send invocations, failed ones included.
func (r *RecordingNotifier) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *RecordingNotifier) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
	r.calls = 0
}

// TestContext returns a context with a 5-second timeout.
// The context is cancelled when the test completes.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
