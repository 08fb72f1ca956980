package testutil

import (
	"errors"
	"testing"
)

func TestRecordingNotifier(t *testing.T) {
	ctx := TestContext(t)
	r := NewRecordingNotifier()
	r.FailFor(2)

	if err := r.Send(ctx, 1, "hi", true); err != nil {
		t.Fatalf("Send(1): %v", err)
	}
	if err := r.Send(ctx, 2, "hi", false); !errors.Is(err, ErrSendFailed) {
		t.Fatalf("Send(2) err = %v, want ErrSendFailed", err)
	}
	if r.Calls() != 2 {
		t.Fatalf("Calls() = %d, want 2", r.Calls())
	}
	if got := r.SentTo(1); len(got) != 1 || !got[0].Formatted {
		t.Fatalf("SentTo(1) = %+v", got)
	}
	if len(r.SentTo(2)) != 0 {
		t.Fatal("failed sends must not be recorded")
	}
	r.Reset()
	if len(r.Sent()) != 0 || r.Calls() != 0 {
		t.Fatal("Reset did not clear state")
	}
}

func TestRecordingNotifierPanics(t *testing.T) {
	r := NewRecordingNotifier()
	r.PanicFor(9)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	_ = r.Send(TestContext(t), 9, "x", false)
}
