package broadcast

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"jobalert/internal/metrics"
	"jobalert/internal/notifier"
	"jobalert/internal/testutil"
	logx "jobalert/pkg/logx"
)

type countingSink struct {
	metrics.NoopSink
	sent, failed, completed int32
}

func (c *countingSink) DeliveryOutcome(outcome string) {
	if outcome == metrics.OutcomeSent {
		atomic.AddInt32(&c.sent, 1)
	} else {
		atomic.AddInt32(&c.failed, 1)
	}
}

func (c *countingSink) BroadcastCompleted(int, time.Duration) { atomic.AddInt32(&c.completed, 1) }

func sentIDs(r *testutil.RecordingNotifier) []int64 {
	var ids []int64
	for _, s := range r.Sent() {
		ids = append(ids, s.ChatID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func TestSendDeliversToAll(t *testing.T) {
	rec := testutil.NewRecordingNotifier()
	sink := &countingSink{}
	svc := New(Config{Workers: 3}, rec, logx.Nop(), sink)

	res := svc.Send(testutil.TestContext(t), []int64{1, 2, 3, 4, 5}, "<b>new</b>", true)

	if res.Total != 5 || res.Sent != 5 || res.Failed != 0 {
		t.Fatalf("result = %+v", res)
	}
	if res.ID == "" {
		t.Fatal("broadcast id is empty")
	}
	if got := sentIDs(rec); len(got) != 5 || got[0] != 1 || got[4] != 5 {
		t.Fatalf("sent to %v", got)
	}
	for _, s := range rec.Sent() {
		if !s.Formatted || s.Text != "<b>new</b>" {
			t.Fatalf("unexpected send %+v", s)
		}
	}
	if sink.sent != 5 || sink.completed != 1 {
		t.Fatalf("metrics sent=%d completed=%d", sink.sent, sink.completed)
	}
}

func TestSendIsolatesFailures(t *testing.T) {
	rec := testutil.NewRecordingNotifier()
	rec.FailFor(2)
	rec.PanicFor(4)
	sink := &countingSink{}
	svc := New(Config{Workers: 2}, rec, logx.Nop(), sink)

	res := svc.Send(testutil.TestContext(t), []int64{1, 2, 3, 4, 5}, "hi", false)

	if res.Sent != 3 || res.Failed != 2 {
		t.Fatalf("result = %+v, want 3 sent 2 failed", res)
	}
	got := sentIDs(rec)
	want := []int64{1, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("sent to %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sent to %v, want %v", got, want)
		}
	}
	failed := map[int64]error{}
	for _, f := range res.Failures {
		failed[f.ChatID] = f.Err
	}
	if !errors.Is(failed[2], testutil.ErrSendFailed) {
		t.Fatalf("failure for 2 = %v", failed[2])
	}
	if failed[4] == nil {
		t.Fatal("panic for 4 not recorded as failure")
	}
	if sink.failed != 2 || sink.sent != 3 {
		t.Fatalf("metrics sent=%d failed=%d", sink.sent, sink.failed)
	}
}

func TestSendAtMostOncePerRecipient(t *testing.T) {
	rec := testutil.NewRecordingNotifier()
	svc := New(Config{}, rec, logx.Nop(), nil)

	res := svc.Send(testutil.TestContext(t), []int64{7, 7, 8, 7}, "x", false)

	if res.Total != 2 || rec.Calls() != 2 {
		t.Fatalf("total=%d calls=%d, want 2/2", res.Total, rec.Calls())
	}
}

func TestSendNoRecipients(t *testing.T) {
	rec := testutil.NewRecordingNotifier()
	res := New(Config{}, rec, logx.Nop(), nil).Send(testutil.TestContext(t), nil, "x", false)
	if res.Total != 0 || rec.Calls() != 0 {
		t.Fatalf("result = %+v calls = %d", res, rec.Calls())
	}
}

func TestSendCancelledContext(t *testing.T) {
	rec := testutil.NewRecordingNotifier()
	svc := New(Config{Workers: 1, RatePerSec: 1}, rec, logx.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := svc.Send(ctx, []int64{1, 2, 3}, "x", false)

	if res.Failed != 3 || res.Sent != 0 {
		t.Fatalf("result = %+v, want all failed", res)
	}
}

func TestSendRespectsWorkerBound(t *testing.T) {
	var inFlight, peak int32
	n := notifier.Func(func(ctx context.Context, chatID int64, text string, formatted bool) error {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	})
	svc := New(Config{Workers: 2}, n, logx.Nop(), nil)
	ids := make([]int64, 10)
	for i := range ids {
		ids[i] = int64(i + 1)
	}

	res := svc.Send(testutil.TestContext(t), ids, "x", false)

	if res.Sent != 10 {
		t.Fatalf("sent = %d, want 10", res.Sent)
	}
	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", p)
	}
}
