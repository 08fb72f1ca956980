package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"jobalert/internal/jobs"
)

func TestStateSubscribeIdempotent(t *testing.T) {
	ctx := context.Background()
	st := NewState(NewMemory())

	added, err := st.AddSubscriber(ctx, 555)
	if err != nil || !added {
		t.Fatalf("first add: added=%v err=%v", added, err)
	}
	added, err = st.AddSubscriber(ctx, 555)
	if err != nil || added {
		t.Fatalf("second add: added=%v err=%v", added, err)
	}
	subs, _ := st.Subscribers(ctx)
	if len(subs) != 1 || subs[0] != 555 {
		t.Fatalf("subscribers = %v", subs)
	}

	removed, err := st.RemoveSubscriber(ctx, 999)
	if err != nil || removed {
		t.Fatalf("remove absent: removed=%v err=%v", removed, err)
	}
	removed, err = st.RemoveSubscriber(ctx, 555)
	if err != nil || !removed {
		t.Fatalf("remove present: removed=%v err=%v", removed, err)
	}
	subs, _ = st.Subscribers(ctx)
	if len(subs) != 0 {
		t.Fatalf("subscribers = %v", subs)
	}
}

func TestStateConcurrentWritesDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	st := NewState(NewMemory())

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if _, err := st.AddSubscriber(ctx, jobs.SubscriberID(i)); err != nil {
				t.Errorf("AddSubscriber: %v", err)
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			if err := st.AppendJob(ctx, jobs.Job{Title: fmt.Sprint(i)}); err != nil {
				t.Errorf("AppendJob: %v", err)
			}
		}(i)
	}
	wg.Wait()

	subs, _ := st.Subscribers(ctx)
	if len(subs) != n {
		t.Fatalf("expected %d subscribers, got %d", n, len(subs))
	}
	list, _ := st.Jobs(ctx)
	if len(list) != n {
		t.Fatalf("expected %d jobs, got %d", n, len(list))
	}
}

type failingStore struct{ *Memory }

var errDown = errors.New("backend down")

func (failingStore) SaveJobs(context.Context, []jobs.Job) error { return errDown }

func TestStateWrapsStoreErrors(t *testing.T) {
	st := NewState(failingStore{NewMemory()})
	err := st.AppendJob(context.Background(), jobs.Job{Title: "x"})
	if !errors.Is(err, errDown) {
		t.Fatalf("expected wrapped errDown, got %v", err)
	}
}
