package storage

import (
	"context"
	"sync"

	"jobalert/internal/jobs"
)

// Memory is an in-process Store. Slices are copied on the way in and out so
// callers can never alias stored state.
type Memory struct {
	mu     sync.Mutex
	jobs   []jobs.Job
	subs   []jobs.SubscriberID
	closed bool
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) LoadJobs(ctx context.Context) ([]jobs.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return append([]jobs.Job(nil), m.jobs...), nil
}

func (m *Memory) SaveJobs(ctx context.Context, list []jobs.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.jobs = append([]jobs.Job(nil), list...)
	return nil
}

func (m *Memory) LoadSubscribers(ctx context.Context) ([]jobs.SubscriberID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return append([]jobs.SubscriberID(nil), m.subs...), nil
}

func (m *Memory) SaveSubscribers(ctx context.Context, set []jobs.SubscriberID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.subs = append([]jobs.SubscriberID(nil), set...)
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return ctx.Err()
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
