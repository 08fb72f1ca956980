package storage

import (
	"context"
	"fmt"
	"sync"

	"jobalert/internal/jobs"
)

// State wraps a Store with per-collection write serialization.
//
// Reads always go to the store (no caching). Each mutation runs its
// load-mutate-save sequence while holding that collection's lock.
type State struct {
	store Store

	jobsMu sync.Mutex
	subsMu sync.Mutex
}

func NewState(store Store) *State {
	return &State{store: store}
}

// Store returns the underlying store.
func (s *State) Store() Store { return s.store }

func (s *State) Jobs(ctx context.Context) ([]jobs.Job, error) {
	list, err := s.store.LoadJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	return list, nil
}

func (s *State) Subscribers(ctx context.Context) ([]jobs.SubscriberID, error) {
	set, err := s.store.LoadSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subscribers: %w", err)
	}
	return set, nil
}

// AppendJob adds j at the end of the jobs collection.
func (s *State) AppendJob(ctx context.Context, j jobs.Job) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	list, err := s.Jobs(ctx)
	if err != nil {
		return err
	}
	list = append(list, j)
	if err := s.store.SaveJobs(ctx, list); err != nil {
		return fmt.Errorf("save jobs: %w", err)
	}
	return nil
}

// AddSubscriber adds id if absent. added is false when id was already present;
// in that case nothing is written.
func (s *State) AddSubscriber(ctx context.Context, id jobs.SubscriberID) (added bool, err error) {
	return s.mutateSubscribers(ctx, func(set []jobs.SubscriberID) ([]jobs.SubscriberID, bool) {
		return jobs.AddSubscriber(set, id)
	})
}

// RemoveSubscriber removes id if present. removed is false when id was absent;
// in that case nothing is written.
func (s *State) RemoveSubscriber(ctx context.Context, id jobs.SubscriberID) (removed bool, err error) {
	return s.mutateSubscribers(ctx, func(set []jobs.SubscriberID) ([]jobs.SubscriberID, bool) {
		return jobs.RemoveSubscriber(set, id)
	})
}

func (s *State) mutateSubscribers(ctx context.Context, fn func([]jobs.SubscriberID) ([]jobs.SubscriberID, bool)) (bool, error) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	set, err := s.Subscribers(ctx)
	if err != nil {
		return false, err
	}
	next, changed := fn(set)
	if !changed {
		return false, nil
	}
	if err := s.store.SaveSubscribers(ctx, next); err != nil {
		return false, fmt.Errorf("save subscribers: %w", err)
	}
	return true, nil
}

// Ping checks store reachability when the driver supports it.
func (s *State) Ping(ctx context.Context) error {
	if p, ok := s.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
