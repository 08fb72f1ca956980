package storage

import (
	"context"
	"errors"
	"time"

	"jobalert/internal/jobs"
)

var (
	ErrClosed        = errors.New("storage closed")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Config configures storage.
//
// Driver values:
//   - "memory": in-process only (tests, dry runs)
//   - "file": jobs.json + users.json under Path (a directory)
//   - "sqlite": SQLite database file at Path
//   - "postgres": PostgreSQL at DSN
//   - "redis": Redis at Addr; keys are prefixed with KeyPrefix
type Config struct {
	Driver      string
	Path        string
	DSN         string
	Addr        string
	Password    string
	DB          int
	KeyPrefix   string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the full-collection persistence contract. There is no partial
// update API: Save* replaces the whole collection.
type Store interface {
	LoadJobs(ctx context.Context) ([]jobs.Job, error)
	SaveJobs(ctx context.Context, list []jobs.Job) error
	LoadSubscribers(ctx context.Context) ([]jobs.SubscriberID, error)
	SaveSubscribers(ctx context.Context, set []jobs.SubscriberID) error
	Close() error
}

// Pinger is implemented by drivers that can check backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
