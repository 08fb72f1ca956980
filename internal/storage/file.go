package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"jobalert/internal/jobs"
	logx "jobalert/pkg/logx"
)

const (
	jobsFileName  = "jobs.json"
	usersFileName = "users.json"
)

// fileStore keeps each collection in its own JSON array file:
//   - <dir>/jobs.json  (array of job objects, oldest first)
//   - <dir>/users.json (array of chat ids)
//
// Writes go to a temp file that is renamed over the target, so readers see
// either the old or the new collection, never a torn one.
type fileStore struct {
	log logx.Logger

	mu        sync.Mutex
	jobsPath  string
	usersPath string
	closed    bool
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		dir = "./data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage dir: %w", err)
	}

	s := &fileStore{
		log:       log,
		jobsPath:  filepath.Join(dir, jobsFileName),
		usersPath: filepath.Join(dir, usersFileName),
	}
	for _, p := range []string{s.jobsPath, s.usersPath} {
		if err := ensureJSONArray(p); err != nil {
			return nil, err
		}
	}
	log.Debug("file store opened", logx.String("dir", dir))
	return s, nil
}

func ensureJSONArray(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return writeFileAtomic(path, []byte("[]\n"))
}

func (s *fileStore) LoadJobs(ctx context.Context) ([]jobs.Job, error) {
	var out []jobs.Job
	if err := s.load(ctx, s.jobsPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *fileStore) SaveJobs(ctx context.Context, list []jobs.Job) error {
	if list == nil {
		list = []jobs.Job{}
	}
	return s.save(ctx, s.jobsPath, list)
}

func (s *fileStore) LoadSubscribers(ctx context.Context) ([]jobs.SubscriberID, error) {
	var out []jobs.SubscriberID
	if err := s.load(ctx, s.usersPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *fileStore) SaveSubscribers(ctx context.Context, set []jobs.SubscriberID) error {
	if set == nil {
		set = []jobs.SubscriberID{}
	}
	return s.save(ctx, s.usersPath, set)
}

func (s *fileStore) load(ctx context.Context, path string, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *fileStore) save(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return writeFileAtomic(path, buf.Bytes())
}

func writeFileAtomic(path string, b []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *fileStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	_, err := os.Stat(s.jobsPath)
	return err
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
