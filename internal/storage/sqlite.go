package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jobalert/internal/jobs"
	logx "jobalert/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(context.Background(), sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	log.Debug("sqlite store opened", logx.String("path", path))
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) LoadJobs(ctx context.Context) ([]jobs.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title, location, deadline, link, type FROM jobs ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []jobs.Job
	for rows.Next() {
		var j jobs.Job
		if err := rows.Scan(&j.Title, &j.Location, &j.Deadline, &j.Link, &j.Type); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SaveJobs(ctx context.Context, list []jobs.Job) error {
	return s.replace(ctx, `DELETE FROM jobs`, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO jobs(title, location, deadline, link, type) VALUES(?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, j := range list {
			if _, err := stmt.ExecContext(ctx, j.Title, j.Location, j.Deadline, j.Link, j.Type); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *sqliteStore) LoadSubscribers(ctx context.Context) ([]jobs.SubscriberID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chat_id FROM subscribers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []jobs.SubscriberID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SaveSubscribers(ctx context.Context, set []jobs.SubscriberID) error {
	return s.replace(ctx, `DELETE FROM subscribers`, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO subscribers(chat_id) VALUES(?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, id := range set {
			if _, err := stmt.ExecContext(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// replace clears a table and refills it inside one transaction.
func (s *sqliteStore) replace(ctx context.Context, clear string, fill func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, clear); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := fill(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
