package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobalert/internal/jobs"
	logx "jobalert/pkg/logx"
)

//go:embed schema_postgres.sql
var postgresSchema string

type postgresStore struct {
	pool *pgxpool.Pool
	log  logx.Logger
}

func openPostgres(cfg Config, log logx.Logger) (Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	log.Debug("postgres store opened", logx.String("host", pcfg.ConnConfig.Host))
	return &postgresStore{pool: pool, log: log}, nil
}

func (s *postgresStore) LoadJobs(ctx context.Context) ([]jobs.Job, error) {
	rows, err := s.pool.Query(ctx, `SELECT title, location, deadline, link, type FROM jobs ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (jobs.Job, error) {
		var j jobs.Job
		err := row.Scan(&j.Title, &j.Location, &j.Deadline, &j.Link, &j.Type)
		return j, err
	})
}

func (s *postgresStore) SaveJobs(ctx context.Context, list []jobs.Job) error {
	rows := make([][]any, 0, len(list))
	for _, j := range list {
		rows = append(rows, []any{j.Title, j.Location, j.Deadline, j.Link, j.Type})
	}
	return s.replace(ctx, "jobs", []string{"title", "location", "deadline", "link", "type"}, rows)
}

func (s *postgresStore) LoadSubscribers(ctx context.Context) ([]jobs.SubscriberID, error) {
	rows, err := s.pool.Query(ctx, `SELECT chat_id FROM subscribers`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (s *postgresStore) SaveSubscribers(ctx context.Context, set []jobs.SubscriberID) error {
	seen := make(map[int64]struct{}, len(set))
	rows := make([][]any, 0, len(set))
	for _, id := range set {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, []any{id})
	}
	return s.replace(ctx, "subscribers", []string{"chat_id"}, rows)
}

// replace empties table and COPYs rows back in one transaction. COPY keeps
// row order, so jobs.seq follows the slice order.
func (s *postgresStore) replace(ctx context.Context, table string, cols []string, rows [][]any) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM "+pgx.Identifier{table}.Sanitize()); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{table}, cols, pgx.CopyFromRows(rows))
		return err
	})
}

func (s *postgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *postgresStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
