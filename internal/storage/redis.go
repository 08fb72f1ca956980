package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"jobalert/internal/jobs"
	logx "jobalert/pkg/logx"
)

// redisStore keeps jobs in a list of JSON values (RPUSH order = insertion
// order) and subscribers in a set.
type redisStore struct {
	client  *redis.Client
	log     logx.Logger
	jobsKey string
	subsKey string
}

func openRedis(cfg Config, log logx.Logger) (Store, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "jobalert:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Debug("redis store opened", logx.String("addr", addr), logx.String("prefix", prefix))
	return &redisStore{client: client, log: log, jobsKey: prefix + "jobs", subsKey: prefix + "subscribers"}, nil
}

func (s *redisStore) LoadJobs(ctx context.Context) ([]jobs.Job, error) {
	vals, err := s.client.LRange(ctx, s.jobsKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]jobs.Job, 0, len(vals))
	for i, v := range vals {
		var j jobs.Job
		if err := json.Unmarshal([]byte(v), &j); err != nil {
			return nil, fmt.Errorf("decode job %d: %w", i, err)
		}
		out = append(out, j)
	}
	return out, nil
}

func (s *redisStore) SaveJobs(ctx context.Context, list []jobs.Job) error {
	vals := make([]any, 0, len(list))
	for _, j := range list {
		b, err := json.Marshal(j)
		if err != nil {
			return err
		}
		vals = append(vals, string(b))
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.jobsKey)
		if len(vals) > 0 {
			pipe.RPush(ctx, s.jobsKey, vals...)
		}
		return nil
	})
	return err
}

func (s *redisStore) LoadSubscribers(ctx context.Context) ([]jobs.SubscriberID, error) {
	vals, err := s.client.SMembers(ctx, s.subsKey).Result()
	if err != nil {
		return nil, err
	}
	return decodeSubscriberIDs(vals)
}

// decodeSubscriberIDs parses set members into sorted ids. A malformed member
// fails the load; skipping it would drop it from the set on the next save.
func decodeSubscriberIDs(vals []string) ([]jobs.SubscriberID, error) {
	out := make([]jobs.SubscriberID, 0, len(vals))
	for _, v := range vals {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode subscriber %q: %w", v, err)
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *redisStore) SaveSubscribers(ctx context.Context, set []jobs.SubscriberID) error {
	vals := make([]any, 0, len(set))
	for _, id := range set {
		vals = append(vals, strconv.FormatInt(id, 10))
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.subsKey)
		if len(vals) > 0 {
			pipe.SAdd(ctx, s.subsKey, vals...)
		}
		return nil
	})
	return err
}

func (s *redisStore) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *redisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
