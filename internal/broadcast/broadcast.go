// Package broadcast fans one message out to many chats.
//
// Each recipient is an independent delivery: a failure (error, cancelled
// context or panic in the notifier) is recorded for that recipient only and
// never stops the others. Delivery is attempted at most once per recipient.
package broadcast

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"jobalert/internal/metrics"
	"jobalert/internal/notifier"
	logx "jobalert/pkg/logx"
)

const (
	DefaultWorkers    = 4
	DefaultRatePerSec = 25

	maxFailures = 200
)

type Config struct {
	Workers int
	// RatePerSec caps sends per second across all workers. Zero or negative
	// disables the limit; config maps an unset rate to DefaultRatePerSec.
	RatePerSec float64
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	return c
}

type Failure struct {
	ChatID int64
	Err    error
}

type Result struct {
	ID       string
	Total    int
	Sent     int
	Failed   int
	Failures []Failure
	Duration time.Duration
}

type Service struct {
	cfg     Config
	n       notifier.Notifier
	log     logx.Logger
	metrics metrics.Sink
	limiter *rate.Limiter
}

func New(cfg Config, n notifier.Notifier, log logx.Logger, sink metrics.Sink) *Service {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	lim := rate.NewLimiter(rate.Inf, cfg.Workers)
	if cfg.RatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Workers)
	}
	return &Service{
		cfg:     cfg,
		n:       n,
		log:     log.With(logx.String("comp", "broadcast")),
		metrics: sink,
		limiter: lim,
	}
}

// Send delivers text to every recipient and returns once all deliveries have
// finished. Duplicate recipients are sent to once.
func (s *Service) Send(ctx context.Context, recipients []int64, text string, formatted bool) Result {
	start := time.Now()
	targets := dedupe(recipients)
	res := Result{ID: uuid.NewString(), Total: len(targets)}
	if len(targets) == 0 {
		s.metrics.BroadcastCompleted(0, 0)
		return res
	}

	s.log.Info("broadcast started", logx.String("broadcast", res.ID), logx.Int("total", res.Total))

	workers := min(s.cfg.Workers, len(targets))
	queue := make(chan int64)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(chatID int64, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			res.Sent++
			s.metrics.DeliveryOutcome(metrics.OutcomeSent)
			return
		}
		res.Failed++
		if len(res.Failures) < maxFailures {
			res.Failures = append(res.Failures, Failure{ChatID: chatID, Err: err})
		}
		s.metrics.DeliveryOutcome(metrics.OutcomeFailed)
		s.log.Warn("broadcast send failed", logx.String("broadcast", res.ID), logx.Int64("chat_id", chatID), logx.Err(err))
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chatID := range queue {
				record(chatID, s.sendOne(ctx, chatID, text, formatted))
			}
		}()
	}
	for _, id := range targets {
		queue <- id
	}
	close(queue)
	wg.Wait()

	res.Duration = time.Since(start)
	s.metrics.BroadcastCompleted(res.Total, res.Duration)

	fields := []logx.Field{
		logx.String("broadcast", res.ID),
		logx.Int("total", res.Total),
		logx.Int("sent", res.Sent),
		logx.Int("failed", res.Failed),
		logx.Duration("dur", res.Duration),
	}
	if res.Failed > 0 {
		s.log.Warn("broadcast finished with failures", fields...)
	} else {
		s.log.Info("broadcast finished", fields...)
	}
	return res
}

func (s *Service) sendOne(ctx context.Context, chatID int64, text string, formatted bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("broadcast send panicked", logx.Int64("chat_id", chatID), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.n.Send(ctx, chatID, text, formatted)
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
