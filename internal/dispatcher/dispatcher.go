// Package dispatcher routes parsed commands to their handlers and owns the
// new-job broadcast.
//
// Handle processes one update to completion, broadcast included. Reply
// failures are logged and never fail the update; store failures do, except
// once a new job is saved: from then on nothing is reported to the caller,
// since a redelivered update would store the job twice.
package dispatcher

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"jobalert/internal/auth"
	"jobalert/internal/broadcast"
	"jobalert/internal/command"
	"jobalert/internal/jobs"
	"jobalert/internal/metrics"
	"jobalert/internal/notifier"
	"jobalert/internal/storage"
	"jobalert/internal/transport"
	logx "jobalert/pkg/logx"
)

type Options struct {
	Log     logx.Logger
	Metrics metrics.Sink
	// Timeout bounds one update including its broadcast. Zero means no limit.
	Timeout time.Duration
}

type Dispatcher struct {
	state   *storage.State
	n       notifier.Notifier
	bc      *broadcast.Service
	auth    atomic.Pointer[auth.Authorizer]
	log     logx.Logger
	metrics metrics.Sink
	chain   HandlerFunc
}

var _ transport.Handler = (*Dispatcher)(nil)

func New(state *storage.State, n notifier.Notifier, bc *broadcast.Service, a *auth.Authorizer, opt Options) *Dispatcher {
	log := opt.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	sink := opt.Metrics
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	d := &Dispatcher{
		state:   state,
		n:       n,
		bc:      bc,
		log:     log.With(logx.String("comp", "dispatcher")),
		metrics: sink,
	}
	d.auth.Store(a)
	d.chain = Chain(d.route,
		MWRequestLog(d.log),
		MWPanicRecover(d.log),
		MWTimeout(opt.Timeout),
	)
	return d
}

// SetAuthorizer swaps the authorizer used for subsequent updates.
func (d *Dispatcher) SetAuthorizer(a *auth.Authorizer) { d.auth.Store(a) }

func (d *Dispatcher) Handle(ctx context.Context, up transport.Update) error {
	m := up.Message
	if m == nil {
		return nil
	}
	if m.ChatID == 0 {
		d.log.Debug("update without chat ignored", logx.Int("update_id", up.ID))
		return nil
	}
	req := &Request{
		Update:  up,
		Message: m,
		Command: command.Parse(m.Text, m.FromFirstName),
		Logger:  d.log.With(logx.Int("update_id", up.ID), logx.Int64("chat_id", m.ChatID)),
	}
	err := d.chain(ctx, req)
	d.metrics.CommandHandled(req.Command.Kind.String())
	if err != nil {
		d.metrics.HandleFailed()
	}
	return err
}

func (d *Dispatcher) route(ctx context.Context, req *Request) error {
	switch req.Command.Kind {
	case command.KindStart:
		d.reply(ctx, req, startText(req.Command.DisplayName), true)
	case command.KindHelp:
		d.reply(ctx, req, helpText(), true)
	case command.KindListJobs:
		return d.listJobs(ctx, req)
	case command.KindSubscribe:
		return d.subscribe(ctx, req)
	case command.KindUnsubscribe:
		return d.unsubscribe(ctx, req)
	case command.KindAddJob:
		return d.addJob(ctx, req)
	case command.KindAddJobMalformed:
		d.reply(ctx, req, malformedText(), true)
	default:
		d.reply(ctx, req, msgUnknown, false)
	}
	return nil
}

func (d *Dispatcher) listJobs(ctx context.Context, req *Request) error {
	list, err := d.state.Jobs(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	if len(list) == 0 {
		d.reply(ctx, req, msgNoJobs, false)
		return nil
	}
	d.reply(ctx, req, jobListText(list), true)
	return nil
}

func (d *Dispatcher) subscribe(ctx context.Context, req *Request) error {
	added, err := d.state.AddSubscriber(ctx, req.Message.ChatID)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if !added {
		d.reply(ctx, req, msgAlreadySubscribed, false)
		return nil
	}
	req.Logger.Info("subscriber added")
	d.reply(ctx, req, msgSubscribed, false)
	return nil
}

func (d *Dispatcher) unsubscribe(ctx context.Context, req *Request) error {
	removed, err := d.state.RemoveSubscriber(ctx, req.Message.ChatID)
	if err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	if !removed {
		d.reply(ctx, req, msgNotSubscribed, false)
		return nil
	}
	req.Logger.Info("subscriber removed")
	d.reply(ctx, req, msgUnsubscribed, false)
	return nil
}

func (d *Dispatcher) addJob(ctx context.Context, req *Request) error {
	cmd := req.Command
	if !d.auth.Load().Allowed(req.Message.FromID, cmd.Secret) {
		req.Logger.Warn("addjob rejected", logx.Int64("from_id", req.Message.FromID))
		d.reply(ctx, req, msgRejected, false)
		return nil
	}

	job := jobs.Job{
		Title:    cmd.Job.Title,
		Location: cmd.Job.Location,
		Deadline: cmd.Job.Deadline,
		Link:     cmd.Job.Link,
		Type:     cmd.Job.Type,
	}
	if err := d.state.AppendJob(ctx, job); err != nil {
		return fmt.Errorf("add job: %w", err)
	}
	req.Logger.Info("job added", logx.String("title", job.Title))
	d.reply(ctx, req, msgJobAdded, false)

	subs, err := d.state.Subscribers(ctx)
	if err != nil {
		req.Logger.Error("job broadcast aborted", logx.String("title", job.Title), logx.Err(err))
		d.metrics.BroadcastAborted()
		return nil
	}
	res := d.bc.Send(ctx, subs, newJobText(job), true)
	req.Logger.Info("job broadcast",
		logx.String("broadcast", res.ID),
		logx.Int("total", res.Total),
		logx.Int("sent", res.Sent),
		logx.Int("failed", res.Failed),
	)
	return nil
}

// reply sends a direct answer to the requesting chat. Failures and panics
// are logged only.
func (d *Dispatcher) reply(ctx context.Context, req *Request, text string, formatted bool) {
	defer func() {
		if r := recover(); r != nil {
			req.Logger.Error("reply panicked", logx.String("cmd", req.Command.Kind.String()), logx.Any("panic", r))
		}
	}()
	if err := d.n.Send(ctx, req.Message.ChatID, text, formatted); err != nil {
		req.Logger.Warn("reply failed", logx.String("cmd", req.Command.Kind.String()), logx.Err(err))
	}
}
