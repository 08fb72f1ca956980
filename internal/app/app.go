package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jobalert/internal/auth"
	"jobalert/internal/broadcast"
	"jobalert/internal/config"
	"jobalert/internal/dispatcher"
	"jobalert/internal/metrics"
	"jobalert/internal/notifier"
	"jobalert/internal/runtime/supervisor"
	"jobalert/internal/storage"
	telegram "jobalert/internal/transport/telegram/adapter"
	"jobalert/internal/transport/webhook"
	logx "jobalert/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	store storage.Store
	state *storage.State

	tg       *telegram.Adapter
	notifier notifier.Notifier
	bc       *broadcast.Service
	disp     *dispatcher.Dispatcher
	web      *webhook.Server
	metrics  metrics.Sink
}

type options struct {
	notifier notifier.Notifier
	getenv   func(string) string
}

type Option func(*options)

// WithNotifier replaces the Telegram adapter for outbound messages.
// Only valid in webhook mode.
func WithNotifier(n notifier.Notifier) Option { return func(o *options) { o.notifier = n } }

// WithGetenv replaces the environment lookup for config overrides.
func WithGetenv(fn func(string) string) Option { return func(o *options) { o.getenv = fn } }

func NewApp(cfgPath string, opts ...Option) (*App, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	cfgm := config.NewConfigManager(cfgPath)
	if o.getenv != nil {
		cfgm.SetGetenv(o.getenv)
	}
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	if !strings.EqualFold(cfg.Logging.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	var (
		sink        metrics.Sink = metrics.NewNoopSink()
		metricsHTTP http.Handler
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		sink = metrics.NewPrometheusSink(reg, log.With(logx.String("comp", "metrics")))
		metricsHTTP = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	store, err := OpenStore(cfg, log)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	state := storage.NewState(store)

	a := &App{
		cfgm:    cfgm,
		log:     log.With(logx.String("comp", "app")),
		logs:    logSvc,
		store:   store,
		state:   state,
		metrics: sink,
	}

	n := o.notifier
	if n == nil || cfg.Telegram.Mode == config.ModePolling {
		tg, err := NewTelegram(cfg, log)
		if err != nil {
			_ = store.Close()
			_ = logSvc.Close()
			return nil, err
		}
		a.tg = tg
		if n == nil {
			n = tg
		}
	}
	a.notifier = n

	a.bc = broadcast.New(broadcast.Config{
		Workers:    cfg.Broadcast.Workers,
		RatePerSec: cfg.Broadcast.RatePerSec,
	}, n, log, sink)

	a.disp = dispatcher.New(state, n, a.bc, newAuthorizer(cfg), dispatcher.Options{
		Log:     log,
		Metrics: sink,
		Timeout: cfg.Broadcast.TimeoutOrDefault(),
	})

	if cfg.Telegram.Mode == config.ModeWebhook {
		a.web = webhook.New(webhook.Config{
			Addr:            cfg.HTTP.Addr,
			Path:            cfg.HTTP.Path,
			Secret:          cfg.Telegram.WebhookSecret,
			ReadTimeout:     cfg.HTTP.ReadTimeoutOrDefault(),
			WriteTimeout:    cfg.HTTP.WriteTimeoutOrDefault(),
			ShutdownTimeout: cfg.HTTP.ShutdownTimeoutOrDefault(),
			MetricsPath:     cfg.Metrics.Path,
		}, a.disp, webhook.Options{
			Log:            log,
			Metrics:        sink,
			Health:         state.Ping,
			MetricsHandler: metricsHTTP,
		})
	}

	a.log.Info("app configured",
		logx.String("mode", cfg.Telegram.Mode),
		logx.String("storage", cfg.Storage.Driver),
		logx.Bool("admin_enabled", cfg.Admin.ID != 0),
		logx.Bool("metrics", cfg.Metrics.Enabled),
	)
	return a, nil
}

func newAuthorizer(cfg *config.Config) *auth.Authorizer {
	return auth.New(auth.Config{AdminID: cfg.Admin.ID, Secret: cfg.Admin.Secret})
}

// Dispatcher exposes the update handler, mainly for tests.
func (a *App) Dispatcher() *dispatcher.Dispatcher { return a.disp }

// Webhook returns the HTTP server; nil in polling mode.
func (a *App) Webhook() *webhook.Server { return a.web }

// Done is closed when the app supervisor context is cancelled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	if a.web != nil {
		a.sup.Go("http.server", a.web.Run)
	} else {
		if err := a.tg.StartPolling(a.sup.Context(), a.disp); err != nil {
			a.sup.Cancel()
			return err
		}
	}

	if a.cfgm.Path() != "" {
		a.sup.GoRestart("config.watch", a.cfgm.Watch, 250*time.Millisecond, 5*time.Second)
	}
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.log.Info("app started")
	return nil
}

// applyConfig applies the live-reloadable sections (admin, logging).
func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config change applied", fields...)

	a.logs.Apply(mapLogConfig(newCfg))
	a.disp.SetAuthorizer(newAuthorizer(newCfg))

	if pending := config.RestartRequired(sections); len(pending) > 0 {
		a.log.Warn("config changed; restart required for changes to take effect", logx.String("sections", strings.Join(pending, ",")))
	}
}

func (a *App) Stop(ctx context.Context) error {
	var errs []error
	if a.tg != nil {
		if err := a.tg.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	a.log.Info("app stopped")
	if err := a.logs.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
