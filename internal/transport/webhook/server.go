// Package webhook serves the Telegram webhook and the service's HTTP routes
// with gin.
package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tele "gopkg.in/telebot.v4"

	"jobalert/internal/metrics"
	"jobalert/internal/transport"
	"jobalert/internal/transport/telegram/adapter"
	logx "jobalert/pkg/logx"
)

const (
	DefaultPath        = "/api/bot"
	DefaultMetricsPath = "/metrics"

	// SecretHeader carries the secret_token registered with setWebhook.
	SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

	banner       = "Job Alert Bot (Webhook) is running."
	maxBodyBytes = 1 << 20
)

type Config struct {
	Addr string
	Path string
	// Secret, when set, must match the SecretHeader of every webhook call.
	Secret          string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MetricsPath     string
}

// HealthFunc reports backend reachability for /api/health.
type HealthFunc func(ctx context.Context) error

type Options struct {
	Log     logx.Logger
	Metrics metrics.Sink
	Health  HealthFunc
	// MetricsHandler is mounted on Config.MetricsPath when non-nil.
	MetricsHandler http.Handler
}

type Server struct {
	cfg     Config
	h       transport.Handler
	log     logx.Logger
	metrics metrics.Sink
	health  HealthFunc
	engine  *gin.Engine
}

func New(cfg Config, h transport.Handler, opt Options) *Server {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = DefaultMetricsPath
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	log := opt.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	sink := opt.Metrics
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	s := &Server{
		cfg:     cfg,
		h:       h,
		log:     log.With(logx.String("comp", "webhook")),
		metrics: sink,
		health:  opt.Health,
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())
	r.GET("/", s.index)
	r.GET("/api/health", s.healthz)
	r.POST(cfg.Path, s.webhook)
	if opt.MetricsHandler != nil {
		r.GET(cfg.MetricsPath, gin.WrapH(opt.MetricsHandler))
	}
	s.engine = r
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("http server listening", logx.String("addr", ln.Addr().String()), logx.String("path", s.cfg.Path))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		s.log.Warn("http shutdown incomplete", logx.Err(err))
		return err
	}
	s.log.Info("http server stopped")
	return nil
}

func (s *Server) index(c *gin.Context) {
	c.String(http.StatusOK, banner)
}

func (s *Server) healthz(c *gin.Context) {
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) webhook(c *gin.Context) {
	if s.cfg.Secret != "" {
		got := c.GetHeader(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.Secret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false})
			return
		}
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	var u tele.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		s.log.Debug("undecodable update", logx.Err(err))
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid update"})
		return
	}

	if err := s.h.Handle(c.Request.Context(), adapter.FromTele(u)); err != nil {
		s.log.Error("update processing failed", logx.Int("update_id", u.ID), logx.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		if c.FullPath() == s.cfg.Path {
			s.metrics.WebhookRequest(metrics.ClassifyStatus(status))
		}
		s.log.Debug("http request",
			logx.String("method", c.Request.Method),
			logx.String("path", c.Request.URL.Path),
			logx.Int("status", status),
			logx.Duration("dur", time.Since(start)),
		)
	}
}
