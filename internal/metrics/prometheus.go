package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	logx "jobalert/pkg/logx"
)

// PrometheusSink implements Sink with the Prometheus client library.
// Registration errors are logged, never propagated.
type PrometheusSink struct {
	log logx.Logger

	commandsTotal     *prometheus.CounterVec
	handleErrorsTotal prometheus.Counter

	deliveriesTotal    *prometheus.CounterVec
	broadcastsTotal    prometheus.Counter
	broadcastRecipient prometheus.Histogram
	broadcastDuration  prometheus.Histogram
	broadcastsAborted  prometheus.Counter

	webhookRequestsTotal *prometheus.CounterVec
}

func NewPrometheusSink(reg prometheus.Registerer, log logx.Logger) *PrometheusSink {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &PrometheusSink{log: log}

	s.commandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobalert_commands_total",
		Help: "Total number of dispatched updates by command kind.",
	}, []string{"command"})
	s.handleErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobalert_handle_errors_total",
		Help: "Total number of updates whose processing failed.",
	})
	s.deliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobalert_broadcast_deliveries_total",
		Help: "Total number of broadcast deliveries by outcome.",
	}, []string{"outcome"})
	s.broadcastsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobalert_broadcasts_total",
		Help: "Total number of completed broadcasts.",
	})
	s.broadcastRecipient = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "jobalert_broadcast_recipients",
		Help:    "Number of recipients per broadcast.",
		Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
	})
	s.broadcastDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "jobalert_broadcast_duration_seconds",
		Help:    "Wall time of a full broadcast in seconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
	s.broadcastsAborted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobalert_broadcasts_aborted_total",
		Help: "Total number of broadcasts dropped before any delivery.",
	})
	s.webhookRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobalert_webhook_requests_total",
		Help: "Total number of webhook requests by status class.",
	}, []string{"status_class"})

	s.register(reg, s.commandsTotal, "jobalert_commands_total")
	s.register(reg, s.handleErrorsTotal, "jobalert_handle_errors_total")
	s.register(reg, s.deliveriesTotal, "jobalert_broadcast_deliveries_total")
	s.register(reg, s.broadcastsTotal, "jobalert_broadcasts_total")
	s.register(reg, s.broadcastRecipient, "jobalert_broadcast_recipients")
	s.register(reg, s.broadcastDuration, "jobalert_broadcast_duration_seconds")
	s.register(reg, s.broadcastsAborted, "jobalert_broadcasts_aborted_total")
	s.register(reg, s.webhookRequestsTotal, "jobalert_webhook_requests_total")
	return s
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if reg == nil {
		return
	}
	if err := reg.Register(c); err != nil {
		s.log.Warn("metrics: failed to register collector", logx.String("name", name), logx.Err(err))
	}
}

func (s *PrometheusSink) CommandHandled(kind string) {
	s.commandsTotal.WithLabelValues(kind).Inc()
}

func (s *PrometheusSink) HandleFailed() {
	s.handleErrorsTotal.Inc()
}

func (s *PrometheusSink) DeliveryOutcome(outcome string) {
	s.deliveriesTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) BroadcastCompleted(recipients int, duration time.Duration) {
	s.broadcastsTotal.Inc()
	s.broadcastRecipient.Observe(float64(recipients))
	s.broadcastDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) BroadcastAborted() {
	s.broadcastsAborted.Inc()
}

func (s *PrometheusSink) WebhookRequest(statusClass string) {
	s.webhookRequestsTotal.WithLabelValues(statusClass).Inc()
}
