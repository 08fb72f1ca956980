package metrics

import "time"

// NoopSink is used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

func NewNoopSink() *NoopSink { return &NoopSink{} }

func (n *NoopSink) CommandHandled(kind string) {}
func (n *NoopSink) HandleFailed() {}
func (n *NoopSink) DeliveryOutcome(outcome string) {}
func (n *NoopSink) BroadcastCompleted(recipients int, duration time.Duration) {}
func (n *NoopSink) BroadcastAborted() {}
func (n *NoopSink) WebhookRequest(statusClass string) {}
