package metrics

import "time"

// Sink records bot metrics. Methods are fire-and-forget: implementations
// must not block or return errors.
type Sink interface {
	// CommandHandled counts one dispatched update by command kind.
	CommandHandled(kind string)
	// HandleFailed counts updates whose processing returned an error.
	HandleFailed()

	DeliveryOutcome(outcome string)
	BroadcastCompleted(recipients int, duration time.Duration)
	// BroadcastAborted counts broadcasts that never reached the fan-out,
	// e.g. because the subscriber list could not be read.
	BroadcastAborted()

	WebhookRequest(statusClass string)
}

// Outcome values for DeliveryOutcome.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

// ClassifyStatus maps an HTTP status code to a coarse class label.
func ClassifyStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "other"
	}
}
