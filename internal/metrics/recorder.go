package metrics

import "time"

// ConfirmResult enumerates confirmation outcomes for counters.
type ConfirmResult string

const (
	ConfirmAccepted     ConfirmResult = "accepted"
	ConfirmStale        ConfirmResult = "stale"
	ConfirmUnauthorized ConfirmResult = "unauthorized"
	ConfirmNotLinked    ConfirmResult = "not_linked"
	ConfirmMalformed    ConfirmResult = "malformed"
)

// SkipReason enumerates why an armed escalation fired without sending.
type SkipReason string

const (
	SkipConfirmed        SkipReason = "confirmed"
	SkipNoRecipient      SkipReason = "no_recipient"
	SkipRecipientChanged SkipReason = "recipient_changed"
)

// Recorder defines observability hooks for reminder delivery and escalation.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe on the NoopRecorder (allowing optional injection).
type Recorder interface {
	IncTriggerFired(slot string)
	IncNagSent(slot string)
	IncNagSkipped(slot string, reason SkipReason)
	IncConfirmation(slot string, result ConfirmResult)
	SetActiveEscalations(n int)
	ObserveDeliveryDuration(method string, d time.Duration, success bool)
	IncDeliveryResult(method string, success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncTriggerFired(string)                                {}
func (NoopRecorder) IncNagSent(string)                                     {}
func (NoopRecorder) IncNagSkipped(string, SkipReason)                      {}
func (NoopRecorder) IncConfirmation(string, ConfirmResult)                 {}
func (NoopRecorder) SetActiveEscalations(int)                              {}
func (NoopRecorder) ObserveDeliveryDuration(string, time.Duration, bool)   {}
func (NoopRecorder) IncDeliveryResult(string, bool)                        {}
