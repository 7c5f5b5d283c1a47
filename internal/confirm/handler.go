package confirm

import (
	"context"
	"log/slog"

	"github.com/lumehealth/carebot/internal/care"
	"github.com/lumehealth/carebot/internal/errors"
	"github.com/lumehealth/carebot/internal/logfields"
	"github.com/lumehealth/carebot/internal/metrics"
)

// Resolver reports the currently resolved recipient.
type Resolver interface {
	Resolve(ctx context.Context) (care.ChatID, bool)
}

// Canceller removes the escalation job under an exact key, reporting how many
// jobs were removed.
type Canceller interface {
	Cancel(recipient care.ChatID, slot care.Slot, day care.Day) int
}

// Handler validates confirmations against the current recipient and delegates
// cancellation. A valid confirmation is always acknowledged, whether or not a
// job was still active.
type Handler struct {
	resolver Resolver
	manager  Canceller
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewHandler creates a confirmation handler.
func NewHandler(resolver Resolver, manager Canceller, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		resolver: resolver,
		manager:  manager,
		recorder: metrics.NoopRecorder{},
		logger:   logger,
	}
}

// SetRecorder injects the metrics recorder.
func (h *Handler) SetRecorder(rec metrics.Recorder) {
	if rec != nil {
		h.recorder = rec
	}
}

// HandleCallback parses a raw button payload and runs Confirm. Malformed
// payloads are rejected with a classified error, never a panic. The parsed
// token is returned so callers can phrase the acknowledgement.
func (h *Handler) HandleCallback(ctx context.Context, from care.ChatID, payload string) (Token, int, error) {
	token, err := ParseToken(payload)
	if err != nil {
		h.recorder.IncConfirmation("unknown", metrics.ConfirmMalformed)
		h.logger.Warn("malformed confirmation payload",
			logfields.ChatID(from),
			slog.String("payload", payload))
		return Token{}, 0, err
	}
	removed, err := h.Confirm(ctx, from, token)
	return token, removed, err
}

// Confirm validates the claimed sender against the resolved recipient and
// cancels the matching escalation. The removed count is informational; a nil
// error means acknowledged even when nothing was active to cancel.
func (h *Handler) Confirm(ctx context.Context, from care.ChatID, token Token) (int, error) {
	current, ok := h.resolver.Resolve(ctx)
	if !ok {
		h.recorder.IncConfirmation(string(token.Slot), metrics.ConfirmNotLinked)
		h.logger.Warn("confirmation received but no recipient linked",
			logfields.ChatID(from),
			logfields.Slot(token.Slot),
			logfields.Day(token.Day))
		return 0, errors.NotLinkedError("no recipient linked")
	}

	if from != current {
		h.recorder.IncConfirmation(string(token.Slot), metrics.ConfirmUnauthorized)
		h.logger.Warn("confirmation from non-recipient chat",
			logfields.ChatID(from),
			logfields.Slot(token.Slot),
			logfields.Day(token.Day))
		return 0, errors.UnauthorizedConfirm(int64(from))
	}

	removed := h.manager.Cancel(current, token.Slot, token.Day)

	result := metrics.ConfirmAccepted
	if removed == 0 {
		result = metrics.ConfirmStale
	}
	h.recorder.IncConfirmation(string(token.Slot), result)
	h.logger.Info("confirmation accepted",
		logfields.ChatID(from),
		logfields.Slot(token.Slot),
		logfields.Day(token.Day),
		slog.Int("removed", removed))
	return removed, nil
}
