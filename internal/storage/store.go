// Package storage persists the two things that must survive a restart: the
// recipient link and the append-only care event history. Escalation state is
// deliberately not stored; an in-flight nag loop ends with the process.
package storage

import (
	"context"
	"time"

	"github.com/lumehealth/carebot/internal/care"
)

// Store defines the persistence interface for recipient identity and history.
type Store interface {
	// SaveRecipient upserts the single recipient row.
	SaveRecipient(ctx context.Context, id care.ChatID) error

	// LoadRecipient returns the stored recipient; ok is false when no chat
	// was ever linked.
	LoadRecipient(ctx context.Context) (care.ChatID, bool, error)

	// AppendEvent adds one history row. The store assigns the timestamp.
	AppendEvent(ctx context.Context, e Event) error

	// EventsByDay returns the day's history in insertion order.
	EventsByDay(ctx context.Context, day care.Day) ([]Event, error)

	// LastConfirmation returns when the slot's occurrence on day was last
	// confirmed; ok is false when it never was.
	LastConfirmation(ctx context.Context, slot care.Slot, day care.Day) (time.Time, bool, error)

	// Close closes the store and releases resources.
	Close() error
}
