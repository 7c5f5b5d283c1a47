// Package notify defines the outbound delivery contract. The scheduler core
// treats delivery as fire-and-forget: implementations report errors for
// logging and metrics, but delivery outcome never feeds back into job state.
package notify

import (
	"context"

	"github.com/lumehealth/carebot/internal/care"
)

// Button is an optional inline action attached to a message. Token is the
// opaque payload the transport routes back when the button is pressed.
type Button struct {
	Label string
	Token string
}

// Message is one outbound reminder or reply.
type Message struct {
	Text   string
	HTML   bool
	Button *Button
}

// Notifier delivers a message to a recipient channel. Implementations must be
// safe for concurrent use from timer firings.
type Notifier interface {
	Send(ctx context.Context, to care.ChatID, msg Message) error
}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, to care.ChatID, msg Message) error

func (f Func) Send(ctx context.Context, to care.ChatID, msg Message) error {
	return f(ctx, to, msg)
}
