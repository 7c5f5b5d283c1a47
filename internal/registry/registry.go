// Package registry resolves the identity of the single reminder recipient.
// Identity lives in two tiers: durable override channels consulted on every
// resolve, and a runtime value set by linking that is lost on restart.
package registry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lumehealth/carebot/internal/care"
	"github.com/lumehealth/carebot/internal/logfields"
)

// DefaultEnvVar is the environment variable consulted for a recipient override.
const DefaultEnvVar = "CAREBOT_RECIPIENT_CHAT_ID"

// OverrideSource is an external key-value channel that may hold a persisted
// recipient identity. Sources are consulted in priority order on every
// Resolve call; the first source reporting a value wins.
type OverrideSource interface {
	Name() string
	Lookup(ctx context.Context) (care.ChatID, bool, error)
}

// Registry is the process-wide recipient resolver. Safe for concurrent use
// from trigger firings, confirmation handling and linking commands.
type Registry struct {
	mu      sync.RWMutex
	runtime care.ChatID
	linked  bool

	sources []OverrideSource
	logger  *slog.Logger
}

// New creates a Registry consulting the given override sources in order.
func New(logger *slog.Logger, sources ...OverrideSource) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{sources: sources, logger: logger}
}

// Resolve returns the current recipient: the highest-priority override if any
// source holds one, else the runtime value, else unset. A failing source is
// logged and skipped so a broken override channel never masks the tiers below.
func (r *Registry) Resolve(ctx context.Context) (care.ChatID, bool) {
	for _, src := range r.sources {
		id, ok, err := src.Lookup(ctx)
		if err != nil {
			r.logger.Warn("recipient override lookup failed",
				slog.String("source", src.Name()),
				logfields.Error(err))
			continue
		}
		if ok {
			return id, true
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runtime, r.linked
}

// Link sets the runtime recipient. Last write wins, no merge, no history.
// Durable persistence is the caller's concern.
func (r *Registry) Link(id care.ChatID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runtime = id
	r.linked = true
}

// Unlink clears the runtime recipient. Override sources are unaffected.
func (r *Registry) Unlink() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runtime = 0
	r.linked = false
}

// Runtime reports the runtime tier only, ignoring override sources.
func (r *Registry) Runtime() (care.ChatID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runtime, r.linked
}
