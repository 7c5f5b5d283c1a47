package storage

import (
	"context"

	"github.com/lumehealth/carebot/internal/care"
	"github.com/lumehealth/carebot/internal/registry"
)

// RecipientSource exposes the stored recipient as a registry override source,
// so a linked recipient survives restarts without any runtime re-link.
type RecipientSource struct {
	store Store
}

// NewRecipientSource adapts store to the registry.OverrideSource interface.
func NewRecipientSource(store Store) *RecipientSource {
	return &RecipientSource{store: store}
}

var _ registry.OverrideSource = (*RecipientSource)(nil)

// Name implements registry.OverrideSource.
func (r *RecipientSource) Name() string { return "storage" }

// Lookup implements registry.OverrideSource.
func (r *RecipientSource) Lookup(ctx context.Context) (care.ChatID, bool, error) {
	return r.store.LoadRecipient(ctx)
}
