package relay

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/lumehealth/carebot/internal/care"
	"github.com/lumehealth/carebot/internal/registry"
)

// kvRecipientKey is the bucket key operators set to force a recipient.
const kvRecipientKey = "recipient"

// KVOverride resolves the recipient from a JetStream KV bucket, letting
// operators repoint the bot without touching its runtime state.
type KVOverride struct {
	kv jetstream.KeyValue
}

var _ registry.OverrideSource = (*KVOverride)(nil)

// Name implements registry.OverrideSource.
func (o *KVOverride) Name() string { return "nats-kv" }

// Lookup implements registry.OverrideSource. A missing key means no
// override, not an error.
func (o *KVOverride) Lookup(ctx context.Context) (care.ChatID, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, kvTimeout)
	defer cancel()

	entry, err := o.kv.Get(ctx, kvRecipientKey)
	if err != nil {
		if stdErrors.Is(err, jetstream.ErrKeyNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return parseRecipientValue(entry.Value())
}

// parseRecipientValue decodes a chat id stored as decimal text.
func parseRecipientValue(value []byte) (care.ChatID, bool, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(string(value)), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("recipient override is not a chat id: %q", value)
	}
	return care.ChatID(id), true, nil
}
