package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lumehealth/carebot/internal/errors"
	"github.com/lumehealth/carebot/internal/storage"
)

// EventRecord is the JSON shape published for each care event.
type EventRecord struct {
	Kind      string    `json:"kind"`
	Slot      string    `json:"slot,omitempty"`
	Day       string    `json:"day,omitempty"`
	ChatID    int64     `json:"chat_id"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PublishEvent mirrors one care event onto the stream under
// <prefix>.events.<kind>.
func (c *Client) PublishEvent(ctx context.Context, e storage.Event) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	record := EventRecord{
		Kind:      string(e.Kind),
		Slot:      string(e.Slot),
		Day:       string(e.Day),
		ChatID:    int64(e.ChatID),
		Detail:    e.Detail,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return errors.RelayError("marshal event", err)
	}

	subject := c.subjectFor(e.Kind)
	if _, err := c.js.Publish(ctx, subject, data); err != nil {
		return errors.RelayError("publish event", err).WithContext("subject", subject)
	}

	c.logger.Debug("care event relayed",
		slog.String("subject", subject),
		slog.String("kind", string(e.Kind)))
	return nil
}

// subjectFor maps an event kind onto the stream subject space.
func (c *Client) subjectFor(kind storage.EventKind) string {
	return c.subjectPrefix + ".events." + string(kind)
}
