package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/lumehealth/carebot/internal/logfields"
)

// defaultPollBackoff is the pause after a failed getUpdates call before the
// next attempt.
const defaultPollBackoff = 3 * time.Second

// UpdateHandler consumes a single update. The poller dispatches updates
// sequentially; slow handlers delay the next poll.
type UpdateHandler func(ctx context.Context, update Update)

// Poller long-polls getUpdates and dispatches updates to a handler. Offset
// tracking follows the Bot API convention: the next offset is the highest
// seen update_id plus one, so handled updates are never redelivered.
type Poller struct {
	client  *Client
	handler UpdateHandler
	timeout int
	offset  int64
	backoff time.Duration
	logger  *slog.Logger
}

// NewPoller creates a poller with the given long-poll timeout in seconds.
func NewPoller(client *Client, timeout int, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		client:  client,
		timeout: timeout,
		backoff: defaultPollBackoff,
		logger:  logger,
	}
}

// SetHandler installs the update consumer. Must be called before Run.
func (p *Poller) SetHandler(h UpdateHandler) {
	p.handler = h
}

// Run polls until ctx is cancelled. Transient API errors are logged and the
// loop retries after a short backoff. Always returns nil; the poller has no
// unrecoverable failure modes of its own.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.LogAttrs(ctx, slog.LevelInfo, "update poller started")

	for {
		if ctx.Err() != nil {
			p.logger.LogAttrs(ctx, slog.LevelInfo, "update poller stopped")
			return nil
		}

		updates, err := p.client.GetUpdates(ctx, GetUpdatesRequest{
			Offset:         p.offset,
			Timeout:        p.timeout,
			AllowedUpdates: []string{"message", "callback_query"},
		})
		if err != nil {
			if ctx.Err() != nil {
				p.logger.LogAttrs(ctx, slog.LevelInfo, "update poller stopped")
				return nil
			}
			p.logger.LogAttrs(ctx, slog.LevelWarn, "poll failed, backing off",
				logfields.Error(err),
			)
			select {
			case <-ctx.Done():
				p.logger.LogAttrs(ctx, slog.LevelInfo, "update poller stopped")
				return nil
			case <-time.After(p.backoff):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= p.offset {
				p.offset = update.UpdateID + 1
			}
			if p.handler != nil {
				p.handler(ctx, update)
			}
		}
	}
}
