package telegram

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lumehealth/carebot/internal/care"
	"github.com/lumehealth/carebot/internal/errors"
	"github.com/lumehealth/carebot/internal/logfields"
	"github.com/lumehealth/carebot/internal/notify"
	"github.com/lumehealth/carebot/internal/retry"
)

// Notifier adapts the Bot API client to the notify.Notifier interface used
// by the scheduling side of the bot. A one-button message becomes a single
// inline keyboard row carrying the confirmation token as callback data.
// Transient failures (rate limits, 5xx, transport errors) are retried per
// the backoff policy; a retry_after hint from the API overrides the
// computed delay.
type Notifier struct {
	client *Client
	logger *slog.Logger

	mu     sync.Mutex
	policy retry.Policy
}

// NewNotifier wraps client as a notify.Notifier.
func NewNotifier(client *Client, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{client: client, logger: logger, policy: retry.DefaultPolicy()}
}

// SetRetryPolicy replaces the backoff policy for sends started afterwards.
// In-flight sends keep the policy they started with.
func (n *Notifier) SetRetryPolicy(p retry.Policy) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.policy = p
}

func (n *Notifier) retryPolicy() retry.Policy {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.policy
}

var _ notify.Notifier = (*Notifier)(nil)

// Send implements notify.Notifier.
func (n *Notifier) Send(ctx context.Context, to care.ChatID, msg notify.Message) error {
	req := SendMessageRequest{
		ChatID: int64(to),
		Text:   msg.Text,
	}
	if msg.HTML {
		req.ParseMode = ParseModeHTML
	}
	if msg.Button != nil {
		req.ReplyMarkup = &InlineKeyboardMarkup{
			InlineKeyboard: [][]InlineKeyboardButton{{
				{Text: msg.Button.Label, CallbackData: msg.Button.Token},
			}},
		}
	}

	policy := n.retryPolicy()

	var lastErr error
	for attempt := 0; ; attempt++ {
		_, err := n.client.SendMessage(ctx, req)
		if err == nil {
			if attempt > 0 {
				n.logger.LogAttrs(ctx, slog.LevelInfo, "message delivered after retry",
					logfields.ChatID(to),
					logfields.Attempt(attempt+1),
				)
			}
			return nil
		}
		lastErr = err
		if !errors.IsRetryable(err) || attempt >= policy.MaxRetries {
			break
		}

		delay := policy.Delay(attempt + 1)
		if hint, ok := retryAfterHint(err); ok {
			delay = hint
		}
		n.logger.LogAttrs(ctx, slog.LevelWarn, "transient send failure, retrying",
			logfields.ChatID(to),
			logfields.Attempt(attempt+1),
			slog.Duration("delay", delay),
			logfields.Error(err),
		)
		select {
		case <-ctx.Done():
			return errors.DeliveryFailed(int64(to), ctx.Err())
		case <-time.After(delay):
		}
	}

	n.logger.LogAttrs(ctx, slog.LevelWarn, "message delivery failed",
		logfields.ChatID(to),
		logfields.Error(lastErr),
	)
	return errors.DeliveryFailed(int64(to), lastErr)
}

// retryAfterHint extracts the Bot API rate-limit hint from an error chain.
func retryAfterHint(err error) (time.Duration, bool) {
	v, ok := errors.ContextValue(err, "retry_after")
	if !ok {
		return 0, false
	}
	secs, ok := v.(int)
	if !ok || secs <= 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
