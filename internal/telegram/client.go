// Package telegram is a minimal Telegram Bot API client covering the calls
// the bot needs: sending and editing messages, answering callback queries,
// and long-polling updates. The Bot API wraps every response in a common
// {ok, result, description, error_code} envelope; call decodes that envelope
// once so typed methods stay small.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lumehealth/carebot/internal/errors"
	"github.com/lumehealth/carebot/internal/metrics"
)

const (
	// defaultHTTPTimeout must exceed the getUpdates long-poll timeout so the
	// transport does not cut off a healthy poll.
	defaultHTTPTimeout = 90 * time.Second

	// maxResponseBytes bounds envelope decoding; Bot API responses for the
	// methods used here are small.
	maxResponseBytes = 1 << 20
)

// Bot API method names used for metrics labels and error context.
const (
	methodSendMessage         = "sendMessage"
	methodEditMessageText     = "editMessageText"
	methodAnswerCallbackQuery = "answerCallbackQuery"
	methodGetUpdates          = "getUpdates"
	methodGetMe               = "getMe"
)

// Client talks to one bot's slice of the Telegram Bot API.
type Client struct {
	httpClient *http.Client
	apiBase    string
	token      string
	recorder   metrics.Recorder
}

// NewClient creates a client for the given bot token. apiBase is the API
// root without the /bot<token> segment (normally https://api.telegram.org).
// A nil httpClient gets a default with a timeout sized for long polling.
func NewClient(token, apiBase string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		httpClient: httpClient,
		apiBase:    strings.TrimSuffix(apiBase, "/"),
		token:      token,
		recorder:   metrics.NoopRecorder{},
	}
}

// SetRecorder enables delivery metrics for outbound message methods.
func (c *Client) SetRecorder(r metrics.Recorder) {
	if r != nil {
		c.recorder = r
	}
}

// apiEnvelope is the standard Bot API response wrapper.
type apiEnvelope struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	Description string              `json:"description,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Parameters  *responseParameters `json:"parameters,omitempty"`
}

// responseParameters carries Telegram's hints for failed calls, most notably
// the flood-control retry_after on 429 responses.
type responseParameters struct {
	RetryAfter      int   `json:"retry_after,omitempty"`
	MigrateToChatID int64 `json:"migrate_to_chat_id,omitempty"`
}

// call POSTs params as JSON to <apiBase>/bot<token>/<method> and decodes the
// envelope's result into result when non-nil. On ok:false the description and
// error_code become a telegram-category error, retryable for flood control
// and server-side codes.
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)

	var body io.Reader = http.NoBody
	if params != nil {
		payload, err := json.Marshal(params)
		if err != nil {
			return errors.TelegramAPIError(method, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return errors.TelegramAPIError(method, c.redactToken(err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "carebot/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WrapRetryable(c.redactToken(err), errors.CategoryTelegram, errors.SeverityError, "telegram request failed").
			WithContext("method", method)
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope apiEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&envelope); err != nil {
		return errors.TelegramAPIError(method, err).
			WithContext("status", resp.Status)
	}

	if !envelope.OK {
		cause := fmt.Errorf("%s (code %d)", envelope.Description, envelope.ErrorCode)
		var ce *errors.CareError
		if retryableCode(envelope.ErrorCode) {
			ce = errors.WrapRetryable(cause, errors.CategoryTelegram, errors.SeverityError, "telegram api call failed").
				WithContext("method", method)
		} else {
			ce = errors.TelegramAPIError(method, cause)
		}
		ce = ce.WithContext("error_code", envelope.ErrorCode)
		if envelope.Parameters != nil && envelope.Parameters.RetryAfter > 0 {
			ce = ce.WithContext("retry_after", envelope.Parameters.RetryAfter)
		}
		return ce
	}

	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return errors.TelegramAPIError(method, err)
		}
	}
	return nil
}

// retryableCode reports whether a Bot API error code is worth retrying.
func retryableCode(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// redactToken hides the bot token (part of every request URL) from transport
// error text so it cannot leak into logs.
func (c *Client) redactToken(err error) error {
	if err == nil || c.token == "" {
		return err
	}
	msg := strings.ReplaceAll(err.Error(), c.token, "<token>")
	return &transportError{msg: msg, cause: err}
}

type transportError struct {
	msg   string
	cause error
}

func (e *transportError) Error() string { return e.msg }
func (e *transportError) Unwrap() error { return e.cause }

// observe records delivery metrics for an outbound message method.
func (c *Client) observe(method string, start time.Time, err error) {
	c.recorder.ObserveDeliveryDuration(method, time.Since(start), err == nil)
	c.recorder.IncDeliveryResult(method, err == nil)
}

// SendMessage delivers a message and returns the created Message.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	var msg Message
	start := time.Now()
	err := c.call(ctx, methodSendMessage, req, &msg)
	c.observe(methodSendMessage, start, err)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageText rewrites a previously sent message in place.
func (c *Client) EditMessageText(ctx context.Context, req EditMessageTextRequest) error {
	start := time.Now()
	err := c.call(ctx, methodEditMessageText, req, nil)
	c.observe(methodEditMessageText, start, err)
	return err
}

// AnswerCallbackQuery acknowledges a button press so the client stops
// showing a spinner.
func (c *Client) AnswerCallbackQuery(ctx context.Context, req AnswerCallbackQueryRequest) error {
	start := time.Now()
	err := c.call(ctx, methodAnswerCallbackQuery, req, nil)
	c.observe(methodAnswerCallbackQuery, start, err)
	return err
}

// GetUpdates long-polls for incoming updates. It blocks up to req.Timeout
// seconds server-side; cancel ctx to abort early.
func (c *Client) GetUpdates(ctx context.Context, req GetUpdatesRequest) ([]Update, error) {
	var updates []Update
	if err := c.call(ctx, methodGetUpdates, req, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// GetMe validates the token and identifies the bot account.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, methodGetMe, nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}
