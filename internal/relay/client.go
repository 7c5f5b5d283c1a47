// Package relay mirrors care events onto NATS JetStream for external
// consumers and exposes a JetStream KV bucket as a recipient override source.
// The relay is optional: every failure is reported to the caller for
// log-and-continue handling and never blocks a core flow.
package relay

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/lumehealth/carebot/internal/config"
	"github.com/lumehealth/carebot/internal/errors"
)

const (
	initTimeout    = 10 * time.Second
	publishTimeout = 5 * time.Second
	kvTimeout      = 2 * time.Second
)

// Client manages the NATS connection, the event stream and the optional
// override KV bucket.
type Client struct {
	conn          *nats.Conn
	js            jetstream.JetStream
	kv            jetstream.KeyValue
	subjectPrefix string
	logger        *slog.Logger
}

// Connect dials NATS per the relay configuration and ensures the event
// stream (and KV bucket, when configured) exist.
func Connect(cfg *config.RelayConfig, logger *slog.Logger) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.RelayError("connect", nil).WithContext("reason", "relay not enabled")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []nats.Option{nats.Name("carebot")}
	if cfg.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFile))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, errors.RelayError("connect", err).WithContext("url", cfg.URL)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.RelayError("jetstream context", err)
	}

	client := &Client{
		conn:          conn,
		js:            js,
		subjectPrefix: cfg.SubjectPrefix,
		logger:        logger,
	}

	if err := client.initStream(); err != nil {
		conn.Close()
		return nil, err
	}
	if cfg.KVBucket != "" {
		if err := client.initKVBucket(cfg.KVBucket); err != nil {
			conn.Close()
			return nil, err
		}
	}

	logger.Info("relay connected",
		slog.String("url", cfg.URL),
		slog.String("subject_prefix", cfg.SubjectPrefix),
		slog.String("kv_bucket", cfg.KVBucket))

	return client, nil
}

// initStream creates the event stream if it does not exist yet.
func (c *Client) initStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	name := streamName(c.subjectPrefix)
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        name,
		Description: "carebot care event mirror",
		Subjects:    []string{c.subjectPrefix + ".events.>"},
		MaxAge:      30 * 24 * time.Hour,
	})
	if err != nil {
		return errors.RelayError("create stream", err).WithContext("stream", name)
	}
	return nil
}

// initKVBucket creates or opens the recipient override bucket.
func (c *Client) initKVBucket(bucket string) error {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	kv, err := c.js.KeyValue(ctx, bucket)
	if err == nil {
		c.kv = kv
		return nil
	}

	kv, err = c.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "carebot recipient override",
		History:     1, // Keep only latest value
	})
	if err != nil {
		return errors.RelayError("create kv bucket", err).WithContext("bucket", bucket)
	}

	c.kv = kv
	c.logger.Info("created recipient override bucket", slog.String("bucket", bucket))
	return nil
}

// streamName derives a JetStream-safe stream name from the subject prefix.
func streamName(prefix string) string {
	cleaned := strings.ReplaceAll(prefix, ".", "_")
	return strings.ToUpper(cleaned) + "_EVENTS"
}

// OverrideSource returns the KV-backed override source, or nil when no
// bucket is configured.
func (c *Client) OverrideSource() *KVOverride {
	if c.kv == nil {
		return nil
	}
	return &KVOverride{kv: c.kv}
}

// Close drains the NATS connection.
func (c *Client) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}
