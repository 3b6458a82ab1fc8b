package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"bankpilot.app/concierge/common/logger"
)

type ConsumerConfig struct {
	Stream    string        // Redis stream the ingestion pipeline publishes to
	Group     string        // consumer group name
	Consumer  string        // consumer name within the group
	BatchSize int64         // messages per read
	Block     time.Duration // how long to block waiting for new messages
}

// Message is one catalog-change notification. The ingestion pipeline emits
// one per upserted or deleted bank/category slice; the router only needs to
// know that something changed.
type Message struct {
	ID       string
	Event    string
	Bank     string
	Category string
	Raw      redis.XMessage
}

type RedisConsumer struct {
	client *redis.Client
	cfg    ConsumerConfig
}

func NewRedisConsumer(client *redis.Client, cfg ConsumerConfig) (*RedisConsumer, error) {
	consumer := &RedisConsumer{
		client: client,
		cfg:    cfg,
	}

	if err := consumer.ensureGroup(context.Background()); err != nil { //nolint:contextcheck
		return nil, err
	}

	return consumer, nil
}

func (c *RedisConsumer) ensureGroup(ctx context.Context) error {
	// Starting from "0" instead of "$" means notifications published while
	// the server was down still trigger an invalidation after restart.
	if err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err(); err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	return nil
}

func (c *RedisConsumer) Read(ctx context.Context) ([]Message, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "concierge.queue.consumer",
	})

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.BatchSize,
		Block:    c.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	var messages []Message
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			messages = append(messages, ParseMessage(msg))
		}
	}

	if len(messages) > 0 {
		slog.DebugContext(ctx, "read catalog notifications",
			"count", len(messages),
			"stream", c.cfg.Stream,
			"consumer", c.cfg.Consumer)
	}

	return messages, nil
}

func (c *RedisConsumer) Ack(ctx context.Context, msg Message) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		return fmt.Errorf("xack (stream=%s): %w", c.cfg.Stream, err)
	}
	return nil
}

// ParseMessage never fails: a malformed notification still signals that the
// catalog changed, which is all the invalidator needs.
func ParseMessage(msg redis.XMessage) Message {
	return Message{
		ID:       msg.ID,
		Event:    stringValue(msg.Values, "event"),
		Bank:     stringValue(msg.Values, "bank"),
		Category: stringValue(msg.Values, "category"),
		Raw:      msg,
	}
}

func stringValue(values map[string]any, key string) string {
	if v, ok := values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
