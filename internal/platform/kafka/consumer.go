package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is the transport-agnostic view of a consumed record.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Timestamp time.Time
}

// Handler processes one consumed message. Returning an error logs and skips
// the message; notification delivery is best-effort, not at-least-once.
type Handler func(ctx context.Context, msg *Message) error

// Consumer polls a consumer group subscription and dispatches records to a
// Handler.
type Consumer struct {
	client *kgo.Client
	logger *slog.Logger
}

// NewConsumer subscribes a group consumer to the given topic.
func NewConsumer(brokers []string, group, topic string, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.AutoCommitInterval(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("new kafka consumer: %w", err)
	}
	return &Consumer{client: client, logger: logger}, nil
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	defer c.client.Close()
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if c.logger != nil {
				c.logger.Error("kafka fetch error",
					"topic", topic,
					"partition", partition,
					"error", err,
				)
			}
		})
		fetches.EachRecord(func(record *kgo.Record) {
			msg := &Message{
				Topic:     record.Topic,
				Key:       record.Key,
				Value:     record.Value,
				Timestamp: record.Timestamp,
			}
			if err := handle(ctx, msg); err != nil && c.logger != nil {
				c.logger.Error("message handler failed",
					"topic", record.Topic,
					"key", string(record.Key),
					"error", err,
				)
			}
		})
	}
}
