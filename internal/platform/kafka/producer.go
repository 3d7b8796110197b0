// Package kafka wraps the franz-go client for the narrow produce/consume
// surface this service needs.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer publishes records without blocking the caller. Delivery failures
// are reported through the per-record callback, never as a synchronous error.
type Producer struct {
	client *kgo.Client
	logger *slog.Logger
}

// NewProducer connects a producer to the given brokers.
func NewProducer(brokers []string, logger *slog.Logger) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("new kafka producer: %w", err)
	}
	return &Producer{client: client, logger: logger}, nil
}

// ProduceAsync hands a record to the client and returns immediately.
// onDone may be nil; delivery errors are then only logged.
func (p *Producer) ProduceAsync(ctx context.Context, topic string, key, value []byte, onDone func(error)) {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil && p.logger != nil {
			p.logger.Error("kafka produce failed",
				"topic", topic,
				"error", err,
			)
		}
		if onDone != nil {
			onDone(err)
		}
	})
}

// Flush blocks until buffered records are delivered or ctx expires.
func (p *Producer) Flush(ctx context.Context) error {
	return p.client.Flush(ctx)
}

// Close flushes and releases the client.
func (p *Producer) Close() {
	p.client.Close()
}

// EnsureTopic creates the topic if it does not exist yet. Already-exists
// responses are not errors; startup must be idempotent.
func EnsureTopic(ctx context.Context, brokers []string, topic string, partitions int32) error {
	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return fmt.Errorf("new kafka admin client: %w", err)
	}
	defer client.Close()

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, partitions, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}
