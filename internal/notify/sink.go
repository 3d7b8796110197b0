package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"lofo/internal/notify/models"
	"lofo/internal/notify/service"
	"lofo/internal/platform/kafka"
	"lofo/internal/platform/metrics"
)

// KafkaSink publishes notification events to the notifications topic. Publish
// never blocks and never fails the caller: delivery errors are logged and
// counted. A lost notification must not undo a committed lifecycle change.
type KafkaSink struct {
	producer *kafka.Producer
	topic    string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewKafkaSink builds a sink over an existing producer.
func NewKafkaSink(producer *kafka.Producer, topic string, logger *slog.Logger, m *metrics.Metrics) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic, logger: logger, metrics: m}
}

func (s *KafkaSink) Publish(ctx context.Context, event *models.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.dropped(ctx, event, err)
		return
	}
	s.producer.ProduceAsync(ctx, s.topic, event.RecipientID[:], payload, func(err error) {
		if err != nil {
			s.dropped(ctx, event, err)
			return
		}
		if s.metrics != nil {
			s.metrics.NotificationsPublished.Inc()
		}
	})
}

func (s *KafkaSink) dropped(ctx context.Context, event *models.Event, err error) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "notification dropped",
			"notification_id", event.ID,
			"recipient_id", event.RecipientID,
			"type", event.Type,
			"error", err)
	}
	if s.metrics != nil {
		s.metrics.NotificationsDropped.Inc()
	}
}

// DirectSink delivers events straight into the store. Dev mode without a
// broker; delivery errors are logged, matching the fire-and-forget contract.
type DirectSink struct {
	service *service.Service
	logger  *slog.Logger
}

// NewDirectSink builds a sink that bypasses the topic.
func NewDirectSink(svc *service.Service, logger *slog.Logger) *DirectSink {
	return &DirectSink{service: svc, logger: logger}
}

func (s *DirectSink) Publish(ctx context.Context, event *models.Event) {
	if err := s.service.Deliver(ctx, event); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "notification dropped",
			"notification_id", event.ID,
			"recipient_id", event.RecipientID,
			"error", err)
	}
}

// EventHandler adapts the notification service to the consumer loop,
// materializing topic events into stored notifications.
func EventHandler(svc *service.Service) kafka.Handler {
	return func(ctx context.Context, msg *kafka.Message) error {
		var event models.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return err
		}
		return svc.Deliver(ctx, &event)
	}
}
