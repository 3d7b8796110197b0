//go:build integration

package notify_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"lofo/internal/notify"
	"lofo/internal/notify/models"
	"lofo/internal/notify/service"
	notifystore "lofo/internal/notify/store"
	"lofo/internal/platform/kafka"
	"lofo/pkg/testutil/containers"
)

const testTopic = "lofo.notifications.test"

// KafkaSinkSuite drives the full publish path: sink publishes to the topic,
// the consumer group picks events up and materializes them into the store.
type KafkaSinkSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	producer *kafka.Producer
	store    *notifystore.Memory
	cancel   context.CancelFunc
	done     chan struct{}
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.redpanda = containers.NewRedpandaContainer(s.T())
	brokers := []string{s.redpanda.Broker}

	ctx := context.Background()
	err := kafka.EnsureTopic(ctx, brokers, testTopic, 1)
	s.Require().NoError(err)

	s.producer, err = kafka.NewProducer(brokers, slog.Default())
	s.Require().NoError(err)

	s.store = notifystore.NewMemory()
	svc := service.New(s.store)

	consumer, err := kafka.NewConsumer(brokers, "lofo-notifications-test", testTopic, slog.Default())
	s.Require().NoError(err)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		_ = consumer.Run(runCtx, notify.EventHandler(svc))
	}()
}

func (s *KafkaSinkSuite) TearDownSuite() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	if s.producer != nil {
		s.producer.Close()
	}
}

func newEvent(recipientID uuid.UUID, eventType models.EventType) *models.Event {
	return &models.Event{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        eventType,
		PostingID:   uuid.New(),
		ClaimID:     uuid.New(),
		Message:     "a claim was filed against your posting",
		OccurredAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

// waitForNotifications polls the store until the recipient has the expected
// number of notifications or the deadline passes.
func (s *KafkaSinkSuite) waitForNotifications(recipientID uuid.UUID, want int) []*models.Notification {
	ctx := context.Background()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		got, err := s.store.ListForRecipient(ctx, recipientID, false)
		s.Require().NoError(err)
		if len(got) >= want {
			return got
		}
		time.Sleep(100 * time.Millisecond)
	}
	s.FailNowf("timed out", "recipient %s never reached %d notifications", recipientID, want)
	return nil
}

func (s *KafkaSinkSuite) TestPublishReachesInbox() {
	ctx := context.Background()
	sink := notify.NewKafkaSink(s.producer, testTopic, slog.Default(), nil)

	recipient := uuid.New()
	event := newEvent(recipient, models.EventClaimSubmitted)
	sink.Publish(ctx, event)
	s.Require().NoError(s.producer.Flush(ctx))

	got := s.waitForNotifications(recipient, 1)
	s.Require().Len(got, 1)
	s.Equal(event.ID, got[0].ID)
	s.Equal(models.EventClaimSubmitted, got[0].Type)
	s.Equal(event.Message, got[0].Message)
	s.False(got[0].Read)
}

// TestRedeliveryIsIdempotent publishes the same event twice; the store must
// swallow the duplicate rather than double the inbox.
func (s *KafkaSinkSuite) TestRedeliveryIsIdempotent() {
	ctx := context.Background()
	sink := notify.NewKafkaSink(s.producer, testTopic, slog.Default(), nil)

	recipient := uuid.New()
	event := newEvent(recipient, models.EventClaimApproved)
	sink.Publish(ctx, event)
	sink.Publish(ctx, event)

	marker := newEvent(recipient, models.EventPostingClosed)
	sink.Publish(ctx, marker)
	s.Require().NoError(s.producer.Flush(ctx))

	// Same key, so the marker arriving guarantees both copies were consumed.
	got := s.waitForNotifications(recipient, 2)
	s.Len(got, 2)
}

func (s *KafkaSinkSuite) TestEventsFanOutPerRecipient() {
	ctx := context.Background()
	sink := notify.NewKafkaSink(s.producer, testTopic, slog.Default(), nil)

	reporter := uuid.New()
	claimant := uuid.New()
	sink.Publish(ctx, newEvent(reporter, models.EventPostingTakenDown))
	sink.Publish(ctx, newEvent(claimant, models.EventPostingTakenDown))
	s.Require().NoError(s.producer.Flush(ctx))

	s.Len(s.waitForNotifications(reporter, 1), 1)
	s.Len(s.waitForNotifications(claimant, 1), 1)
}
