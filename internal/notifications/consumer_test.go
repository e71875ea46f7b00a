package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letrinh/letrinh-backend/pkg/enums"
	"github.com/letrinh/letrinh-backend/pkg/kafka"
	"github.com/letrinh/letrinh-backend/pkg/logger"
	"github.com/letrinh/letrinh-backend/pkg/outbox"
	"github.com/letrinh/letrinh-backend/pkg/outbox/payloads"
)

type stubSender struct {
	calls [][2]string
	err   error
}

func (s *stubSender) SendOrderConfirmation(_ context.Context, customerID, orderID string) error {
	s.calls = append(s.calls, [2]string{customerID, orderID})
	return s.err
}

type stubTracker struct {
	seen     map[string]bool
	checkErr error
	released []string
}

func (s *stubTracker) CheckAndMarkProcessed(_ context.Context, _ string, eventID string) (bool, error) {
	if s.checkErr != nil {
		return false, s.checkErr
	}
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	already := s.seen[eventID]
	s.seen[eventID] = true
	return already, nil
}

func (s *stubTracker) Release(_ context.Context, _ string, eventID string) error {
	delete(s.seen, eventID)
	s.released = append(s.released, eventID)
	return nil
}

func orderCreatedMessage(t *testing.T, eventID string) Message {
	t.Helper()
	data, err := json.Marshal(payloads.OrderCreatedEvent{
		OrderID:     "ORD-1",
		CustomerID:  "C1",
		TotalAmount: decimal.NewFromInt(45000),
		LineCount:   2,
		CreatedAt:   time.Date(2024, 10, 2, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: eventID, Data: data})
	require.NoError(t, err)
	return Message{
		ID:         "msg-1",
		Attributes: map[string]string{"event_type": string(enums.EventOrderCreated), "event_id": eventID},
		Data:       envelope,
	}
}

func newTestConsumer(t *testing.T, sender *stubSender, tracker *stubTracker) *Consumer {
	t.Helper()
	c, err := NewConsumer(sender, tracker, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return c
}

func TestConsumerSendsOncePerEvent(t *testing.T) {
	sender := &stubSender{}
	consumer := newTestConsumer(t, sender, &stubTracker{})
	msg := orderCreatedMessage(t, uuid.NewString())

	assert.False(t, consumer.Process(context.Background(), msg).Retry)
	assert.False(t, consumer.Process(context.Background(), msg).Retry)
	require.Len(t, sender.calls, 1)
	assert.Equal(t, [2]string{"C1", "ORD-1"}, sender.calls[0])
}

func TestConsumerSkipsOtherEvents(t *testing.T) {
	sender := &stubSender{}
	consumer := newTestConsumer(t, sender, &stubTracker{})
	msg := orderCreatedMessage(t, uuid.NewString())
	msg.Attributes["event_type"] = string(enums.EventPaymentStatusChanged)

	assert.False(t, consumer.Process(context.Background(), msg).Retry)
	assert.Empty(t, sender.calls)
}

func TestConsumerAcksMalformedPayload(t *testing.T) {
	sender := &stubSender{}
	consumer := newTestConsumer(t, sender, &stubTracker{})
	msg := orderCreatedMessage(t, uuid.NewString())
	msg.Data = []byte("{not json")

	assert.False(t, consumer.Process(context.Background(), msg).Retry)
	assert.Empty(t, sender.calls)
}

func TestConsumerRetriesWhenIdempotencyUnavailable(t *testing.T) {
	sender := &stubSender{}
	consumer := newTestConsumer(t, sender, &stubTracker{checkErr: errors.New("redis down")})

	assert.True(t, consumer.Process(context.Background(), orderCreatedMessage(t, uuid.NewString())).Retry)
	assert.Empty(t, sender.calls)
}

func TestConsumerAcksFailedDeliveryAndReleasesMark(t *testing.T) {
	sender := &stubSender{err: errors.New("zalo responded 500")}
	tracker := &stubTracker{}
	consumer := newTestConsumer(t, sender, tracker)
	eventID := uuid.NewString()

	assert.False(t, consumer.Process(context.Background(), orderCreatedMessage(t, eventID)).Retry)
	assert.Equal(t, []string{eventID}, tracker.released)
}

func TestHandleKafka(t *testing.T) {
	sender := &stubSender{}
	consumer := newTestConsumer(t, sender, &stubTracker{})
	msg := orderCreatedMessage(t, uuid.NewString())

	require.NoError(t, consumer.HandleKafka(context.Background(), kafka.Delivery{Key: "ORD-1", Data: msg.Data, Attributes: msg.Attributes}))
	assert.Len(t, sender.calls, 1)

	failing := newTestConsumer(t, &stubSender{}, &stubTracker{checkErr: errors.New("redis down")})
	require.Error(t, failing.HandleKafka(context.Background(), kafka.Delivery{Data: msg.Data, Attributes: msg.Attributes}))
}
