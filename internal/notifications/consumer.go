package notifications

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/letrinh/letrinh-backend/pkg/enums"
	"github.com/letrinh/letrinh-backend/pkg/kafka"
	"github.com/letrinh/letrinh-backend/pkg/logger"
	"github.com/letrinh/letrinh-backend/pkg/outbox"
	"github.com/letrinh/letrinh-backend/pkg/outbox/payloads"
	"github.com/letrinh/letrinh-backend/pkg/outbox/registry"
)

const consumerName = "zalo-notifier"

type orderConfirmer interface {
	SendOrderConfirmation(ctx context.Context, customerID, orderID string) error
}

type processedTracker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Release(ctx context.Context, consumer, eventID string) error
}

// Message is a transport-neutral view of a delivered outbox event.
type Message struct {
	ID         string
	Attributes map[string]string
	Data       []byte
}

// Consumer turns order_created events into customer confirmations.
type Consumer struct {
	sender      orderConfirmer
	idempotency processedTracker
	decoders    *registry.DecoderRegistry
	logg        *logger.Logger
}

// NewConsumer builds the order confirmation consumer.
func NewConsumer(sender orderConfirmer, tracker processedTracker, logg *logger.Logger) (*Consumer, error) {
	if sender == nil {
		return nil, fmt.Errorf("notification sender required")
	}
	if tracker == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		sender:      sender,
		idempotency: tracker,
		decoders:    registry.NewConsumerDecoders(),
		logg:        logg,
	}, nil
}

// RunPubSub receives from the subscription until ctx is canceled.
func (c *Consumer) RunPubSub(ctx context.Context, sub *pubsub.Subscriber) error {
	if sub == nil {
		return fmt.Errorf("subscription required")
	}
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.Process(ctx, Message{ID: msg.ID, Attributes: msg.Attributes, Data: msg.Data})
		if result.Retry {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// HandleKafka adapts the consumer to the Kafka consumer loop. Returning an
// error leaves the offset uncommitted.
func (c *Consumer) HandleKafka(ctx context.Context, d kafka.Delivery) error {
	result := c.Process(ctx, Message{ID: d.Attributes["event_id"], Attributes: d.Attributes, Data: d.Data})
	if result.Retry {
		return fmt.Errorf("event %s not processed", d.Attributes["event_id"])
	}
	return nil
}

// Result tells the transport whether the message must be redelivered.
type Result struct {
	Retry bool
}

// Process handles a single delivery.
func (c *Consumer) Process(ctx context.Context, msg Message) Result {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
		"consumer":   consumerName,
	})

	if eventType != string(enums.EventOrderCreated) {
		c.logg.Debug(logCtx, "skipping event")
		return Result{}
	}

	envelope, err := outbox.ParseEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return Result{}
	}
	decoded, err := c.decoders.Decode(enums.EventOrderCreated, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return Result{}
	}
	payload := decoded.(payloads.OrderCreatedEvent)
	logCtx = c.logg.WithOrderID(logCtx, payload.OrderID)
	logCtx = c.logg.WithCustomerID(logCtx, payload.CustomerID)

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, consumerName, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return Result{Retry: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return Result{}
	}

	if err := c.sender.SendOrderConfirmation(ctx, payload.CustomerID, payload.OrderID); err != nil {
		// acked regardless; a later redelivery of the same event may try again
		c.logg.Error(logCtx, "order confirmation failed", err)
		if err := c.idempotency.Release(ctx, consumerName, envelope.EventID); err != nil {
			c.logg.Warn(logCtx, "failed to release processed mark")
		}
		return Result{}
	}
	c.logg.Info(logCtx, "order confirmation sent")
	return Result{}
}
