package kafka

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/letrinh/letrinh-backend/pkg/config"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var consumerTracer = otel.Tracer("letrinh/kafka/consumer")

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Delivery is a consumed message with its headers flattened.
type Delivery struct {
	Key        string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a delivery. A returned error stops the consumer without
// committing, so the message is redelivered after restart.
type Handler func(ctx context.Context, d Delivery) error

// Consumer reads the orders topic as part of a consumer group.
type Consumer struct {
	reader  messageReader
	topic   string
	groupID string
	brokers []string
}

func NewConsumer(cfg config.KafkaConfig) (*Consumer, error) {
	brokers := normalizeBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(cfg.OrdersTopic) == "" || strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("kafka topic and group id are required")
	}
	return &Consumer{
		topic:   cfg.OrdersTopic,
		groupID: cfg.GroupID,
		brokers: brokers,
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers: brokers,
			Topic:   cfg.OrdersTopic,
			GroupID: cfg.GroupID,
		}),
	}, nil
}

// Consume fetches, handles and commits messages until ctx ends or the handler fails.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		if err := c.process(ctx, msg, handler); err != nil {
			return err
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafkago.Message, handler Handler) error {
	parent := otel.GetTextMapPropagator().Extract(ctx, headerCarrier{msg: &msg})
	spanCtx, span := consumerTracer.Start(parent, "process "+c.topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("process"),
			semconv.MessagingDestinationName(c.topic),
			semconv.MessagingKafkaConsumerGroup(c.groupID),
			semconv.MessagingKafkaMessageOffset(int(msg.Offset)),
			semconv.MessagingDestinationPartitionID(strconv.Itoa(msg.Partition)),
		),
	)
	defer span.End()

	attrs := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		attrs[h.Key] = string(h.Value)
	}

	if err := handler(spanCtx, Delivery{Key: string(msg.Key), Data: msg.Value, Attributes: attrs}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Ping dials the first reachable broker.
func (c *Consumer) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("kafka consumer not initialized")
	}
	return dialAny(ctx, c.brokers)
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}
