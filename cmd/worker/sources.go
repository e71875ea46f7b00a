package main

import (
	"context"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/letrinh/letrinh-backend/internal/notifications"
	"github.com/letrinh/letrinh-backend/pkg/kafka"
	pspkg "github.com/letrinh/letrinh-backend/pkg/pubsub"
)

type pubsubSource struct {
	client *pspkg.Client
	sub    *pubsub.Subscriber
}

func (p pubsubSource) Ping(ctx context.Context) error { return p.client.Ping(ctx) }

func (p pubsubSource) Run(ctx context.Context, consumer *notifications.Consumer) error {
	return consumer.RunPubSub(ctx, p.sub)
}

type kafkaSource struct {
	consumer *kafka.Consumer
}

func (k kafkaSource) Ping(ctx context.Context) error { return k.consumer.Ping(ctx) }

func (k kafkaSource) Run(ctx context.Context, consumer *notifications.Consumer) error {
	return k.consumer.Consume(ctx, consumer.HandleKafka)
}
