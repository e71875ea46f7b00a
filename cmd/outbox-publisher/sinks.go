package main

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

func (p *gcpPublisher) Publish(ctx context.Context, msg outboundMessage) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, &gcppubsub.Message{
		Data:        msg.Data,
		Attributes:  msg.Attributes,
	})}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}

type kafkaWriter interface {
	Publish(ctx context.Context, key string, value []byte, attributes map[string]string) error
}

// kafkaPublisher writes synchronously, so its result is already settled.
type kafkaPublisher struct {
	writer kafkaWriter
}

func newKafkaPublisher(w kafkaWriter) publisher {
	if w == nil {
		return nil
	}
	return &kafkaPublisher{writer: w}
}

func (p *kafkaPublisher) Publish(ctx context.Context, msg outboundMessage) publishResult {
	return settledResult{err: p.writer.Publish(ctx, msg.Key, msg.Data, msg.Attributes)}
}

type settledResult struct {
	err error
}

func (r settledResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "", nil
}
