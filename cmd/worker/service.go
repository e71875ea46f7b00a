package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/letrinh/letrinh-backend/internal/notifications"
	"github.com/letrinh/letrinh-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// eventSource delivers order events to the consumer until ctx ends.
type eventSource interface {
	pinger
	Run(ctx context.Context, consumer *notifications.Consumer) error
}

type ServiceParams struct {
	Logger   *logger.Logger
	Redis    pinger
	Source   eventSource
	Consumer *notifications.Consumer
}

type Service struct {
	logg     *logger.Logger
	redis    pinger
	source   eventSource
	consumer *notifications.Consumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.Source == nil {
		return nil, errors.New("event source is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("notification consumer is required")
	}
	return &Service{
		logg:     params.Logger,
		redis:    params.Redis,
		source:   params.Source,
		consumer: params.Consumer,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "event source", s.source.Ping); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

// Run blocks on the event source until ctx is canceled or it fails.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}
	err := s.source.Run(ctx, s.consumer)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logg.Error(ctx, "consumer stopped unexpectedly", err)
		return err
	}
	s.logg.Info(ctx, "worker context canceled")
	return ctx.Err()
}
