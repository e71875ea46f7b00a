package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/letrinh/letrinh-backend/internal/notifications"
	"github.com/letrinh/letrinh-backend/pkg/config"
	"github.com/letrinh/letrinh-backend/pkg/kafka"
	"github.com/letrinh/letrinh-backend/pkg/logger"
	"github.com/letrinh/letrinh-backend/pkg/outbox/idempotency"
	"github.com/letrinh/letrinh-backend/pkg/pubsub"
	"github.com/letrinh/letrinh-backend/pkg/redis"
	"github.com/letrinh/letrinh-backend/pkg/telemetry"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Version:     cfg.Telemetry.ServiceVersion,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Zalo.Enabled() {
		logg.Warn(ctx, "zalo notifications disabled; worker has nothing to deliver")
		return
	}

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry, "worker")
	if err != nil {
		logg.Error(ctx, "failed to init tracing", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	closers := []io.Closer{redisClient}
	defer func() {
		var closeErr error
		for _, c := range closers {
			closeErr = multierr.Append(closeErr, c.Close())
		}
		closeErr = multierr.Append(closeErr, shutdownTracing(context.Background()))
		if closeErr != nil {
			logg.Error(context.Background(), "error during shutdown", closeErr)
		}
	}()

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		logg.Error(ctx, "failed to build idempotency manager", err)
		os.Exit(1)
	}
	zalo, err := notifications.NewZaloClient(cfg.Zalo, telemetry.HTTPClient(&http.Client{Timeout: cfg.Zalo.Timeout}))
	if err != nil {
		logg.Error(ctx, "failed to build zalo client", err)
		os.Exit(1)
	}
	consumer, err := notifications.NewConsumer(zalo, manager, logg)
	if err != nil {
		logg.Error(ctx, "failed to create notification consumer", err)
		os.Exit(1)
	}

	var source eventSource
	switch cfg.Outbox.SinkKind() {
	case config.SinkKafka:
		kc, err := kafka.NewConsumer(cfg.Kafka)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap kafka consumer", err)
			os.Exit(1)
		}
		closers = append(closers, kc)
		source = kafkaSource{consumer: kc}
	default:
		pc, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.RoleSubscriber, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		closers = append(closers, pc)
		source = pubsubSource{client: pc, sub: pc.OrdersSubscription()}
	}

	service, err := NewService(ServiceParams{
		Logger:   logg,
		Redis:    redisClient,
		Source:   source,
		Consumer: consumer,
	})
	if err != nil {
		logg.Error(ctx, "failed to create worker service", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"source":      cfg.Outbox.SinkKind(),
	})
	logg.Info(ctx, "starting worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}
