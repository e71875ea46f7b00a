package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/letrinh/letrinh-backend/pkg/config"
	"github.com/letrinh/letrinh-backend/pkg/db"
	"github.com/letrinh/letrinh-backend/pkg/kafka"
	"github.com/letrinh/letrinh-backend/pkg/logger"
	"github.com/letrinh/letrinh-backend/pkg/metrics"
	"github.com/letrinh/letrinh-backend/pkg/migrate"
	"github.com/letrinh/letrinh-backend/pkg/outbox"
	"github.com/letrinh/letrinh-backend/pkg/outbox/registry"
	"github.com/letrinh/letrinh-backend/pkg/pubsub"
	"github.com/letrinh/letrinh-backend/pkg/telemetry"
)

const serviceKind = "outbox-publisher"

func main() {
	replay := flag.String("replay", "", "requeue the dead-lettered event with this id and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Version:     cfg.Telemetry.ServiceVersion,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"sink":        cfg.Outbox.SinkKind(),
	})

	if *replay != "" {
		if err := replayDeadLetter(ctx, cfg, logg, *replay); err != nil {
			logg.Error(ctx, "dead letter replay failed", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry, serviceKind)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, shutdownTracing(context.Background())) }()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	sink, factory, topic, closeSink, err := openSink(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeSink()) }()

	eventRegistry, err := registry.NewEventRegistry(topic)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	conn := dbClient.DB()
	service, err := NewService(ServiceParams{
		Config:           cfg,
		Logger:           logg,
		DB:               dbClient,
		Sink:             sink,
		Repository:       outbox.NewRepository(conn),
		Registry:         eventRegistry,
		PublisherFactory: factory,
		DLQRepository:    outbox.NewDLQRepository(conn),
		Metrics:          metrics.NewOutboxMetrics(reg),
	})
	if err != nil {
		return err
	}

	metricsServer := metrics.NewServer(cfg.Outbox.MetricsAddr, reg)
	metricsServer.Start(func(err error) { logg.Error(ctx, "outbox metrics server failed", err) })
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = multierr.Append(err, metricsServer.Shutdown(shutdownCtx))
	}()

	logg.Info(ctx, "starting outbox publisher")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openSink connects the configured broker and returns a factory that maps a
// registry topic to a publisher on it.
func openSink(ctx context.Context, cfg *config.Config, logg *logger.Logger) (sinkPinger, publisherFactory, string, func() error, error) {
	if cfg.Outbox.SinkKind() == config.SinkKafka {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return nil, nil, "", nil, err
		}
		factory := func(name string) publisher {
			if name != producer.Topic() {
				return nil
			}
			return newKafkaPublisher(producer)
		}
		return producer, factory, producer.Topic(), producer.Close, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.RolePublisher, logg)
	if err != nil {
		return nil, nil, "", nil, err
	}
	factory := func(name string) publisher {
		return newGCPPublisher(client.Publisher(name))
	}
	return client, factory, cfg.PubSub.OrdersTopic, client.Close, nil
}

func replayDeadLetter(ctx context.Context, cfg *config.Config, logg *logger.Logger, rawID string) (err error) {
	eventID, err := uuid.Parse(rawID)
	if err != nil {
		return err
	}
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	dlq := outbox.NewDLQRepository(dbClient.DB())
	return dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		row, err := dlq.Replay(ctx, tx, eventID)
		if err != nil {
			return err
		}
		logg.Info(logg.WithFields(ctx, map[string]any{
			"event_id":     row.ID.String(),
			"event_type":   row.EventType,
			"aggregate_id": row.AggregateID,
		}), "dead letter requeued")
		return nil
	})
}
