package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/letrinh/letrinh-backend/api/routes"
	"github.com/letrinh/letrinh-backend/internal/catalog"
	"github.com/letrinh/letrinh-backend/internal/customers"
	"github.com/letrinh/letrinh-backend/internal/discounts"
	"github.com/letrinh/letrinh-backend/internal/orders"
	"github.com/letrinh/letrinh-backend/internal/payments"
	"github.com/letrinh/letrinh-backend/pkg/config"
	"github.com/letrinh/letrinh-backend/pkg/db"
	"github.com/letrinh/letrinh-backend/pkg/env"
	"github.com/letrinh/letrinh-backend/pkg/logger"
	"github.com/letrinh/letrinh-backend/pkg/metrics"
	"github.com/letrinh/letrinh-backend/pkg/migrate"
	"github.com/letrinh/letrinh-backend/pkg/outbox"
	"github.com/letrinh/letrinh-backend/pkg/redis"
	"github.com/letrinh/letrinh-backend/pkg/telemetry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Version:     cfg.Telemetry.ServiceVersion,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api stopped with error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry, "api")
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, shutdownTracing(context.Background()))
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	polarity, err := discounts.ParsePolarity(cfg.Discount.TotalQuantityPolarity)
	if err != nil {
		return err
	}

	conn := dbClient.DB()
	customersRepo := customers.NewRepository(conn)
	discountsRepo := discounts.NewRepository(conn)
	paymentsRepo := payments.NewRepository(conn)

	evaluator, err := discounts.NewEvaluator(customersRepo,
		discounts.WithPolarity(polarity),
		discounts.WithRecorder(metrics.NewDiscountMetrics(reg)),
	)
	if err != nil {
		return err
	}

	discountService, err := discounts.NewService(discountsRepo, dbClient, evaluator)
	if err != nil {
		return err
	}
	paymentService, err := payments.NewService(paymentsRepo, dbClient)
	if err != nil {
		return err
	}
	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:      orders.NewRepository(conn),
		Tx:        dbClient,
		Outbox:    outbox.NewService(outbox.NewRepository(conn), logg),
		Catalog:   catalog.NewRepository(conn),
		Customers: customersRepo,
		Discounts: discountsRepo,
		Payments:  paymentsRepo,
		Evaluator: evaluator,
		Logger:    logg,
		Metrics:   metrics.NewSettlementMetrics(reg),
	})
	if err != nil {
		return err
	}

	handler := routes.NewRouter(cfg, logg, routes.Dependencies{
		DB:          dbClient,
		Redis:       redisClient,
		Orders:      orderService,
		Discounts:   discountService,
		Payments:    paymentService,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Gatherer:    reg,
	})

	port := env.First(cfg.App.Port, "PORT")
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     server.Addr,
		"polarity": string(polarity),
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
