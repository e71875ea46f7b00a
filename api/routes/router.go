package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/letrinh/letrinh-backend/api/controllers"
	discountcontrollers "github.com/letrinh/letrinh-backend/api/controllers/discounts"
	ordercontrollers "github.com/letrinh/letrinh-backend/api/controllers/orders"
	paymentcontrollers "github.com/letrinh/letrinh-backend/api/controllers/payments"
	"github.com/letrinh/letrinh-backend/api/middleware"
	"github.com/letrinh/letrinh-backend/internal/discounts"
	"github.com/letrinh/letrinh-backend/internal/orders"
	"github.com/letrinh/letrinh-backend/internal/payments"
	"github.com/letrinh/letrinh-backend/pkg/config"
	"github.com/letrinh/letrinh-backend/pkg/logger"
	pkgredis "github.com/letrinh/letrinh-backend/pkg/redis"
	"github.com/letrinh/letrinh-backend/pkg/telemetry"
)

// RedisStore is the subset of the Redis client the HTTP layer uses for
// idempotent order creation and rate limiting.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindow(ctx context.Context, scope string, limit int64, window time.Duration) (pkgredis.WindowResult, error)
}

type requestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// Dependencies are the collaborators NewRouter mounts. DB and Redis may be
// nil in tests; Redis-backed middleware is skipped when Redis is nil.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       RedisStore
	Orders      orders.Service
	Discounts   discounts.Service
	Payments    payments.Service
	HTTPMetrics requestObserver
	Gatherer    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)
	if deps.HTTPMetrics != nil {
		r.Use(middleware.Metrics(deps.HTTPMetrics))
	}

	admin := middleware.RequireAdmin(cfg.JWT, logg)
	discountPolicy := middleware.NewRateLimitPolicy(
		"discount",
		cfg.RateLimit.DiscountWindow,
		cfg.RateLimit.DiscountIPLimit,
	)
	var (
		idempotencyStore pkgredis.IdempotencyStore
		redisPinger      controllers.Pinger
	)
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		if p, ok := deps.Redis.(controllers.Pinger); ok {
			redisPinger = p
		}
	}
	limiter := middleware.RateLimit(discountPolicy, deps.Redis, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": redisPinger,
		}))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/order", func(r chi.Router) {
		svc := deps.Orders
		r.With(middleware.Idempotency(idempotencyStore, middleware.DefaultIdempotencyTTL, logg)).Post("/", ordercontrollers.Create(svc, logg))
		r.Get("/", ordercontrollers.List(svc, logg))
		r.Get("/{id}/detail", ordercontrollers.Detail(svc, logg))
		r.Get("/user/{customerId}", ordercontrollers.ListByCustomer(svc, logg))
		r.Put("/status/{id}", ordercontrollers.UpdatePaymentStatus(svc, logg))

		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Get("/status/{status}", ordercontrollers.ListByPaymentStatus(svc, logg))
			r.Get("/{id}", ordercontrollers.Get(svc, logg))
			r.Put("/{id}", ordercontrollers.Update(svc, logg))
			r.Delete("/{id}", ordercontrollers.Delete(svc, logg))
		})
	})

	r.Route("/discount", func(r chi.Router) {
		svc := deps.Discounts
		r.Get("/", discountcontrollers.List(svc, logg))
		r.Get("/id/{id}", discountcontrollers.Get(svc, logg))
		r.Get("/code/{code}", discountcontrollers.SearchByCode(svc, logg))
		r.Get("/types", discountcontrollers.ConditionTypes(svc, logg))
		r.Get("/conditions-type", discountcontrollers.ConditionTypes(svc, logg))
		r.Get("/{id}/orders", discountcontrollers.Orders(svc, logg))
		r.Get("/orders/{id}", discountcontrollers.Orders(svc, logg))
		r.With(limiter).Post("/check", discountcontrollers.Check(svc, logg))
		r.With(limiter).Post("/applicable", discountcontrollers.Applicable(svc, logg))

		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Post("/", discountcontrollers.Create(svc, logg))
			r.Put("/{id}", discountcontrollers.Update(svc, logg))
			r.Delete("/{id}", discountcontrollers.Delete(svc, logg))
		})
	})

	r.Route("/payment", func(r chi.Router) {
		svc := deps.Payments
		r.Get("/", paymentcontrollers.List(svc, logg))
		r.Get("/{id}", paymentcontrollers.Get(svc, logg))
		r.Post("/", paymentcontrollers.Create(svc, logg))

		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Put("/{id}", paymentcontrollers.Update(svc, logg))
			r.Delete("/{id}", paymentcontrollers.Delete(svc, logg))
		})
	})

	return telemetry.WrapHandler(r, "letrinh-api")
}
