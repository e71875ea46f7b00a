package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Discount     DiscountConfig
	RateLimit    RateLimitConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	Outbox       OutboxConfig
	Zalo         ZaloConfig
	Telemetry    TelemetryConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Outbox.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Discount.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LETRINH_APP_ENV" required:"true"`
	Port         string `envconfig:"LETRINH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LETRINH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LETRINH_LOG_WARN_STACK" default:"false"`
	// CORSOrigins replaces the built-in origin list when set.
	CORSOrigins []string `envconfig:"LETRINH_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"LETRINH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LETRINH_DB_DSN"`
	Driver string `envconfig:"LETRINH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LETRINH_DB_HOST"`
	LegacyPort     int    `envconfig:"LETRINH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LETRINH_DB_USER"`
	LegacyPassword string `envconfig:"LETRINH_DB_PASSWORD"`
	LegacyName     string `envconfig:"LETRINH_DB_NAME"`
	LegacySSLMode  string `envconfig:"LETRINH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LETRINH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LETRINH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LETRINH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LETRINH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery logs statements slower than this at warn. Zero disables.
	SlowQuery time.Duration `envconfig:"LETRINH_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LETRINH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LETRINH_REDIS_ADDR"`
	Password     string        `envconfig:"LETRINH_REDIS_PASSWORD"`
	DB           int           `envconfig:"LETRINH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LETRINH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LETRINH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LETRINH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LETRINH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LETRINH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the verification settings for admin tokens. Tokens are
// issued by the Zalo mini-app auth service, never by this backend.
type JWTConfig struct {
	Secret string `envconfig:"LETRINH_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"LETRINH_JWT_ISSUER"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LETRINH_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LETRINH_AUTO_MIGRATE" default:"false"`
}

type DiscountConfig struct {
	TotalQuantityPolarity string `envconfig:"LETRINH_DISCOUNT_TOTAL_QUANTITY_POLARITY" default:"inverted"`
}

func (d DiscountConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(d.TotalQuantityPolarity)) {
	case PolarityInverted, PolarityThreshold:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvDiscountPolarity, PolarityInverted, PolarityThreshold)
	}
}

type RateLimitConfig struct {
	DiscountWindow  time.Duration `envconfig:"LETRINH_RATE_LIMIT_DISCOUNT_WINDOW" default:"1m"`
	DiscountIPLimit int           `envconfig:"LETRINH_RATE_LIMIT_DISCOUNT_IP_LIMIT" default:"60"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"LETRINH_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LETRINH_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"LETRINH_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LETRINH_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"LETRINH_PUBSUB_ORDERS_TOPIC" default:"letrinh-order-events"`
	OrdersSubscription string `envconfig:"LETRINH_PUBSUB_ORDERS_SUBSCRIPTION" default:"letrinh-order-notifications"`
}

type KafkaConfig struct {
	Brokers     []string `envconfig:"LETRINH_KAFKA_BROKERS"`
	OrdersTopic string   `envconfig:"LETRINH_KAFKA_ORDERS_TOPIC" default:"letrinh.order.events"`
	GroupID     string   `envconfig:"LETRINH_KAFKA_GROUP_ID" default:"letrinh-notifications"`
}

type OutboxConfig struct {
	Sink           string `envconfig:"LETRINH_OUTBOX_SINK" default:"pubsub"`
	BatchSize      int    `envconfig:"LETRINH_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"LETRINH_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"LETRINH_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsAddr    string `envconfig:"LETRINH_OUTBOX_METRICS_ADDR"`
}

func (o OutboxConfig) validate() error {
	switch o.SinkKind() {
	case SinkPubSub, SinkKafka:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvOutboxSink, SinkPubSub, SinkKafka)
	}
}

// SinkKind returns the normalized outbox sink name.
func (o OutboxConfig) SinkKind() string {
	return strings.ToLower(strings.TrimSpace(o.Sink))
}

type ZaloConfig struct {
	BaseURL      string        `envconfig:"LETRINH_ZALO_BASE_URL" default:"https://openapi.mini.zalo.me"`
	APIKey       string        `envconfig:"LETRINH_ZALO_API_KEY"`
	MiniAppID    string        `envconfig:"LETRINH_ZALO_MINIAPP_ID"`
	TemplateID   string        `envconfig:"LETRINH_ZALO_TEMPLATE_ID"`
	ButtonText   string        `envconfig:"LETRINH_ZALO_BUTTON_TEXT" default:"Xem đơn hàng"`
	ButtonURL    string        `envconfig:"LETRINH_ZALO_BUTTON_URL"`
	ContentTitle string        `envconfig:"LETRINH_ZALO_CONTENT_TITLE" default:"Cảm ơn bạn đã đặt hàng"`
	Timeout      time.Duration `envconfig:"LETRINH_ZALO_TIMEOUT" default:"10s"`
}

// Enabled reports whether order confirmations can be delivered.
func (z ZaloConfig) Enabled() bool {
	return strings.TrimSpace(z.APIKey) != "" && strings.TrimSpace(z.MiniAppID) != ""
}

type TelemetryConfig struct {
	Enabled        bool   `envconfig:"LETRINH_OTEL_ENABLED" default:"false"`
	OTLPEndpoint   string `envconfig:"LETRINH_OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	ServiceVersion string `envconfig:"LETRINH_SERVICE_VERSION" default:"dev"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"LETRINH_CRON_INTERVAL" default:"24h"`
	LockKey             string        `envconfig:"LETRINH_CRON_LOCK_KEY" default:"cron-worker"`
	LockTTL             time.Duration `envconfig:"LETRINH_CRON_LOCK_TTL" default:"25h"`
	OutboxRetentionDays int           `envconfig:"LETRINH_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays    int           `envconfig:"LETRINH_CRON_DLQ_RETENTION_DAYS" default:"90"`
	JobTimeout          time.Duration `envconfig:"LETRINH_CRON_JOB_TIMEOUT" default:"10m"`
	// MetricsAddr serves /metrics for the cron worker when set, e.g. ":9102".
	MetricsAddr string `envconfig:"LETRINH_CRON_METRICS_ADDR"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
