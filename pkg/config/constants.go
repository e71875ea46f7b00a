package config

const EnvPrefix = "LETRINH"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv           = "LETRINH_APP_ENV"
	EnvPort             = "LETRINH_APP_PORT"
	EnvLogLevel         = "LETRINH_LOG_LEVEL"
	EnvDBDSN            = "LETRINH_DB_DSN"
	EnvDBHost           = "LETRINH_DB_HOST"
	EnvDBPort           = "LETRINH_DB_PORT"
	EnvDBUser           = "LETRINH_DB_USER"
	EnvDBPassword       = "LETRINH_DB_PASSWORD"
	EnvDBName           = "LETRINH_DB_NAME"
	EnvRedisURL         = "LETRINH_REDIS_URL"
	EnvJWTSecret        = "LETRINH_JWT_SECRET"
	EnvDiscountPolarity = "LETRINH_DISCOUNT_TOTAL_QUANTITY_POLARITY"
	EnvOutboxSink       = "LETRINH_OUTBOX_SINK"
	EnvKafkaBrokers     = "LETRINH_KAFKA_BROKERS"
	EnvZaloAPIKey       = "LETRINH_ZALO_API_KEY"
	EnvZaloMiniAppID    = "LETRINH_ZALO_MINIAPP_ID"
)

// legacyDBEnvVars must all be set when no DSN is provided.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

// TOTAL_QUANTITY polarity modes.
const (
	PolarityInverted  = "inverted"
	PolarityThreshold = "threshold"
)

const (
	SinkPubSub = "pubsub"
	SinkKafka  = "kafka"
)
