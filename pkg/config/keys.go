package config

// EnvPrefix is the envconfig prefix shared by every variable.
const EnvPrefix = "EVENTPASS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names, kept as constants so tests and tooling
// reference a single source of truth.
const (
	EnvAppEnv   = "EVENTPASS_APP_ENV"
	EnvPort     = "EVENTPASS_APP_PORT"
	EnvLogLevel = "EVENTPASS_LOG_LEVEL"

	EnvDBDSN  = "EVENTPASS_DB_DSN"
	EnvDBHost = "EVENTPASS_DB_HOST"
	EnvDBPort = "EVENTPASS_DB_PORT"
	EnvDBUser = "EVENTPASS_DB_USER"
	EnvDBName = "EVENTPASS_DB_NAME"

	EnvRedisURL = "EVENTPASS_REDIS_URL"

	EnvJWTSecret              = "EVENTPASS_JWT_SECRET"
	EnvJWTIssuer              = "EVENTPASS_JWT_ISSUER"
	EnvJWTExpMins             = "EVENTPASS_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "EVENTPASS_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID = "EVENTPASS_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic = "EVENTPASS_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub   = "EVENTPASS_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubStatsTopic  = "EVENTPASS_PUBSUB_STATS_TOPIC"
	EnvPubSubStatsSub    = "EVENTPASS_PUBSUB_STATS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
