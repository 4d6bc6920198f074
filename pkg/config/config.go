package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	Carts         CartConfig
	Tickets       TicketConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"EVENTPASS_APP_ENV" required:"true"`
	Port         string `envconfig:"EVENTPASS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"EVENTPASS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"EVENTPASS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"EVENTPASS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"EVENTPASS_DB_DSN"`
	Driver string `envconfig:"EVENTPASS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"EVENTPASS_DB_HOST"`
	LegacyPort     int    `envconfig:"EVENTPASS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"EVENTPASS_DB_USER"`
	LegacyPassword string `envconfig:"EVENTPASS_DB_PASSWORD"`
	LegacyName     string `envconfig:"EVENTPASS_DB_NAME"`
	LegacySSLMode  string `envconfig:"EVENTPASS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"EVENTPASS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EVENTPASS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EVENTPASS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EVENTPASS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"EVENTPASS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"EVENTPASS_REDIS_ADDR"`
	Password     string        `envconfig:"EVENTPASS_REDIS_PASSWORD"`
	DB           int           `envconfig:"EVENTPASS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EVENTPASS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EVENTPASS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EVENTPASS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EVENTPASS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EVENTPASS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"EVENTPASS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"EVENTPASS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"EVENTPASS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"EVENTPASS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"EVENTPASS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"EVENTPASS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"EVENTPASS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"EVENTPASS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"EVENTPASS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"EVENTPASS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"EVENTPASS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"EVENTPASS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"EVENTPASS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"EVENTPASS_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"EVENTPASS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"EVENTPASS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"EVENTPASS_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"EVENTPASS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type CartConfig struct {
	// Active carts with no activity past this TTL are expired by the cron worker.
	IdleTTL time.Duration `envconfig:"EVENTPASS_CART_IDLE_TTL" default:"48h"`
}

type TicketConfig struct {
	// QRBaseURL prefixes the final key when rendering scannable payloads.
	QRBaseURL string `envconfig:"EVENTPASS_TICKET_QR_BASE_URL" default:""`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"EVENTPASS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"EVENTPASS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"EVENTPASS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"EVENTPASS_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription string `envconfig:"EVENTPASS_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	StatsTopic         string `envconfig:"EVENTPASS_PUBSUB_STATS_TOPIC" required:"true"`
	StatsSubscription  string `envconfig:"EVENTPASS_PUBSUB_STATS_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset string `envconfig:"EVENTPASS_BIGQUERY_DATASET"`
	// LifecycleEventsTable archives every outbox event as an append-only row.
	LifecycleEventsTable string `envconfig:"EVENTPASS_BIGQUERY_LIFECYCLE_EVENTS_TABLE" default:"lifecycle_events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"EVENTPASS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"EVENTPASS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"EVENTPASS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// ensureDSN assembles a postgres URL from the discrete host/user/name vars
// when no DSN was given, so older deployment manifests keep working.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
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
