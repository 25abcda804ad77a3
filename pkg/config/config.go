package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "CATALOG_DB_DSN"
	EnvDBHost = "CATALOG_DB_HOST"
	EnvDBUser = "CATALOG_DB_USER"
	EnvDBName = "CATALOG_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Import       ImportConfig
	Pricing      PricingConfig
	Inference    InferenceConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Explosion    ExplosionConfig
	Readiness    ReadinessConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CATALOG_APP_ENV" default:"dev"`
	Port         string `envconfig:"CATALOG_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CATALOG_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CATALOG_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CATALOG_SERVICE_KIND" default:"import-worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"CATALOG_DB_DSN"`
	Driver string `envconfig:"CATALOG_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CATALOG_DB_HOST"`
	LegacyPort     int    `envconfig:"CATALOG_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CATALOG_DB_USER"`
	LegacyPassword string `envconfig:"CATALOG_DB_PASSWORD"`
	LegacyName     string `envconfig:"CATALOG_DB_NAME"`
	LegacySSLMode  string `envconfig:"CATALOG_DB_SSLMODE" default:"disable"`

	MaxOpenConns     int           `envconfig:"CATALOG_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns     int           `envconfig:"CATALOG_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime  time.Duration `envconfig:"CATALOG_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime  time.Duration `envconfig:"CATALOG_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	StatementTimeout time.Duration `envconfig:"CATALOG_DB_STATEMENT_TIMEOUT" default:"30s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CATALOG_REDIS_URL"`
	Address      string        `envconfig:"CATALOG_REDIS_ADDR"`
	Password     string        `envconfig:"CATALOG_REDIS_PASSWORD"`
	DB           int           `envconfig:"CATALOG_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CATALOG_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CATALOG_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CATALOG_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CATALOG_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CATALOG_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate      bool `envconfig:"CATALOG_AUTO_MIGRATE" default:"false"`
	InferenceEnabled bool `envconfig:"CATALOG_FEATURE_INFERENCE_MATCHING" default:"false"`
}

type ImportConfig struct {
	BatchSize   int           `envconfig:"CATALOG_IMPORT_BATCH_SIZE" default:"100"`
	WorkerCount int           `envconfig:"CATALOG_IMPORT_WORKER_COUNT" default:"4"`
	PollDelay   time.Duration `envconfig:"CATALOG_IMPORT_POLL_DELAY" default:"2s"`
}

type PricingConfig struct {
	RuleCacheTTL time.Duration `envconfig:"CATALOG_PRICING_RULE_CACHE_TTL" default:"5m"`
}

type InferenceConfig struct {
	APIKey        string        `envconfig:"CATALOG_OPENAI_API_KEY"`
	Model         string        `envconfig:"CATALOG_INFERENCE_MODEL" default:"gpt-4o-mini"`
	Timeout       time.Duration `envconfig:"CATALOG_INFERENCE_TIMEOUT" default:"8s"`
	MaxCandidates int           `envconfig:"CATALOG_INFERENCE_MAX_CANDIDATES" default:"20"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"CATALOG_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	ContentTopic     string `envconfig:"CATALOG_PUBSUB_CONTENT_TOPIC" default:"catalog-content-events"`
	PriceTopic       string `envconfig:"CATALOG_PUBSUB_PRICE_TOPIC" default:"catalog-price-events"`
	StockTopic       string `envconfig:"CATALOG_PUBSUB_STOCK_TOPIC" default:"catalog-stock-events"`
	FeedSubscription string `envconfig:"CATALOG_PUBSUB_FEED_SUBSCRIPTION" default:"catalog-supplier-feeds"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CATALOG_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CATALOG_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CATALOG_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"CATALOG_OUTBOX_RETENTION_DAYS" default:"30"`
}

type ExplosionConfig struct {
	BatchSize int `envconfig:"CATALOG_EXPLOSION_BATCH_SIZE" default:"50"`
}

type ReadinessConfig struct {
	StaleMaxAge  time.Duration `envconfig:"CATALOG_READINESS_STALE_MAX_AGE" default:"24h"`
	RefreshLimit int           `envconfig:"CATALOG_READINESS_REFRESH_LIMIT" default:"200"`
}

type CronConfig struct {
	Interval      time.Duration `envconfig:"CATALOG_CRON_INTERVAL" default:"1h"`
	LockTTL       time.Duration `envconfig:"CATALOG_CRON_LOCK_TTL" default:"2h"`
	StaleClaimAge time.Duration `envconfig:"CATALOG_OUTBOX_STALE_CLAIM_AGE" default:"10m"`
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
