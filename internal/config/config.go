package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	SLA          SLAConfig
	Catalog      CatalogConfig
	Telemetry    TelemetryConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// Format is "json" (default) or "console".
	Format string
	// Output is a zap sink path; empty means stdout.
	Output string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret string
	// ClockSkew is the leeway applied to token expiry checks.
	ClockSkew time.Duration
}

// NotificationConfig holds the outbound webhook used to relay activities.
type NotificationConfig struct {
	WebhookURL     string
	TimeoutSeconds int
}

// SLAConfig tunes breach scanning.
type SLAConfig struct {
	ScanEnabled   bool
	ScanInterval  time.Duration
	ScanBatchSize int
	LeaseKey      string
	LeaseTTL      time.Duration
	AtRiskRatio   float64
}

// CatalogConfig points at an optional YAML file of calendars, policies,
// triggers and macros loaded at startup.
type CatalogConfig struct {
	File  string
	Watch bool
}

// TelemetryConfig enables OTLP tracing when an endpoint is set.
type TelemetryConfig struct {
	OTLPEndpoint string
	Insecure     bool
	SampleRatio  float64
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-sla"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:        getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:    os.Getenv("REDIS_PASSWORD"),
			DB:          redisDB,
			PoolSize:    getEnvAsInt("REDIS_POOL_SIZE", 4),
			DialTimeout: getEnvAsDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: os.Getenv("LOG_OUTPUT"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", "dev-secret"),
			ClockSkew: getEnvAsDuration("AUTH_CLOCK_SKEW", 30*time.Second),
		},
		Notification: NotificationConfig{
			WebhookURL:     getEnv("NOTIFY_WEBHOOK_URL", ""),
			TimeoutSeconds: getEnvAsInt("NOTIFY_WEBHOOK_TIMEOUT_SECONDS", 5),
		},
		SLA: SLAConfig{
			ScanEnabled:   getEnvAsBool("SLA_SCAN_ENABLED", true),
			ScanInterval:  getEnvAsDuration("SLA_SCAN_INTERVAL", 5*time.Minute),
			ScanBatchSize: getEnvAsInt("SLA_SCAN_BATCH_SIZE", 200),
			LeaseKey:      getEnv("SLA_SCAN_LEASE_KEY", "helpdesk-sla:breach-scan"),
			LeaseTTL:      getEnvAsDuration("SLA_SCAN_LEASE_TTL", 4*time.Minute),
			AtRiskRatio:   getEnvAsFloat("SLA_AT_RISK_RATIO", 0.25),
		},
		Catalog: CatalogConfig{
			File:  os.Getenv("CATALOG_FILE"),
			Watch: getEnvAsBool("CATALOG_WATCH", false),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure:     getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRatio:  getEnvAsFloat("OTEL_TRACES_SAMPLER_RATIO", 1),
		},
	}

	if cfg.SLA.ScanBatchSize <= 0 {
		return nil, fmt.Errorf("invalid SLA_SCAN_BATCH_SIZE: must be positive")
	}
	if cfg.SLA.ScanInterval <= 0 {
		return nil, fmt.Errorf("invalid SLA_SCAN_INTERVAL: must be positive")
	}
	if cfg.SLA.AtRiskRatio < 0 || cfg.SLA.AtRiskRatio > 1 {
		return nil, fmt.Errorf("invalid SLA_AT_RISK_RATIO: must be within [0,1]")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the webhook client timeout.
func (n NotificationConfig) Timeout() time.Duration {
	if n.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(n.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
