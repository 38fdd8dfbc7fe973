package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tair/fundwatch/pkg/database"
)

// Favorites backends
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendNone     = "none"
)

// Config holds application configuration
type Config struct {
	ServiceName   string
	Environment   string
	LogLevel      string
	HTTPPort      string
	CORSOrigins   []string
	CookieSecure  bool
	SessionTTL    time.Duration
	TracingOn     bool
	JaegerURL     string
	FundsAPIURL   string
	FundsTimeout  time.Duration
	FundsRetryMax int
	FundsLocale   string

	FavoritesBackend  string
	ReconcileStrategy string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	Postgres          database.Config
	DialMaxFailures   int
	DialCooldown      time.Duration
	LocalCachePath    string

	KafkaBrokers []string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName:   getEnv("OTEL_SERVICE_NAME", "fundwatch"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		CORSOrigins:   getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CookieSecure:  getEnvAsBool("COOKIE_SECURE", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		TracingOn:     getEnvAsBool("TRACING_ENABLED", false),
		JaegerURL:     getEnv("JAEGER_ENDPOINT", ""),
		FundsAPIURL:   getEnv("FUNDS_API_URL", "https://www.am.mufg.jp/fund/api/v1/funds"),
		FundsTimeout:  getEnvAsDuration("FUNDS_API_TIMEOUT", 5*time.Second),
		FundsRetryMax: getEnvAsInt("FUNDS_API_RETRY_MAX", 2),
		FundsLocale:   getEnv("FUNDS_LOCALE", "ja"),

		FavoritesBackend:  strings.ToLower(getEnv("FAVORITES_BACKEND", BackendRedis)),
		ReconcileStrategy: getEnv("FAVORITES_RECONCILE_STRATEGY", "source-wins"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvAsInt("REDIS_DB", 0),
		Postgres: database.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "fundwatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		DialMaxFailures: getEnvAsInt("STORE_DIAL_MAX_FAILURES", 3),
		DialCooldown:    getEnvAsDuration("STORE_DIAL_COOLDOWN", 30*time.Second),
		LocalCachePath:  getEnv("LOCAL_CACHE_PATH", "./data/local-cache.db"),

		KafkaBrokers: getEnvAsList("KAFKA_BROKERS", nil),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that enumerated settings hold known values
func (c *Config) Validate() error {
	switch c.FavoritesBackend {
	case BackendRedis, BackendPostgres, BackendNone:
	default:
		return fmt.Errorf("FAVORITES_BACKEND must be one of redis, postgres, none (got %q)", c.FavoritesBackend)
	}

	switch c.ReconcileStrategy {
	case "source-wins", "union":
	default:
		return fmt.Errorf("FAVORITES_RECONCILE_STRATEGY must be source-wins or union (got %q)", c.ReconcileStrategy)
	}

	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.DialMaxFailures < 1 {
		return fmt.Errorf("STORE_DIAL_MAX_FAILURES must be at least 1")
	}

	return nil
}

// IsDevelopment reports whether logs should be human readable
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
