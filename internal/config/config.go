// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port string `envconfig:"PORT" default:"8080"`

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// LogLevel controls the minimum log level: debug, info, warn, error.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// LogFormat selects the zap encoder: json or console.
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to the Vite dev server.
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`

	// MaxBodyBytes caps request bodies. Larger requests get 413.
	MaxBodyBytes int64 `envconfig:"MAX_BODY_BYTES" default:"1048576"`

	// ClaimStore selects where slot bookings are counted: postgres, redis or memory.
	ClaimStore string `envconfig:"CLAIM_STORE" default:"postgres"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_KEY_PREFIX" default:"sitedrop:slot"`

	// ClaimRetentionDays is how long a redis claim set outlives its slot day.
	ClaimRetentionDays int `envconfig:"CLAIM_RETENTION_DAYS" default:"30"`

	// DeliveryTimezone is the IANA zone slot windows are read in.
	DeliveryTimezone string `envconfig:"DELIVERY_TIMEZONE" default:"UTC"`

	// AMQPURL enables lifecycle events when set.
	AMQPURL       string `envconfig:"AMQP_URL"`
	OrderExchange string `envconfig:"ORDER_EXCHANGE" default:"order.exchange"`

	AuthzEnabled bool `envconfig:"AUTHZ_ENABLED" default:"true"`

	// OTLPEndpoint is the collector address. Tracing is off when empty.
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"sitedrop-api"`

	location *time.Location
}

// Claim store backends accepted by CLAIM_STORE.
const (
	ClaimStorePostgres = "postgres"
	ClaimStoreRedis    = "redis"
	ClaimStoreMemory   = "memory"
)

// Load reads configuration from environment variables and returns a Config.
// Returns an error naming any required variable that is missing or any
// value that is out of range.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("config: required key DATABASE_URL missing value")
	}

	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)

	switch cfg.ClaimStore {
	case ClaimStorePostgres, ClaimStoreRedis, ClaimStoreMemory:
	default:
		return Config{}, fmt.Errorf("config: CLAIM_STORE must be postgres, redis or memory, got %q", cfg.ClaimStore)
	}

	switch cfg.LogFormat {
	case "json", "console":
	default:
		return Config{}, fmt.Errorf("config: LOG_FORMAT must be json or console, got %q", cfg.LogFormat)
	}

	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("config: MAX_BODY_BYTES must be positive, got %d", cfg.MaxBodyBytes)
	}
	if cfg.ClaimRetentionDays < 0 {
		return Config{}, fmt.Errorf("config: CLAIM_RETENTION_DAYS must not be negative, got %d", cfg.ClaimRetentionDays)
	}

	loc, err := time.LoadLocation(cfg.DeliveryTimezone)
	if err != nil {
		return Config{}, fmt.Errorf("config: DELIVERY_TIMEZONE: %w", err)
	}
	cfg.location = loc

	return cfg, nil
}

// Location returns the loaded DELIVERY_TIMEZONE, or UTC for a zero Config.
func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// ClaimRetention is ClaimRetentionDays as a duration.
func (c Config) ClaimRetention() time.Duration {
	return time.Duration(c.ClaimRetentionDays) * 24 * time.Hour
}

// trimAll trims each entry and drops empty ones.
func trimAll(in []string) []string {
	var out []string
	for _, part := range in {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
