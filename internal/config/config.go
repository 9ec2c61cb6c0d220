package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendAPI    = "api"
	BackendSQLite = "sqlite"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Store
	StoreBackend string
	StoreAPIURL  string
	SQLitePath   string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Carts & reports
	CartIdleTTL    time.Duration
	ReportCacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Order events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendAPI)),
		StoreAPIURL:  strings.TrimRight(getEnv("STORE_API_URL", "http://localhost:3001"), "/"),
		SQLitePath:   getEnv("SQLITE_DB_PATH", "./data/pos.db"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 15*time.Second),

		MaxAttempts:    getEnvInt("MAX_ATTEMPTS", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", time.Second),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 8),

		CartIdleTTL:    getEnvDuration("CART_IDLE_TTL", 2*time.Hour),
		ReportCacheTTL: getEnvDuration("REPORT_CACHE_TTL", 10*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "pos"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "pos.orders"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
