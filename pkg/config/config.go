// Package config loads and validates service configuration.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Upstream UpstreamConfig
	Pipeline PipelineConfig
	Fallback FallbackConfig
	Warmer   WarmerConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	CORSAllowedOrigins []string
	RateLimit          int
	RateWindow         time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

// Source kinds accepted by RECORD_SOURCE.
const (
	SourceREST     = "rest"
	SourcePostgres = "postgres"
	SourceMock     = "mock"
)

// UpstreamConfig describes where records come from.
type UpstreamConfig struct {
	Source   string
	BaseURL  string
	Timeout  time.Duration
	PageSize int
}

// PipelineConfig tunes pagination and filtering.
type PipelineConfig struct {
	DefaultPageSize  int
	MaxPageSize      int
	StrictUpperBound bool
}

// FallbackConfig controls what is served when the upstream fails.
type FallbackConfig struct {
	MockEnabled bool
	SnapshotTTL time.Duration
}

// WarmerConfig controls the periodic snapshot refresh.
type WarmerConfig struct {
	Enabled      bool
	Schedule     string
	ActiveWindow time.Duration
	MaxOwners    int
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),

			CORSAllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS"),
			RateLimit:          getIntEnv("RATE_LIMIT", 120),
			RateWindow:         getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      normalizeRedisURL(getEnv("REDIS_URL", "localhost:6379")),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-this-secret"),
		},
		Upstream: UpstreamConfig{
			Source:   strings.ToLower(getEnv("RECORD_SOURCE", SourceREST)),
			BaseURL:  strings.TrimRight(getEnv("UPSTREAM_BASE_URL", "http://localhost:4000/api"), "/"),
			Timeout:  getDurationEnv("UPSTREAM_TIMEOUT", 5*time.Second),
			PageSize: getIntEnv("UPSTREAM_PAGE_SIZE", 1000),
		},
		Pipeline: PipelineConfig{
			DefaultPageSize:  getIntEnv("PIPELINE_DEFAULT_PAGE_SIZE", 10),
			MaxPageSize:      getIntEnv("PIPELINE_MAX_PAGE_SIZE", 100),
			StrictUpperBound: getBoolEnv("PIPELINE_STRICT_UPPER_BOUND", false),
		},
		Fallback: FallbackConfig{
			MockEnabled: getBoolEnv("FALLBACK_MOCK_ENABLED", true),
			SnapshotTTL: getDurationEnv("SNAPSHOT_TTL", 24*time.Hour),
		},
		Warmer: WarmerConfig{
			Enabled:      getBoolEnv("WARMER_ENABLED", true),
			Schedule:     getEnv("WARMER_SCHEDULE", "@every 5m"),
			ActiveWindow: getDurationEnv("WARMER_ACTIVE_WINDOW", time.Hour),
			MaxOwners:    getIntEnv("WARMER_MAX_OWNERS", 200),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getListEnv splits a comma-separated value, dropping empty items.
func getListEnv(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func normalizeRedisURL(url string) string {
	// Strip redis:// or redis+tls:// scheme if present
	if strings.HasPrefix(url, "redis+tls://") {
		return url[len("redis+tls://"):]
	}
	if strings.HasPrefix(url, "redis://") {
		return url[len("redis://"):]
	}
	return url
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultValue
}
