package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/usos-inventory/server/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	USOS     USOSConfig
	Auth     AuthConfig

	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
	Timeout  time.Duration
}

// RedisConfig holds the session store configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// USOSConfig holds identity provider credentials and endpoints
type USOSConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	BaseURL        string
	Timeout        time.Duration
}

// AuthConfig holds login flow configuration
type AuthConfig struct {
	// BaseURL is this service's externally reachable origin, used to
	// build the OAuth callback URL.
	BaseURL string
	// FrontendURL is where web-channel logins are redirected after the
	// session is established.
	FrontendURL string
	SessionTTL  time.Duration
	StateTTL    time.Duration
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("INV_HOST", "0.0.0.0"),
			Port:            getEnv("INV_PORT", "8080"),
			ReadTimeout:     getEnvDuration("INV_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("INV_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("INV_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("INV_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("INV_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("INV_POSTGRES_URL", ""),
			MaxConns: getEnvInt("INV_POSTGRES_MAX_CONNS", 20),
			MinConns: getEnvInt("INV_POSTGRES_MIN_CONNS", 2),
			Timeout:  getEnvDuration("INV_POSTGRES_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("INV_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("INV_REDIS_PASSWORD", ""),
			DB:       getEnvInt("INV_REDIS_DB", 0),
		},
		USOS: USOSConfig{
			ConsumerKey:    getEnv("INV_USOS_CONSUMER_KEY", ""),
			ConsumerSecret: getEnv("INV_USOS_CONSUMER_SECRET", ""),
			BaseURL:        getEnv("INV_USOS_BASE_URL", "https://apps.usos.pw.edu.pl"),
			Timeout:        getEnvDuration("INV_USOS_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			BaseURL:     getEnv("INV_BASE_URL", "http://localhost:8080"),
			FrontendURL: getEnv("INV_FRONTEND_URL", "http://localhost:3000/"),
			SessionTTL:  getEnvDuration("INV_SESSION_TTL", 24*time.Hour),
			StateTTL:    getEnvDuration("INV_STATE_TTL", 10*time.Minute),
		},
		Observability: ObservabilityConfig{
			LogLevel:       parseLogLevel(getEnv("INV_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("INV_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.USOS.ConsumerKey == "" || c.USOS.ConsumerSecret == "" {
		return fmt.Errorf("USOS consumer key and secret are required")
	}
	if c.Auth.BaseURL == "" {
		return fmt.Errorf("base URL is required to build the OAuth callback")
	}
	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
