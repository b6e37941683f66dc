package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/glintly/billing-go/pkg/observability"
)

// Config holds all billing client configuration
type Config struct {
	// Billing backend configuration
	Billing BillingConfig

	// Refresh behavior after mutations
	Refresh RefreshConfig

	// Usage metering configuration
	Usage UsageConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// BillingConfig holds billing backend connection settings
type BillingConfig struct {
	BaseURL        string
	HTTPTimeout    time.Duration
	TracingEnabled bool
}

// RefreshConfig controls the post-mutation store refresh retry policy
type RefreshConfig struct {
	MaxRetries int
	Backoff    time.Duration
}

// UsageConfig holds usage metering settings
type UsageConfig struct {
	// Cron schedule for the periodic current-month usage refresh.
	// Empty disables the refresher.
	RefreshSchedule string

	// Number of frozen past-month usage records kept in memory
	CacheSize int

	// Budget for the async usage refresh after a report
	ReportRefreshTimeout time.Duration
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Billing: BillingConfig{
			BaseURL:        getEnv("GLINTLY_BILLING_URL", ""),
			HTTPTimeout:    getEnvDuration("GLINTLY_HTTP_TIMEOUT", 15*time.Second),
			TracingEnabled: getEnvBool("GLINTLY_TRACING_ENABLED", false),
		},
		Refresh: RefreshConfig{
			MaxRetries: getEnvInt("GLINTLY_REFRESH_RETRIES", 2),
			Backoff:    getEnvDuration("GLINTLY_REFRESH_BACKOFF", 250*time.Millisecond),
		},
		Usage: UsageConfig{
			RefreshSchedule:      getEnv("GLINTLY_USAGE_REFRESH_SCHEDULE", "@every 15m"),
			CacheSize:            getEnvInt("GLINTLY_USAGE_CACHE_SIZE", 24),
			ReportRefreshTimeout: getEnvDuration("GLINTLY_USAGE_REFRESH_TIMEOUT", 10*time.Second),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLogLevel(getEnv("GLINTLY_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("GLINTLY_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Billing.BaseURL == "" {
		return fmt.Errorf("billing backend URL is required")
	}
	if c.Billing.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive")
	}
	if c.Refresh.MaxRetries < 0 {
		return fmt.Errorf("refresh retries must not be negative")
	}
	if c.Refresh.Backoff <= 0 {
		return fmt.Errorf("refresh backoff must be positive")
	}
	if c.Usage.CacheSize <= 0 {
		return fmt.Errorf("usage cache size must be positive")
	}
	if c.Usage.ReportRefreshTimeout <= 0 {
		return fmt.Errorf("usage refresh timeout must be positive")
	}
	return nil
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
