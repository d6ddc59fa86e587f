package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Socrata API
	SocrataDomain string
	DatasetID     string
	RowLimit      int
	MaxPages      int
	MaxRetries    int
	RetryBackoff  time.Duration

	// Cache
	CacheTTL time.Duration

	// Rate limiting for the expensive endpoints (export, forced refresh)
	RateLimit       int
	RateLimitWindow time.Duration

	// Geographic reference files
	DivipolaPath string
	GeoJSONPath  string
	GeoJSONURL   string

	// Snapshot store
	SnapshotDBPath string

	// AMQP (optional refresh events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		SocrataDomain: getEnv("SOCRATA_DOMAIN", SocrataDomain),
		DatasetID:     getEnv("SOCRATA_DATASET_ID", DatasetID),
		RowLimit:      getEnvInt("SOCRATA_ROW_LIMIT", 5000),
		MaxPages:      getEnvInt("SOCRATA_MAX_PAGES", 50),
		MaxRetries:    getEnvInt("SOCRATA_MAX_RETRIES", 3),
		RetryBackoff:  getEnvDuration("SOCRATA_RETRY_BACKOFF", 2*time.Second),

		CacheTTL: getEnvDuration("CACHE_TTL", time.Hour),

		RateLimit:       getEnvInt("RATE_LIMIT", 60),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		DivipolaPath: getEnv("DIVIPOLA_PATH", DivipolaPath),
		GeoJSONPath:  getEnv("GEOJSON_PATH", GeoJSONLocalPath),
		GeoJSONURL:   getEnv("GEOJSON_URL", GeoJSONURL),

		SnapshotDBPath: getEnv("SNAPSHOT_DB_PATH", "./data/regalias.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "regalias"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dataset_refresh"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SocrataDomain == "" {
		errors = append(errors, "Socrata domain cannot be empty")
	}
	if c.DatasetID == "" {
		errors = append(errors, "Socrata dataset ID cannot be empty")
	}

	if c.RowLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid row limit %d: must be at least 1", c.RowLimit))
	} else if c.RowLimit > 50000 {
		errors = append(errors, fmt.Sprintf("invalid row limit %d: must be at most 50000", c.RowLimit))
	}

	if c.MaxPages < 1 {
		errors = append(errors, fmt.Sprintf("invalid max pages %d: must be at least 1", c.MaxPages))
	}

	if c.MaxRetries < 1 {
		errors = append(errors, fmt.Sprintf("invalid max retries %d: must be at least 1", c.MaxRetries))
	} else if c.MaxRetries > 10 {
		errors = append(errors, fmt.Sprintf("invalid max retries %d: must be at most 10", c.MaxRetries))
	}

	if c.RetryBackoff < 0 {
		errors = append(errors, fmt.Sprintf("invalid retry backoff %v: must not be negative", c.RetryBackoff))
	}

	if c.CacheTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 minute", c.CacheTTL))
	} else if c.CacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at most 24 hours", c.CacheTTL))
	}

	if c.RateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimit))
	}
	if c.RateLimitWindow < time.Second {
		errors = append(errors, fmt.Sprintf("invalid rate limit window %v: must be at least 1 second", c.RateLimitWindow))
	}

	if c.SnapshotDBPath != "" {
		dir := filepath.Dir(c.SnapshotDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create snapshot database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
