package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the builder.
type Config struct {
	Redis   RedisConfig
	Content ContentConfig
}

// RedisConfig holds Redis connection settings. Redis backs both the
// finalized-character store and the content cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ContentConfig controls the content cache layer.
type ContentConfig struct {
	// CacheTTL bounds how long compendium items stay cached.
	CacheTTL time.Duration
}

// Load loads configuration from environment variables. Every setting has a
// working default, so an empty environment yields a usable local config.
func Load() (*Config, error) {
	cfg := &Config{
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvAsIntOrDefault("REDIS_DB", 0),
		},
		Content: ContentConfig{
			CacheTTL: getEnvAsDurationOrDefault("CONTENT_CACHE_TTL", time.Hour),
		},
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
