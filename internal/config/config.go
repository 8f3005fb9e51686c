// Package config provides configuration management for lockgate.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultPort is the default TCP port the arbiter listens on.
	DefaultPort = 12321

	// DefaultReadTimeout is the default socket read timeout.
	DefaultReadTimeout = 4000 * time.Millisecond

	// DefaultResponseInterval is the default delay the server waits after
	// each reply. It sets the keepalive/re-arbitration cadence.
	DefaultResponseInterval = 2000 * time.Millisecond

	// MinReadTimeout is the enforced floor for the socket read timeout.
	MinReadTimeout = 1000 * time.Millisecond

	// MinResponseInterval is the enforced floor for the response interval.
	MinResponseInterval = 1000 * time.Millisecond
)

// Config holds the application configuration.
type Config struct {
	// Port is the TCP port the arbiter listens on for lock clients.
	Port int

	// ReadTimeout bounds how long session reads wait for a client line.
	// Must exceed the response interval used by the peers, or connections
	// will be spuriously dropped.
	ReadTimeout time.Duration

	// ResponseInterval is how long the server sleeps after each reply
	// before reading the next request from the same session.
	ResponseInterval time.Duration

	// AllowFrom is an optional allow-list of source IP addresses.
	// Empty means connections are accepted from anywhere.
	AllowFrom []string

	// AdminPort is the HTTP port for the admin/metrics API.
	// Empty disables the admin server.
	AdminPort string

	// LogLevel is the zerolog level name (debug, info, warn, error).
	LogLevel string
}

// Load loads configuration from environment variables with defaults.
// Call Validate before using the result.
func Load() *Config {
	return &Config{
		Port:             getEnvIntOrDefault("LOCKGATE_PORT", DefaultPort),
		ReadTimeout:      getEnvMillisOrDefault("LOCKGATE_READ_TIMEOUT_MS", DefaultReadTimeout),
		ResponseInterval: getEnvMillisOrDefault("LOCKGATE_INTERVAL_MS", DefaultResponseInterval),
		AllowFrom:        getEnvListOrDefault("LOCKGATE_ALLOW_FROM", nil),
		AdminPort:        getEnvOrDefault("ADMIN_PORT", ""),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
	}
}

// Validate rejects configurations that would destabilize the keepalive
// exchange. Violations are fatal; values are never silently clamped.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in range 1-65535, actual: %d", c.Port)
	}
	if c.ReadTimeout < MinReadTimeout {
		return fmt.Errorf("read timeout must be at least %v, actual: %v", MinReadTimeout, c.ReadTimeout)
	}
	if c.ResponseInterval < MinResponseInterval {
		return fmt.Errorf("response interval must be at least %v, actual: %v", MinResponseInterval, c.ResponseInterval)
	}
	return nil
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns the environment variable value as int or the default if not set or invalid.
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvMillisOrDefault reads an integer number of milliseconds from the
// environment, or returns the default if not set or invalid.
func getEnvMillisOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return time.Duration(parsed) * time.Millisecond
		}
	}
	return defaultValue
}

// getEnvListOrDefault splits a comma-separated environment variable into a
// slice, trimming whitespace and dropping empty entries.
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
