package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultReadTimeout, cfg.ReadTimeout)
	assert.Equal(t, DefaultResponseInterval, cfg.ResponseInterval)
	assert.Empty(t, cfg.AllowFrom)
	assert.Empty(t, cfg.AdminPort)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("LOCKGATE_PORT", "9099")
	t.Setenv("LOCKGATE_READ_TIMEOUT_MS", "6000")
	t.Setenv("LOCKGATE_INTERVAL_MS", "1500")
	t.Setenv("LOCKGATE_ALLOW_FROM", "10.0.0.1, 10.0.0.2,")
	t.Setenv("ADMIN_PORT", "8080")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	assert.Equal(t, 9099, cfg.Port)
	assert.Equal(t, 6*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.ResponseInterval)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.AllowFrom)
	assert.Equal(t, "8080", cfg.AdminPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("LOCKGATE_PORT", "not-a-number")
	t.Setenv("LOCKGATE_READ_TIMEOUT_MS", "4s")

	cfg := Load()

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultReadTimeout, cfg.ReadTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "read timeout below floor",
			mutate:  func(c *Config) { c.ReadTimeout = 999 * time.Millisecond },
			wantErr: "read timeout",
		},
		{
			name:    "interval below floor",
			mutate:  func(c *Config) { c.ResponseInterval = 500 * time.Millisecond },
			wantErr: "response interval",
		},
		{
			name:    "zero port",
			mutate:  func(c *Config) { c.Port = 0 },
			wantErr: "port",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: "port",
		},
		{
			name:   "floors are inclusive",
			mutate: func(c *Config) { c.ReadTimeout = MinReadTimeout; c.ResponseInterval = MinResponseInterval },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Port:             DefaultPort,
				ReadTimeout:      DefaultReadTimeout,
				ResponseInterval: DefaultResponseInterval,
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
