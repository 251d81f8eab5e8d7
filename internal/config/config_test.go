package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"PORT":                 "9090",
		"STORAGE_TYPE":         "Redis",
		"REDIS_URL":            "redis://localhost:6379/0",
		"LOG_LEVEL":            "debug",
		"SESSION_DURATION":     "2h",
		"HUB_CLEANUP_INTERVAL": "30s",
		"ALLOWED_ORIGINS":      "http://a.test, http://b.test",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, StorageRedis, cfg.StorageType)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 2*time.Hour, cfg.SessionDuration)
	assert.Equal(t, 30*time.Second, cfg.HubCleanupInterval)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
}

func TestFromEnvAddrWinsOverPort(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{"DOUBLES_ADDR": "127.0.0.1:7000", "PORT": "9090"}))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"bad port", map[string]string{"PORT": "http"}},
		{"port out of range", map[string]string{"PORT": "70000"}},
		{"redis without url", map[string]string{"STORAGE_TYPE": "redis"}},
		{"postgres without url", map[string]string{"STORAGE_TYPE": "postgres"}},
		{"unknown storage", map[string]string{"STORAGE_TYPE": "mongo"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"bad duration", map[string]string{"SESSION_DURATION": "forever"}},
		{"negative duration", map[string]string{"HUB_CLEANUP_INTERVAL": "-1m"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(envOf(tt.vars))
			assert.Error(t, err)
		})
	}
}
