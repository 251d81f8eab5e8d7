package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config holds the server configuration
type Config struct {
	Addr                   string
	StorageType            string
	RedisURL               string
	DatabaseURL            string
	LogLevel               slog.Level
	SessionDuration        time.Duration
	HubCleanupInterval     time.Duration
	SessionCleanupInterval time.Duration
	AllowedOrigins         []string
}

// Default returns the configuration used when no variables are set
func Default() Config {
	return Config{
		Addr:                   ":8080",
		StorageType:            StorageMemory,
		LogLevel:               slog.LevelInfo,
		SessionDuration:        24 * time.Hour,
		HubCleanupInterval:     5 * time.Minute,
		SessionCleanupInterval: 15 * time.Minute,
		AllowedOrigins:         []string{"*"},
	}
}

// Load reads configuration from the environment, loading a .env file
// first when one exists
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a variable lookup
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	if addr := getenv("DOUBLES_ADDR"); addr != "" {
		cfg.Addr = addr
	} else if port := getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return Config{}, fmt.Errorf("invalid PORT %q", port)
		}
		cfg.Addr = ":" + port
	}

	if st := strings.ToLower(getenv("STORAGE_TYPE")); st != "" {
		cfg.StorageType = st
	}
	cfg.RedisURL = getenv("REDIS_URL")
	cfg.DatabaseURL = getenv("DATABASE_URL")

	switch cfg.StorageType {
	case StorageMemory:
	case StorageRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL required when STORAGE_TYPE=redis")
		}
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL required when STORAGE_TYPE=postgres")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_TYPE %q", cfg.StorageType)
	}

	if lvl := getenv("LOG_LEVEL"); lvl != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(lvl)); err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL %q: %w", lvl, err)
		}
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"SESSION_DURATION", &cfg.SessionDuration},
		{"HUB_CLEANUP_INTERVAL", &cfg.HubCleanupInterval},
		{"SESSION_CLEANUP_INTERVAL", &cfg.SessionCleanupInterval},
	}
	for _, d := range durations {
		raw := getenv(d.name)
		if raw == "" {
			continue
		}
		v, err := time.ParseDuration(raw)
		if err != nil || v <= 0 {
			return Config{}, fmt.Errorf("invalid %s %q", d.name, raw)
		}
		*d.dst = v
	}

	if origins := getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	return cfg, nil
}
