package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// MaxWatchRetries bounds how often an unconditional update retries when
	// another writer touches the same document between WATCH and EXEC
	MaxWatchRetries int

	// ResubscribeDelay is the pause before a failed snapshot refetch is retried
	ResubscribeDelay time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:              "redis://localhost:6379",
		PoolSize:         10,
		MinIdleConns:     2,
		MaxWatchRetries:  10,
		ResubscribeDelay: time.Second,
	}
}
