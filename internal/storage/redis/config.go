package redis

import "time"

// Config holds Redis connection and key lifetime settings
type Config struct {
	// URL is the Redis connection URL (redis://...)
	URL string
	// PoolSize is the connection pool size
	PoolSize int
	// MinIdleConns is the minimum number of idle connections
	MinIdleConns int
	// RoomTTL is a safety-net expiry on room keys. Normal flow deletes rooms
	// explicitly; the TTL only catches keys orphaned by a crashed process.
	RoomTTL time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		RoomTTL:      4 * time.Hour,
	}
}
