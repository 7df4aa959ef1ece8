package domain

import (
	"context"
	"time"
)

// Cache holds lead records in front of the repository: a local LRU
// (Community), Redis (Pro) or both. Keys are always scoped by tenant.
// Scores are never cached because rules and activities change them.
type Cache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, tenantID string, key string) error

	// GetLead returns nil, nil when the lead is not cached.
	GetLead(ctx context.Context, tenantID string, leadID string) (*Lead, error)
	SetLead(ctx context.Context, tenantID string, lead *Lead, ttl time.Duration) error

	Ping(ctx context.Context) error
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	Type string // memory, redis or none

	LocalMaxSize int
	LocalTTL     time.Duration // L1 lifetime when two-phase

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// EnableTwoPhase puts a local LRU in front of Redis.
	EnableTwoPhase bool

	LeadTTL time.Duration
}
