package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-finance/leadscore/internal/domain"
)

// New creates a new cache based on configuration.
// "memory" returns an LRU cache, "none" a pass-through that never hits.
// "redis" returns a Redis cache, wrapped in a TwoPhaseCache when
// two-phase caching is enabled.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "none", "":
		return NopCache{}, nil

	case "redis":
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(cfg)
		}
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// TwoPhaseCache keeps hot lead records in a local LRU (L1) in front of
// a shared Redis (L2).
type TwoPhaseCache struct {
	local  *LRUCache
	remote *RedisCache
	l1TTL  time.Duration
}

// NewTwoPhaseCache connects to Redis and creates a two-phase cache.
func NewTwoPhaseCache(cfg domain.CacheConfig) (*TwoPhaseCache, error) {
	remote, err := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}
	return newTwoPhaseCache(NewLRUCache(cfg.LocalMaxSize), remote, cfg.LocalTTL), nil
}

func newTwoPhaseCache(local *LRUCache, remote *RedisCache, l1TTL time.Duration) *TwoPhaseCache {
	if l1TTL <= 0 {
		l1TTL = 5 * time.Minute
	}
	return &TwoPhaseCache{
		local:  local,
		remote: remote,
		l1TTL:  l1TTL,
	}
}

// Get reads L1 first, then L2. An L2 hit is copied into L1.
func (c *TwoPhaseCache) Get(ctx context.Context, tenantID string, key string) ([]byte, error) {
	val, err := c.local.Get(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		return val, nil
	}

	val, err = c.remote.Get(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		_ = c.local.Set(ctx, tenantID, key, val, c.l1TTL)
	}

	return val, nil
}

// Set writes to both tiers. L1 never outlives the requested TTL.
func (c *TwoPhaseCache) Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error {
	if err := c.local.Set(ctx, tenantID, key, value, min(ttl, c.l1TTL)); err != nil {
		return err
	}
	return c.remote.Set(ctx, tenantID, key, value, ttl)
}

// Delete removes from both L1 and L2.
func (c *TwoPhaseCache) Delete(ctx context.Context, tenantID string, key string) error {
	if err := c.local.Delete(ctx, tenantID, key); err != nil {
		return err
	}
	return c.remote.Delete(ctx, tenantID, key)
}

// GetLead retrieves a cached lead record from either tier.
func (c *TwoPhaseCache) GetLead(ctx context.Context, tenantID string, leadID string) (*domain.Lead, error) {
	return getLead(ctx, c, tenantID, leadID)
}

// SetLead caches a lead record in both tiers.
func (c *TwoPhaseCache) SetLead(ctx context.Context, tenantID string, lead *domain.Lead, ttl time.Duration) error {
	return setLead(ctx, c, tenantID, lead, ttl)
}

// Ping checks both L1 and L2 health.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.local.Ping(ctx); err != nil {
		return fmt.Errorf("L1 ping failed: %w", err)
	}
	if err := c.remote.Ping(ctx); err != nil {
		return fmt.Errorf("L2 ping failed: %w", err)
	}
	return nil
}

// Close closes both L1 and L2.
func (c *TwoPhaseCache) Close() error {
	_ = c.local.Close()
	return c.remote.Close()
}

// Stats returns L1 cache statistics.
func (c *TwoPhaseCache) Stats() Stats {
	return c.local.Stats()
}

// NopCache satisfies domain.Cache without storing anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string, string) ([]byte, error) { return nil, nil }

func (NopCache) Set(context.Context, string, string, []byte, time.Duration) error { return nil }

func (NopCache) Delete(context.Context, string, string) error { return nil }

func (NopCache) GetLead(context.Context, string, string) (*domain.Lead, error) { return nil, nil }

func (NopCache) SetLead(context.Context, string, *domain.Lead, time.Duration) error { return nil }

func (NopCache) Ping(context.Context) error { return nil }

func (NopCache) Close() error { return nil }
