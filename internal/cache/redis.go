package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/leadscore/internal/domain"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces every leadscore key in a shared Redis.
const keyPrefix = "leadscore:"

// Lead lookups sit on the scoring path, so a slow Redis degrades to a
// repository read instead of stalling the request.
const (
	redisDialTimeout = 2 * time.Second
	redisIOTimeout   = 500 * time.Millisecond
)

// RedisCache stores lead records in Redis. It is the Pro tier cache
// and the L2 of TwoPhaseCache.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisIOTimeout,
		WriteTimeout: redisIOTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisCache{client: client}, nil
}

func redisKey(tenantID, key string) (string, error) {
	if tenantID == "" {
		return "", errMissingTenant
	}
	return keyPrefix + makeKey(tenantID, key), nil
}

// Get returns nil, nil on a miss.
func (c *RedisCache) Get(ctx context.Context, tenantID string, key string) ([]byte, error) {
	k, err := redisKey(tenantID, key)
	if err != nil {
		return nil, err
	}

	val, err := c.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

// Set stores a value with a TTL. A non-positive TTL is a no-op so
// nothing is ever pinned in Redis forever.
func (c *RedisCache) Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error {
	k, err := redisKey(tenantID, key)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, k, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, tenantID string, key string) error {
	k, err := redisKey(tenantID, key)
	if err != nil {
		return err
	}
	return c.client.Del(ctx, k).Err()
}

func (c *RedisCache) GetLead(ctx context.Context, tenantID string, leadID string) (*domain.Lead, error) {
	return getLead(ctx, c, tenantID, leadID)
}

func (c *RedisCache) SetLead(ctx context.Context, tenantID string, lead *domain.Lead, ttl time.Duration) error {
	return setLead(ctx, c, tenantID, lead, ttl)
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
