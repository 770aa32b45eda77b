package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// defaultRedisPrefix namespaces cache keys inside a shared Redis instance.
const defaultRedisPrefix = "marketops:cache:"

// RedisCache stores entries in Redis with native TTL expiry. Deployments
// that run several server processes against one cache use it in place of
// DiskCache; both satisfy the same interface.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("cache: redis connection failed: %w", err)
	}
	return &RedisCache{client: client, prefix: defaultRedisPrefix}, nil
}

// NewRedisCacheWithClient wraps an existing client. Tests use this.
func NewRedisCacheWithClient(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisCache{client: client, prefix: prefix}
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get retrieves a cached value. Redis expires entries itself, so a lapsed
// entry is already a miss; connection errors are reported as misses too.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if ValidateKey(key) != nil {
		return nil, false
	}
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set stores a value with the given TTL, overwriting any existing entry.
// TTL<=0 means don't cache.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

// Delete removes a cached value. Idempotent - no error on miss.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("cache: redis delete: %w", err)
	}
	return nil
}

// Clear removes entries in bulk. Redis evicts expired entries natively, so
// expiredOnly has nothing to sweep; a full clear scans the prefix and
// deletes in batches.
func (c *RedisCache) Clear(ctx context.Context, expiredOnly bool) (int, error) {
	if expiredOnly {
		return 0, nil
	}

	removed := 0
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("cache: redis scan: %w", err)
		}
		if len(keys) > 0 {
			pipe := c.client.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return removed, fmt.Errorf("cache: redis clear: %w", err)
			}
			removed += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return removed, nil
}

// Ensure RedisCache implements Cache
var _ Cache = (*RedisCache)(nil)
