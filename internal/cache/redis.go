package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces block cache keys.
const DefaultRedisPrefix = "roi:block:"

// RedisBlockCache shares block lookups between processes through Redis.
type RedisBlockCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOptions configures a RedisBlockCache.
type RedisOptions struct {
	// Prefix overrides DefaultRedisPrefix.
	Prefix string
	// TTL expires entries; zero keeps them forever.
	TTL time.Duration
	// Password and DB are used by DialRedis.
	Password string
	DB       int
}

// NewRedisBlockCache wraps an existing client.
func NewRedisBlockCache(client *redis.Client, opts *RedisOptions) *RedisBlockCache {
	c := &RedisBlockCache{client: client, prefix: DefaultRedisPrefix}
	if opts != nil {
		if opts.Prefix != "" {
			c.prefix = opts.Prefix
		}
		c.ttl = opts.TTL
	}
	return c
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr string, opts *RedisOptions) (*RedisBlockCache, error) {
	ro := &redis.Options{Addr: addr}
	if opts != nil {
		ro.Password = opts.Password
		ro.DB = opts.DB
	}
	client := redis.NewClient(ro)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return NewRedisBlockCache(client, opts), nil
}

func (c *RedisBlockCache) key(ts int64) string {
	return c.prefix + Key(ts)
}

// Get returns the cached height for ts.
func (c *RedisBlockCache) Get(ctx context.Context, ts int64) (uint64, bool, error) {
	val, err := c.client.Get(ctx, c.key(ts)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get: %w", err)
	}

	height, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("redis value %q: %w", val, err)
	}
	return height, true, nil
}

// Set stores the height for ts.
func (c *RedisBlockCache) Set(ctx context.Context, ts int64, height uint64) error {
	if err := c.client.Set(ctx, c.key(ts), strconv.FormatUint(height, 10), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *RedisBlockCache) Close() error {
	return c.client.Close()
}
