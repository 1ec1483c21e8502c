package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces keys written by RedisCache.
const DefaultRedisPrefix = "tconf:"

// RedisCache implements Cache on a Redis server.
// Transient connection failures are retried with backoff.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// RedisOption configures a RedisCache.
type RedisOption func(*RedisCache)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(c *RedisCache) {
		c.prefix = prefix
	}
}

// NewRedisCache connects to addr, which is either host:port or a
// redis:// URL, and pings the server.
func NewRedisCache(ctx context.Context, addr string, opts ...RedisOption) (*RedisCache, error) {
	o := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		var err error
		if o, err = redis.ParseURL(addr); err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
	}
	c := NewRedisCacheFromClient(redis.NewClient(o), opts...)
	if err := c.client.Ping(ctx).Err(); err != nil {
		_ = c.client.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrNetwork, addr, err)
	}
	return c, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, opts ...RedisOption) *RedisCache {
	c := &RedisCache{client: client, prefix: DefaultRedisPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) key(k string) string { return c.prefix + k }

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	var hit bool
	err := RetryWithBackoff(ctx, func() error {
		v, err := c.client.Get(ctx, c.key(key)).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			return nil
		case err != nil:
			return classify(err)
		}
		data, hit = v, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return data, hit, nil
}

// Set stores a value in Redis.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return RetryWithBackoff(ctx, func() error {
		return classify(c.client.Set(ctx, c.key(key), data, ttl).Err())
	})
}

// Delete removes a value from Redis.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return classify(c.client.Del(ctx, c.key(key)).Err())
}

// Clear removes every key under the cache prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return classify(err)
	}
	if len(keys) == 0 {
		return nil
	}
	return classify(c.client.Del(ctx, keys...).Err())
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// classify marks connection failures as retryable network errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var rerr redis.Error
	if errors.As(err, &rerr) {
		return err
	}
	return Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
}

// Ensure RedisCache implements Cache and Clearer.
var (
	_ Cache   = (*RedisCache)(nil)
	_ Clearer = (*RedisCache)(nil)
)
