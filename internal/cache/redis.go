package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares fetched pages between API replicas
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache connects to the redis server at url (redis://...)
func NewRedisCache(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisCache{rdb: rdb, ttl: ttl}, nil
}

// Get retrieves a value; connection errors read as a miss
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set stores a value; a zero ttl uses the cache default
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Delete removes a value
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	err := c.rdb.Del(ctx, key).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Clear removes every key under KeyPrefix, leaving other tenants alone
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.rdb.Del(ctx, batch...).Err()
	}
	return nil
}

// Close releases the connection pool
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
