package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache checks a fast layer before a persistent one
type LayeredCache struct {
	front Cache
	back  Cache
}

// NewLayeredCache creates a memory cache in front of a disk cache
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return NewTieredCache(NewMemoryCache(memoryTTL, 10*time.Minute), NewDiskCache(diskDir, diskTTL))
}

// NewTieredCache layers any two caches
func NewTieredCache(front, back Cache) *LayeredCache {
	return &LayeredCache{front: front, back: back}
}

// Get checks the front layer first and promotes hits from the back layer
func (c *LayeredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if val, found := c.front.Get(ctx, key); found {
		return val, true
	}

	if val, found := c.back.Get(ctx, key); found {
		_ = c.front.Set(ctx, key, val, 0)
		return val, true
	}

	return nil, false
}

// Set stores a value in both layers
func (c *LayeredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.front.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.back.Set(ctx, key, value, ttl)
}

// Delete removes a value from both layers
func (c *LayeredCache) Delete(ctx context.Context, key string) error {
	return errors.Join(c.front.Delete(ctx, key), c.back.Delete(ctx, key))
}

// Clear removes all values from both layers
func (c *LayeredCache) Clear(ctx context.Context) error {
	return errors.Join(c.front.Clear(ctx), c.back.Clear(ctx))
}
