package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/truthpost/internal/model"
)

// Open builds the cache named by cfg.Backend. A disabled cache returns nil.
func Open(ctx context.Context, cfg model.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemoryCache(ttl, 10*time.Minute), nil
	case "disk":
		return NewDiskCache(cfg.Dir, ttl), nil
	case "layered":
		return NewLayeredCache(ttl, cfg.Dir, ttl), nil
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("cache redis_url is required for the redis backend")
		}
		rc, err := NewRedisCache(ctx, cfg.RedisURL, ttl)
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (supported: memory, disk, layered, redis)", cfg.Backend)
	}
}
