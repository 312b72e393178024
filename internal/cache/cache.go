package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OneOfOne/xxhash"
)

// KeyPrefix namespaces every key this package writes
const KeyPrefix = "truthpost:v1:"

// Cache stores fetched source pages between resolutions
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// PageKey generates the cache key for a page rendered in a given mode.
// The same URL in text and html mode are distinct entries.
func PageKey(mode, url string) string {
	sum := xxhash.Checksum64([]byte(strings.TrimSpace(url)))
	return fmt.Sprintf("%spage:%s:%016x", KeyPrefix, mode, sum)
}
