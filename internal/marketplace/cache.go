// internal/marketplace/cache.go
package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"comps-workers/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// CachedClient puts a Redis cache-aside layer in front of a Searcher.
// Only non-empty successful results are cached; cache failures fall
// through to the wrapped searcher.
type CachedClient struct {
	next   Searcher
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

// NewCachedClient wraps next with a Redis cache of non-empty responses,
// keyed under prefix and kept for ttl.
func NewCachedClient(next Searcher, rdb *redis.Client, ttl time.Duration, prefix string, log logger.Logger) *CachedClient {
	return &CachedClient{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		prefix: prefix,
		logger: log.WithFields(map[string]interface{}{"component": "marketplace-cache"}),
	}
}

// Search serves from the cache, falling back to next on a miss or a Redis
// error.
func (c *CachedClient) Search(ctx context.Context, params SearchParams) ([]Listing, error) {
	key := c.cacheKey(params)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var listings []Listing
		if jsonErr := json.Unmarshal([]byte(val), &listings); jsonErr == nil {
			c.logger.Debug("cache hit", map[string]interface{}{"key": key, "count": len(listings)})
			return listings, nil
		}
		c.logger.Warn("discarding undecodable cache entry", map[string]interface{}{"key": key})
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	listings, err := c.next.Search(ctx, params)
	if err != nil || len(listings) == 0 {
		return listings, err
	}

	data, err := json.Marshal(listings)
	if err != nil {
		return listings, nil
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return listings, nil
}

func (c *CachedClient) cacheKey(params SearchParams) string {
	maxPrice := "none"
	if params.MaxPrice != nil {
		maxPrice = formatPrice(*params.MaxPrice)
	}
	return fmt.Sprintf("%ssold:%s|w=%d|max=%s|n=%d",
		c.prefix,
		strings.ToLower(strings.TrimSpace(params.Query)),
		int(params.Window.Hours()/24),
		maxPrice,
		params.Limit,
	)
}
