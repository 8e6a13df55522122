// internal/store/cache.go
package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"nutritrack/internal/common/logger"
	"nutritrack/internal/models"
)

const menuCachePrefix = "menu:"

// CachedMenuReader is a read-through cache in front of another MenuReader.
// Cache faults are logged and fall through to the wrapped reader.
type CachedMenuReader struct {
	next   MenuReader
	client redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedMenuReader(next MenuReader, client redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedMenuReader {
	return &CachedMenuReader{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "menu_cache"}),
	}
}

func (c *CachedMenuReader) ListMenuItems(ctx context.Context, criteria *models.FilterCriteria) ([]models.MenuItem, error) {
	key := menuCacheKey(criteria)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var items []models.MenuItem
		if jsonErr := json.Unmarshal(raw, &items); jsonErr == nil {
			return items, nil
		}
		c.logger.Warn("discarding unreadable cache entry", map[string]interface{}{"key": key})
	case stderrors.Is(err, redis.Nil):
	default:
		c.logger.Warn("menu cache read failed", map[string]interface{}{"key": key, "error": err})
	}

	items, err := c.next.ListMenuItems(ctx, criteria)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(items); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("menu cache write failed", map[string]interface{}{"key": key, "error": err})
		}
	}

	return items, nil
}

// Invalidate drops every cached menu query and reports how many entries
// were removed.
func (c *CachedMenuReader) Invalidate(ctx context.Context) (int, error) {
	iter := c.client.Scan(ctx, 0, menuCachePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, err
	}
	c.logger.Info("menu cache invalidated", map[string]interface{}{"keys": n})
	return int(n), nil
}

func menuCacheKey(criteria *models.FilterCriteria) string {
	return menuCachePrefix + criteria.Key()
}
