// Package eventcache caches the open-events listing in Redis. The listing is
// the hottest read on the betting surface and tolerates short staleness; a
// missing or unreachable Redis degrades to database reads.
package eventcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	openEventsKey     = "betbook:events:open"
	defaultTTL        = 5 * time.Second
	operationDeadline = 500 * time.Millisecond
)

// Cache wraps a Redis client. A nil *Cache is valid and acts as a no-op, so
// callers never need to branch on whether Redis was configured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New returns a Cache over the given client, or nil when client is nil.
func New(client *redis.Client) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: defaultTTL}
}

// GetOpenEvents loads the cached listing into dst. The second return is false
// on a miss or any Redis failure.
func (cache *Cache) GetOpenEvents(ctx context.Context, dst any) (bool, error) {
	if cache == nil {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, operationDeadline)
	defer cancel()
	raw, err := cache.client.Get(ctx, openEventsKey).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(raw, dst)
}

// SetOpenEvents stores the listing with a short TTL.
func (cache *Cache) SetOpenEvents(ctx context.Context, value any) error {
	if cache == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, operationDeadline)
	defer cancel()
	return cache.client.Set(ctx, openEventsKey, raw, cache.ttl).Err()
}

// Invalidate drops the cached listing. Called whenever an event is created or
// leaves the open state.
func (cache *Cache) Invalidate(ctx context.Context) error {
	if cache == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, operationDeadline)
	defer cancel()
	return cache.client.Del(ctx, openEventsKey).Err()
}
