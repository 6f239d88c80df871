package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bitebook/internal/search"

	"github.com/redis/go-redis/v9"
)

// DefaultDetailsTTL bounds how stale cached provider details may get.
const DefaultDetailsTTL = 10 * time.Minute

// DetailsCache keeps provider details in Redis, keyed by provider place id.
type DetailsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDetailsCache wraps rdb. A zero ttl means DefaultDetailsTTL.
func NewDetailsCache(rdb *redis.Client, ttl time.Duration) *DetailsCache {
	if ttl <= 0 {
		ttl = DefaultDetailsTTL
	}
	return &DetailsCache{rdb: rdb, ttl: ttl}
}

func detailsKey(placeID string) string {
	return "place-details:" + placeID
}

// Get returns cached details. A miss is (nil, nil).
func (c *DetailsCache) Get(ctx context.Context, placeID string) (*search.Details, error) {
	data, err := c.rdb.Get(ctx, detailsKey(placeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached details: %w", err)
	}

	var d search.Details
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to decode cached details: %w", err)
	}
	return &d, nil
}

// Set stores d for the cache TTL.
func (c *DetailsCache) Set(ctx context.Context, placeID string, d *search.Details) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode details: %w", err)
	}
	if err := c.rdb.Set(ctx, detailsKey(placeID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache details: %w", err)
	}
	return nil
}

// Invalidate drops the cached entry for placeID.
func (c *DetailsCache) Invalidate(ctx context.Context, placeID string) error {
	return c.rdb.Del(ctx, detailsKey(placeID)).Err()
}
