package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("calendar cache miss")

// ViewCache holds short-lived assembled calendar snapshots so repeated
// navigation over the same week does not re-run the fetch+reconcile pipeline.
// Values are JSON; the TTL is the only eviction policy besides explicit
// invalidation after a write to a clinician's schedule.
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewViewCache(client *redis.Client, ttl time.Duration) *ViewCache {
	return &ViewCache{client: client, ttl: ttl}
}

func viewKey(clinicianID uuid.UUID, rangeStart, zone string) string {
	return fmt.Sprintf("calview:%s:%s:%s", clinicianID.String(), rangeStart, zone)
}

func (c *ViewCache) Get(ctx context.Context, clinicianID uuid.UUID, rangeStart, zone string, dest any) error {
	raw, err := c.client.Get(ctx, viewKey(clinicianID, rangeStart, zone)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("cache decode: %w", err)
	}
	return nil
}

func (c *ViewCache) Set(ctx context.Context, clinicianID uuid.UUID, rangeStart, zone string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, viewKey(clinicianID, rangeStart, zone), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate drops every cached view for the clinician. Called after any
// availability edit or booking so stale grids are never served.
func (c *ViewCache) Invalidate(ctx context.Context, clinicianID uuid.UUID) error {
	pattern := fmt.Sprintf("calview:%s:*", clinicianID.String())

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
