package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bao99257/flashsale-engine/internal/app"
	"github.com/redis/go-redis/v9"
)

const dashboardKey = "flashsale:dashboard"

// DashboardCache keeps the advisory dashboard payload in Redis with a short
// TTL. It serves the polling read path only; the allocation path never
// consults it.
type DashboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *DashboardCache {
	return &DashboardCache{client: client, ttl: ttl}
}

// Get returns the cached dashboard, or nil on a miss.
func (c *DashboardCache) Get(ctx context.Context) (*app.Dashboard, error) {
	payload, err := c.client.Get(ctx, dashboardKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("dashboard cache get: %w", err)
	}

	var dashboard app.Dashboard
	if err := json.Unmarshal(payload, &dashboard); err != nil {
		return nil, fmt.Errorf("dashboard cache decode: %w", err)
	}
	return &dashboard, nil
}

func (c *DashboardCache) Set(ctx context.Context, dashboard *app.Dashboard) error {
	payload, err := json.Marshal(dashboard)
	if err != nil {
		return fmt.Errorf("dashboard cache encode: %w", err)
	}
	if err := c.client.Set(ctx, dashboardKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("dashboard cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached payload; called synchronously on admin writes.
func (c *DashboardCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, dashboardKey).Err(); err != nil {
		return fmt.Errorf("dashboard cache invalidate: %w", err)
	}
	return nil
}
