package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"route-planning-service/internal/platform/obs"
	"route-planning-service/internal/ports"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "route-planning:route:"

// RedisRouteCache stores computed routes as JSON strings with a TTL.
type RedisRouteCache struct {
	Client redis.Cmdable
	Prefix string
	TTL    time.Duration
}

func NewRedisRouteCache(client redis.Cmdable, ttl time.Duration) *RedisRouteCache {
	return &RedisRouteCache{Client: client, Prefix: defaultRedisPrefix, TTL: ttl}
}

func (c *RedisRouteCache) key(k string) string { return c.Prefix + k }

func (c *RedisRouteCache) Get(ctx context.Context, key string) (_ *ports.ComputedRoute, _ bool, err error) {
	defer obs.Time(ctx, "route.cache.redis.Get")(&err)

	if c.Client == nil {
		return nil, false, errors.New("route cache: redis client is nil")
	}

	raw, err := c.Client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get route cache: redis get: %w", err)
	}

	var route ports.ComputedRoute
	if err := json.Unmarshal(raw, &route); err != nil {
		return nil, false, fmt.Errorf("get route cache: decode payload: %w", err)
	}
	return &route, true, nil
}

func (c *RedisRouteCache) Put(ctx context.Context, key string, route *ports.ComputedRoute) error {
	if c.Client == nil {
		return errors.New("route cache: redis client is nil")
	}
	if route == nil {
		return nil
	}

	payload, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("insert route cache: encode payload: %w", err)
	}
	if err := c.Client.Set(ctx, c.key(key), payload, c.TTL).Err(); err != nil {
		return fmt.Errorf("insert route cache: redis set: %w", err)
	}
	return nil
}
