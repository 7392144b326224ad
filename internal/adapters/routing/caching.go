package routing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"route-planning-service/internal/platform/metrics"
	"route-planning-service/internal/ports"

	"go.uber.org/zap"
)

// CachingOracle serves repeated requests from a RouteCache before calling Next.
// Cache failures are logged and never fail a computation.
type CachingOracle struct {
	Next   ports.RoutingOracle
	Cache  ports.RouteCache
	Logger *zap.Logger
}

func NewCachingOracle(next ports.RoutingOracle, cache ports.RouteCache, logger *zap.Logger) *CachingOracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingOracle{Next: next, Cache: cache, Logger: logger}
}

// RequestKey fingerprints a request as the hex SHA-256 of its canonical JSON form.
func RequestKey(req ports.ComputeRouteRequest) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("request key: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func (c *CachingOracle) ComputeRoute(ctx context.Context, req ports.ComputeRouteRequest) (*ports.ComputedRoute, error) {
	key, err := RequestKey(req)
	if err != nil {
		c.Logger.Warn("route cache key failed", zap.Error(err))
		return c.Next.ComputeRoute(ctx, req)
	}

	cached, ok, err := c.Cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.OracleCache.WithLabelValues("error").Inc()
		c.Logger.Warn("route cache read failed", zap.String("key", key), zap.Error(err))
	case ok:
		metrics.OracleCache.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		metrics.OracleCache.WithLabelValues("miss").Inc()
	}

	route, err := c.Next.ComputeRoute(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := c.Cache.Put(ctx, key, route); err != nil {
		c.Logger.Warn("route cache write failed", zap.String("key", key), zap.Error(err))
	}
	return route, nil
}
