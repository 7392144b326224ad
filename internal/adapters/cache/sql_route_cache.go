package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"route-planning-service/internal/platform/db"
	"route-planning-service/internal/platform/obs"
	"route-planning-service/internal/ports"
	"strings"
	"time"
)

// SQLRouteCache is a SQL-backed cache for computed routes keyed by request fingerprint.
// Rows live in the route_cache table created by repositories.InitSchema.
type SQLRouteCache struct {
	DB      *sql.DB
	Dialect db.Dialect
	TTL     time.Duration // zero keeps entries forever
	Now     func() time.Time
}

func NewSQLRouteCache(conn *sql.DB, dialect db.Dialect, ttl time.Duration) *SQLRouteCache {
	return &SQLRouteCache{DB: conn, Dialect: dialect, TTL: ttl, Now: time.Now}
}

// Fetch a cached route. Expired rows count as misses.
func (s *SQLRouteCache) Get(ctx context.Context, key string) (_ *ports.ComputedRoute, _ bool, err error) {
	defer obs.Time(ctx, "route.cache.sql.Get")(&err)

	if s.DB == nil {
		return nil, false, errors.New("route cache: db is nil")
	}
	if strings.TrimSpace(key) == "" {
		return nil, false, errors.New("get route cache: key must not be empty")
	}

	var payload string
	var expiresAt int64
	q := s.Dialect.Rebind(`SELECT payload, expires_at FROM route_cache WHERE request_key = ?`)
	err = s.DB.QueryRowContext(ctx, q, key).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get route cache: query route_cache table: %w", err)
	}

	if expiresAt > 0 && s.Now().Unix() >= expiresAt {
		return nil, false, nil
	}

	var route ports.ComputedRoute
	if err := json.Unmarshal([]byte(payload), &route); err != nil {
		return nil, false, fmt.Errorf("get route cache: decode payload: %w", err)
	}
	return &route, true, nil
}

// Store a computed route, replacing any previous entry for the key.
func (s *SQLRouteCache) Put(ctx context.Context, key string, route *ports.ComputedRoute) error {
	if s.DB == nil {
		return errors.New("route cache: db is nil")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("insert route cache: key must not be empty")
	}
	if route == nil {
		return nil
	}

	payload, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("insert route cache: encode payload: %w", err)
	}

	var expiresAt int64
	if s.TTL > 0 {
		expiresAt = s.Now().Add(s.TTL).Unix()
	}

	q := s.Dialect.Rebind(`
	INSERT INTO route_cache (request_key, payload, expires_at)
	VALUES (?, ?, ?)
	ON CONFLICT (request_key) DO UPDATE
	SET payload = EXCLUDED.payload,
		expires_at = EXCLUDED.expires_at;
	`)
	if _, err := s.DB.ExecContext(ctx, q, key, string(payload), expiresAt); err != nil {
		return fmt.Errorf("insert route cache key=%q: %w", key, err)
	}
	return nil
}
