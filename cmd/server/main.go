package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"route-planning-service/internal/adapters/cache"
	"route-planning-service/internal/adapters/repositories"
	"route-planning-service/internal/adapters/routing"
	"route-planning-service/internal/api"
	"route-planning-service/internal/config"
	"route-planning-service/internal/platform/db"
	"route-planning-service/internal/platform/logging"
	"route-planning-service/internal/platform/metrics"
	"route-planning-service/internal/ports"
	"route-planning-service/internal/services"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Stores the planner reads and writes through.
type store interface {
	ports.BookingStore
	ports.VehicleStore
	ports.LocationStore
	ports.RouteStore
	repositories.Seeder
}

// main is the application composition root.
// It wires concrete adapters (store, routing oracle, route cache) behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	st, conn, dialect, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if conn != nil {
		defer conn.Close()
	}

	// Seed demo data on startup for local runs.
	if cfg.SeedPath != "" {
		err := repositories.SeedFromJSON(ctx, st, cfg.SeedPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("seed file not found, starting without demo data", zap.String("path", cfg.SeedPath))
		case err != nil:
			return fmt.Errorf("run: %w", err)
		default:
			logger.Info("seeded demo data", zap.String("path", cfg.SeedPath))
		}
	}

	oracle, closeOracle, err := buildOracle(ctx, cfg, conn, dialect, logger)
	if err != nil {
		return err
	}
	defer closeOracle()

	planner := services.NewPlanner(services.PlannerDeps{
		Bookings:  st,
		Vehicles:  st,
		Locations: st,
		Routes:    st,
		Oracle:    oracle,
		Logger:    logger,
	}, plannerConfig(cfg))

	router := api.NewRouter(planner, logger, api.RouterConfig{
		RatePerSecond: cfg.HTTPRatePerSecond,
		Burst:         cfg.HTTPBurst,
	})

	// Timeouts are tuned for batch planning: one request can make several oracle round trips.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      180 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.StoreDriver),
			zap.String("oracle", cfg.OracleMode),
			zap.String("route_cache", cfg.RouteCache),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("run: listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("run: shutdown: %w", err)
	}
	return nil
}

// openStore returns the configured store. conn is nil for the in-memory store.
func openStore(ctx context.Context, cfg *config.Config) (store, *sql.DB, db.Dialect, error) {
	var (
		conn    *sql.DB
		dialect db.Dialect
		err     error
	)
	switch cfg.StoreDriver {
	case "memory":
		return repositories.NewMemoryStore(), nil, "", nil
	case "postgres":
		conn, err = db.Open(cfg.DatabaseURL)
		dialect = db.DialectPostgres
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, nil, "", fmt.Errorf("open store: create data dir: %w", err)
		}
		conn, err = db.OpenSQLite(cfg.DBPath)
		dialect = db.DialectSQLite
	}
	if err != nil {
		return nil, nil, "", err
	}

	if err := repositories.InitSchema(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, nil, "", err
	}
	return repositories.NewSQLStore(conn, dialect), conn, dialect, nil
}

// buildOracle wraps the configured routing oracle with the route cache, if any.
func buildOracle(ctx context.Context, cfg *config.Config, conn *sql.DB, dialect db.Dialect, logger *zap.Logger) (ports.RoutingOracle, func(), error) {
	var oracle ports.RoutingOracle
	switch cfg.OracleMode {
	case "static":
		oracle = routing.NewStaticOracle(0)
	default:
		oracle = routing.NewGoogleRoutesClient(routing.GoogleRoutesConfig{
			APIKey:          cfg.GoogleRoutesAPIKey,
			BaseURL:         cfg.GoogleRoutesBaseURL,
			Timeout:         cfg.OracleTimeout,
			MaxAttempts:     cfg.OracleMaxAttempts,
			RetryBaseDelay:  cfg.OracleRetryBaseDelay,
			RetryMaxJitter:  cfg.OracleRetryMaxJitter,
			RatePerSecond:   cfg.OracleRatePerSecond,
			Burst:           cfg.OracleBurst,
			BreakerFailures: cfg.OracleBreakerFailures,
			BreakerTimeout:  cfg.OracleBreakerTimeout,
		}, logger)
	}

	switch cfg.RouteCache {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("build oracle: ping redis %q: %w", cfg.RedisAddr, err)
		}
		rc := cache.NewRedisRouteCache(client, cfg.RouteCacheTTL)
		return routing.NewCachingOracle(oracle, rc, logger), func() { _ = client.Close() }, nil
	case "sql":
		sc := cache.NewSQLRouteCache(conn, dialect, cfg.RouteCacheTTL)
		return routing.NewCachingOracle(oracle, sc, logger), func() {}, nil
	default:
		return oracle, func() {}, nil
	}
}

func plannerConfig(cfg *config.Config) services.PlannerConfig {
	pc := services.DefaultPlannerConfig()
	pc.MaxStopsPerRoute = cfg.MaxStopsPerRoute
	if cfg.DefaultServiceMinutes > 0 {
		pc.DefaultServiceMinutes = cfg.DefaultServiceMinutes
	}
	if cfg.DayStartTime != "" {
		pc.DayStartTime = cfg.DayStartTime
	}
	pc.OptimizationScore = cfg.OptimizationScore
	if cfg.OptimizationType != "" {
		pc.OptimizationType = cfg.OptimizationType
	}
	if cfg.CostCurrency != "" {
		pc.CostCurrency = cfg.CostCurrency
	}
	if cfg.FetchPageSize > 0 {
		pc.FetchPageSize = cfg.FetchPageSize
	}
	return pc
}
