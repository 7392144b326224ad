package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime settings. Keys match environment variable names.
type Config struct {
	AppEnv   string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	Port     string `mapstructure:"PORT"`

	HTTPRatePerSecond float64 `mapstructure:"HTTP_RATE_PER_SECOND"`
	HTTPBurst         int     `mapstructure:"HTTP_BURST"`

	StoreDriver string `mapstructure:"STORE_DRIVER"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBPath      string `mapstructure:"DB_PATH"`
	SeedPath    string `mapstructure:"SEED_PATH"`

	RouteCache    string        `mapstructure:"ROUTE_CACHE"`
	RouteCacheTTL time.Duration `mapstructure:"ROUTE_CACHE_TTL"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`

	OracleMode            string        `mapstructure:"ORACLE_MODE"`
	GoogleRoutesAPIKey    string        `mapstructure:"GOOGLE_ROUTES_API_KEY"`
	GoogleRoutesBaseURL   string        `mapstructure:"GOOGLE_ROUTES_BASE_URL"`
	OracleTimeout         time.Duration `mapstructure:"ORACLE_TIMEOUT"`
	OracleMaxAttempts     int           `mapstructure:"ORACLE_MAX_ATTEMPTS"`
	OracleRetryBaseDelay  time.Duration `mapstructure:"ORACLE_RETRY_BASE_DELAY"`
	OracleRetryMaxJitter  time.Duration `mapstructure:"ORACLE_RETRY_MAX_JITTER"`
	OracleRatePerSecond   float64       `mapstructure:"ORACLE_RATE_PER_SECOND"`
	OracleBurst           int           `mapstructure:"ORACLE_BURST"`
	OracleBreakerFailures uint32        `mapstructure:"ORACLE_BREAKER_FAILURES"`
	OracleBreakerTimeout  time.Duration `mapstructure:"ORACLE_BREAKER_OPEN_TIMEOUT"`

	MaxStopsPerRoute      int     `mapstructure:"PLANNING_MAX_STOPS_PER_ROUTE"`
	DefaultServiceMinutes int     `mapstructure:"PLANNING_DEFAULT_SERVICE_MINUTES"`
	DayStartTime          string  `mapstructure:"PLANNING_DAY_START_TIME"`
	OptimizationScore     float64 `mapstructure:"PLANNING_OPTIMIZATION_SCORE"`
	OptimizationType      string  `mapstructure:"PLANNING_OPTIMIZATION_TYPE"`
	CostCurrency          string  `mapstructure:"PLANNING_COST_CURRENCY"`
	FetchPageSize         int     `mapstructure:"PLANNING_FETCH_PAGE_SIZE"`
}

var defaults = map[string]any{
	"APP_ENV":   "development",
	"LOG_LEVEL": "info",
	"PORT":      "8080",

	"HTTP_RATE_PER_SECOND": 20.0,
	"HTTP_BURST":           40,

	"STORE_DRIVER": "sqlite",
	"DATABASE_URL": "",
	"DB_PATH":      "data/app.db",
	"SEED_PATH":    "data/seeds/demo.json",

	"ROUTE_CACHE":     "none",
	"ROUTE_CACHE_TTL": "24h",
	"REDIS_ADDR":      "localhost:6379",
	"REDIS_PASSWORD":  "",
	"REDIS_DB":        0,

	"ORACLE_MODE":                 "google",
	"GOOGLE_ROUTES_API_KEY":       "",
	"GOOGLE_ROUTES_BASE_URL":      "https://routes.googleapis.com",
	"ORACLE_TIMEOUT":              "30s",
	"ORACLE_MAX_ATTEMPTS":         4,
	"ORACLE_RETRY_BASE_DELAY":     "1s",
	"ORACLE_RETRY_MAX_JITTER":     "200ms",
	"ORACLE_RATE_PER_SECOND":      10.0,
	"ORACLE_BURST":                5,
	"ORACLE_BREAKER_FAILURES":     5,
	"ORACLE_BREAKER_OPEN_TIMEOUT": "30s",

	"PLANNING_MAX_STOPS_PER_ROUTE":     15,
	"PLANNING_DEFAULT_SERVICE_MINUTES": 30,
	"PLANNING_DAY_START_TIME":          "08:00:00",
	"PLANNING_OPTIMIZATION_SCORE":      85.0,
	"PLANNING_OPTIMIZATION_TYPE":       "balanced",
	"PLANNING_COST_CURRENCY":           "USD",
	"PLANNING_FETCH_PAGE_SIZE":         500,
}

// Load reads defaults, an optional config.yaml (./ or ./config) and the environment.
// Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "memory", "sqlite":
	case "postgres":
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("config: DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.OracleMode {
	case "static":
	case "google":
		if strings.TrimSpace(c.GoogleRoutesAPIKey) == "" {
			return errors.New("config: GOOGLE_ROUTES_API_KEY is required when ORACLE_MODE=google")
		}
	default:
		return fmt.Errorf("config: unknown ORACLE_MODE %q", c.OracleMode)
	}

	switch c.RouteCache {
	case "none", "redis", "sql":
	default:
		return fmt.Errorf("config: unknown ROUTE_CACHE %q", c.RouteCache)
	}
	if c.RouteCache == "sql" && c.StoreDriver == "memory" {
		return errors.New("config: ROUTE_CACHE=sql needs a sqlite or postgres store")
	}

	if c.MaxStopsPerRoute < 1 {
		return fmt.Errorf("config: PLANNING_MAX_STOPS_PER_ROUTE must be positive, got %d", c.MaxStopsPerRoute)
	}
	if c.OracleMaxAttempts < 1 {
		return fmt.Errorf("config: ORACLE_MAX_ATTEMPTS must be positive, got %d", c.OracleMaxAttempts)
	}
	return nil
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
