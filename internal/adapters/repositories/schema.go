package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"route-planning-service/internal/domain"
	"strings"
)

// The schema uses type names both SQLite and Postgres accept, so one set of statements serves both.
var schemaStatements = []string{
	`
	CREATE TABLE IF NOT EXISTS locations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address_line1 TEXT,
		city TEXT,
		state TEXT,
		location_type TEXT,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		deleted_at TEXT
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS vehicles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		service_types TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL,
		home_location_id TEXT REFERENCES locations(id)
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS vehicle_locations (
		vehicle_id TEXT NOT NULL REFERENCES vehicles(id),
		location_id TEXT NOT NULL REFERENCES locations(id),
		is_primary BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (vehicle_id, location_id)
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		customer_id TEXT,
		service_id TEXT NOT NULL,
		vehicle_id TEXT,
		route_id TEXT,
		stop_order INTEGER,
		status TEXT NOT NULL,
		scheduled_date TEXT NOT NULL,
		scheduled_start_time TEXT,
		scheduled_end_time TEXT,
		estimated_duration_minutes INTEGER,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		location_id TEXT REFERENCES locations(id),
		deleted_at TEXT
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		route_name TEXT NOT NULL,
		route_code TEXT UNIQUE,
		vehicle_id TEXT,
		route_date TEXT NOT NULL,
		planned_start_time TEXT,
		planned_end_time TEXT,
		total_distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_duration_minutes INTEGER NOT NULL DEFAULT 0,
		total_service_time_minutes INTEGER NOT NULL DEFAULT 0,
		total_travel_time_minutes INTEGER NOT NULL DEFAULT 0,
		total_stops INTEGER NOT NULL DEFAULT 0,
		optimization_type TEXT,
		optimization_score DOUBLE PRECISION,
		status TEXT NOT NULL,
		stop_sequence TEXT NOT NULL DEFAULT '[]',
		route_geometry TEXT NOT NULL DEFAULT '{}',
		cost_currency TEXT,
		needs_recalculation BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		deleted_at TEXT
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS route_cache (
		request_key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		expires_at BIGINT NOT NULL
	);
	`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_date_status ON bookings(scheduled_date, status);`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_vehicle_date ON bookings(vehicle_id, scheduled_date);`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_route ON bookings(route_id);`,
	`CREATE INDEX IF NOT EXISTS idx_routes_date ON routes(route_date);`,
}

// Initialize the database schema.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Demo data file layout.
type SeedData struct {
	Locations []*domain.Location `json:"locations"`
	Vehicles  []*domain.Vehicle  `json:"vehicles"`
	Bookings  []*domain.Booking  `json:"bookings"`
}

// Seeder is implemented by stores that can bulk-load demo data.
type Seeder interface {
	Seed(ctx context.Context, data SeedData) error
}

// Read and validate a demo data file.
func ReadSeedFile(jsonPath string) (SeedData, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return SeedData{}, fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data SeedData
	if err := json.Unmarshal(bytes, &data); err != nil {
		return SeedData{}, fmt.Errorf("seed: parse json: %w", err)
	}

	for i, l := range data.Locations {
		if strings.TrimSpace(l.ID) == "" || strings.TrimSpace(l.Name) == "" {
			return SeedData{}, fmt.Errorf("seed: location at index %d: id and name are required", i)
		}
	}
	for i, v := range data.Vehicles {
		if strings.TrimSpace(v.ID) == "" || v.Status == "" {
			return SeedData{}, fmt.Errorf("seed: vehicle at index %d: id and status are required", i)
		}
	}
	for i, b := range data.Bookings {
		if strings.TrimSpace(b.ID) == "" || b.ServiceID == "" || b.ScheduledDate == "" || b.Status == "" {
			return SeedData{}, fmt.Errorf("seed: booking at index %d: id, service_id, scheduled_date and status are required", i)
		}
	}

	return data, nil
}

// Populate a store with demo data from a JSON file.
func SeedFromJSON(ctx context.Context, store Seeder, jsonPath string) error {
	data, err := ReadSeedFile(jsonPath)
	if err != nil {
		return err
	}
	return store.Seed(ctx, data)
}
