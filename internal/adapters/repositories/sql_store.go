package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/apperr"
	"route-planning-service/internal/platform/db"
	"route-planning-service/internal/platform/obs"
	"route-planning-service/internal/ports"
	"strings"
	"time"
)

// SQLStore implements the store ports on top of database/sql.
// The same queries run on SQLite and Postgres; Dialect only changes placeholders.
type SQLStore struct {
	DB      *sql.DB
	Dialect db.Dialect
	Now     func() time.Time
}

func NewSQLStore(conn *sql.DB, dialect db.Dialect) *SQLStore {
	return &SQLStore{DB: conn, Dialect: dialect, Now: time.Now}
}

func (s *SQLStore) q(query string) string { return s.Dialect.Rebind(query) }

func (s *SQLStore) now() string {
	return s.Now().UTC().Format(time.RFC3339Nano)
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func timePtr(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil
	}
	return &t
}

const bookingColumns = `
	b.id, b.customer_id, b.service_id, b.vehicle_id, b.route_id, b.stop_order, b.status,
	b.scheduled_date, b.scheduled_start_time, b.scheduled_end_time, b.estimated_duration_minutes,
	b.latitude, b.longitude, b.location_id,
	l.id, l.name, l.address_line1, l.city, l.state, l.location_type, l.latitude, l.longitude
	FROM bookings b
	LEFT JOIN locations l ON l.id = b.location_id AND l.deleted_at IS NULL`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var (
		b                                         domain.Booking
		customer, vehicle, route, start, end, loc sql.NullString
		stopOrder, duration                       sql.NullInt64
		lat, lon                                  sql.NullFloat64
		lID, lName, lAddr, lCity, lState, lType   sql.NullString
		lLat, lLon                                sql.NullFloat64
		status                                    string
	)
	err := row.Scan(
		&b.ID, &customer, &b.ServiceID, &vehicle, &route, &stopOrder, &status,
		&b.ScheduledDate, &start, &end, &duration,
		&lat, &lon, &loc,
		&lID, &lName, &lAddr, &lCity, &lState, &lType, &lLat, &lLon,
	)
	if err != nil {
		return nil, err
	}

	b.CustomerID = customer.String
	b.VehicleID = vehicle.String
	b.RouteID = route.String
	b.StopOrder = intPtr(stopOrder)
	b.Status = domain.BookingStatus(status)
	b.ScheduledStartTime = start.String
	b.ScheduledEndTime = end.String
	b.EstimatedDurationMinutes = intPtr(duration)
	b.Latitude = floatPtr(lat)
	b.Longitude = floatPtr(lon)
	b.LocationID = loc.String
	if lID.Valid {
		b.Location = &domain.Location{
			ID:           lID.String,
			Name:         lName.String,
			AddressLine1: lAddr.String,
			City:         lCity.String,
			State:        lState.String,
			LocationType: lType.String,
			Latitude:     floatPtr(lLat),
			Longitude:    floatPtr(lLon),
		}
	}
	return &b, nil
}

func bookingWhere(f ports.BookingFilter) (string, []any) {
	conds := []string{"b.deleted_at IS NULL"}
	args := make([]any, 0, 4+len(f.IDs))

	if f.IDs != nil {
		if len(f.IDs) == 0 {
			conds = append(conds, "1 = 0")
		} else {
			conds = append(conds, fmt.Sprintf("b.id IN (%s)", db.Placeholders(len(f.IDs))))
			for _, id := range f.IDs {
				args = append(args, id)
			}
		}
	}
	if f.ScheduledDateFrom != "" {
		conds = append(conds, "b.scheduled_date >= ?")
		args = append(args, f.ScheduledDateFrom)
	}
	if f.ScheduledDateTo != "" {
		conds = append(conds, "b.scheduled_date <= ?")
		args = append(args, f.ScheduledDateTo)
	}
	if f.Status != "" {
		conds = append(conds, "b.status = ?")
		args = append(args, string(f.Status))
	}
	if f.ServiceID != "" {
		conds = append(conds, "b.service_id = ?")
		args = append(args, f.ServiceID)
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// Fetch one page of live bookings with their linked locations.
func (s *SQLStore) FetchBookings(ctx context.Context, f ports.BookingFilter) (_ ports.BookingPage, err error) {
	defer obs.Time(ctx, "store.FetchBookings")(&err)

	if s.DB == nil {
		return ports.BookingPage{}, errors.New("fetch bookings: db is nil")
	}

	where, args := bookingWhere(f)

	var total int
	countQ := s.q("SELECT COUNT(*) FROM bookings b" + where)
	if err := s.DB.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return ports.BookingPage{}, fmt.Errorf("fetch bookings: count: %w", err)
	}

	query := "SELECT " + bookingColumns + where +
		" ORDER BY b.scheduled_date, COALESCE(b.scheduled_start_time, ''), b.id"
	pageArgs := append([]any(nil), args...)
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		pageArgs = append(pageArgs, f.Limit, f.Offset)
	}

	rows, err := s.DB.QueryContext(ctx, s.q(query), pageArgs...)
	if err != nil {
		return ports.BookingPage{}, fmt.Errorf("fetch bookings: query bookings table: %w", err)
	}
	defer rows.Close()

	page := ports.BookingPage{Total: total}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return ports.BookingPage{}, fmt.Errorf("fetch bookings: scan rows: %w", err)
		}
		page.Bookings = append(page.Bookings, b)
	}
	if err := rows.Err(); err != nil {
		return ports.BookingPage{}, fmt.Errorf("fetch bookings: row iteration: %w", err)
	}

	return page, nil
}

func (s *SQLStore) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	query := s.q("SELECT " + bookingColumns + " WHERE b.id = ? AND b.deleted_at IS NULL")
	b, err := scanBooking(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.KindNotFound, "booking %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	return b, nil
}

// Apply a partial update; only non-nil fields are written.
func (s *SQLStore) UpdateBooking(ctx context.Context, u ports.BookingUpdate) error {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)

	if u.VehicleID != nil {
		sets = append(sets, "vehicle_id = ?")
		args = append(args, nullString(*u.VehicleID))
	}
	if u.RouteID != nil {
		sets = append(sets, "route_id = ?")
		args = append(args, nullString(*u.RouteID))
	}
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*u.Status))
	}
	if u.ClearStopOrder {
		sets = append(sets, "stop_order = NULL")
	} else if u.StopOrder != nil {
		sets = append(sets, "stop_order = ?")
		args = append(args, *u.StopOrder)
	}
	if u.ScheduledStartTime != nil {
		sets = append(sets, "scheduled_start_time = ?")
		args = append(args, nullString(*u.ScheduledStartTime))
	}
	if u.ScheduledEndTime != nil {
		sets = append(sets, "scheduled_end_time = ?")
		args = append(args, nullString(*u.ScheduledEndTime))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, u.ID)
	query := s.q("UPDATE bookings SET " + strings.Join(sets, ", ") + " WHERE id = ? AND deleted_at IS NULL")
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update booking %s: %w", u.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.Newf(apperr.KindNotFound, "booking %s not found", u.ID)
	}
	return nil
}

const resetBookingSet = `UPDATE bookings
	SET vehicle_id = NULL, route_id = NULL, stop_order = NULL, status = 'confirmed'`

func (s *SQLStore) ResetBookings(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	query := s.q(resetBookingSet + fmt.Sprintf(" WHERE deleted_at IS NULL AND id IN (%s)", db.Placeholders(len(ids))))
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset bookings: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLStore) ResetBookingsForVehicleDate(ctx context.Context, vehicleID, date string) (int, error) {
	query := s.q(resetBookingSet + " WHERE deleted_at IS NULL AND vehicle_id = ? AND scheduled_date = ?")
	res, err := s.DB.ExecContext(ctx, query, vehicleID, date)
	if err != nil {
		return 0, fmt.Errorf("reset bookings for vehicle %s on %s: %w", vehicleID, date, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLStore) RenumberRouteStops(ctx context.Context, routeID string, removed int) error {
	query := s.q(`UPDATE bookings SET stop_order = stop_order - 1
	WHERE route_id = ? AND stop_order > ? AND deleted_at IS NULL`)
	if _, err := s.DB.ExecContext(ctx, query, routeID, removed); err != nil {
		return fmt.Errorf("renumber stops on route %s: %w", routeID, err)
	}
	return nil
}

// Fetch vehicles together with their linked base locations.
func (s *SQLStore) FetchVehicles(ctx context.Context, f ports.VehicleFilter) (_ []*domain.Vehicle, err error) {
	defer obs.Time(ctx, "store.FetchVehicles")(&err)

	query := "SELECT id, name, service_types, status, home_location_id FROM vehicles"
	var args []any
	if f.Status != "" {
		query += " WHERE status = ?"
		args = append(args, string(f.Status))
	}
	query += " ORDER BY id"

	rows, err := s.DB.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("fetch vehicles: query vehicles table: %w", err)
	}
	defer rows.Close()

	vehicles := make([]*domain.Vehicle, 0)
	byID := map[string]*domain.Vehicle{}
	for rows.Next() {
		var (
			v        domain.Vehicle
			services string
			status   string
			home     sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.Name, &services, &status, &home); err != nil {
			return nil, fmt.Errorf("fetch vehicles: scan rows: %w", err)
		}
		if err := json.Unmarshal([]byte(services), &v.ServiceTypes); err != nil {
			return nil, fmt.Errorf("fetch vehicles: decode service types of %s: %w", v.ID, err)
		}
		v.Status = domain.VehicleStatus(status)
		v.HomeLocationID = home.String
		vehicles = append(vehicles, &v)
		byID[v.ID] = &v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch vehicles: row iteration: %w", err)
	}
	if len(vehicles) == 0 {
		return vehicles, nil
	}

	linkRows, err := s.DB.QueryContext(ctx, `
	SELECT vl.vehicle_id, vl.location_id, vl.is_primary,
		l.name, l.location_type, l.latitude, l.longitude
	FROM vehicle_locations vl
	JOIN locations l ON l.id = vl.location_id AND l.deleted_at IS NULL
	ORDER BY vl.vehicle_id, vl.location_id`)
	if err != nil {
		return nil, fmt.Errorf("fetch vehicles: query vehicle_locations table: %w", err)
	}
	defer linkRows.Close()

	for linkRows.Next() {
		var (
			vehicleID, locationID string
			primary               bool
			name, kind            sql.NullString
			lat, lon              sql.NullFloat64
		)
		if err := linkRows.Scan(&vehicleID, &locationID, &primary, &name, &kind, &lat, &lon); err != nil {
			return nil, fmt.Errorf("fetch vehicles: scan location links: %w", err)
		}
		v, ok := byID[vehicleID]
		if !ok {
			continue
		}
		v.Locations = append(v.Locations, domain.VehicleLocation{
			LocationID: locationID,
			IsPrimary:  primary,
			Location: &domain.Location{
				ID:           locationID,
				Name:         name.String,
				LocationType: kind.String,
				Latitude:     floatPtr(lat),
				Longitude:    floatPtr(lon),
			},
		})
	}
	if err := linkRows.Err(); err != nil {
		return nil, fmt.Errorf("fetch vehicles: location link iteration: %w", err)
	}

	return vehicles, nil
}

const locationColumns = `id, name, address_line1, city, state, location_type, latitude, longitude, deleted_at`

func scanLocation(row rowScanner) (*domain.Location, error) {
	var (
		l                              domain.Location
		addr, city, state, kind, delAt sql.NullString
		lat, lon                       sql.NullFloat64
	)
	if err := row.Scan(&l.ID, &l.Name, &addr, &city, &state, &kind, &lat, &lon, &delAt); err != nil {
		return nil, err
	}
	l.AddressLine1 = addr.String
	l.City = city.String
	l.State = state.String
	l.LocationType = kind.String
	l.Latitude = floatPtr(lat)
	l.Longitude = floatPtr(lon)
	l.DeletedAt = timePtr(delAt)
	return &l, nil
}

func (s *SQLStore) FetchLocationByID(ctx context.Context, id string) (*domain.Location, error) {
	query := s.q("SELECT " + locationColumns + " FROM locations WHERE id = ? AND deleted_at IS NULL")
	l, err := scanLocation(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.KindNotFound, "location %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch location %s: %w", id, err)
	}
	return l, nil
}

func (s *SQLStore) FetchBaseLocations(ctx context.Context) ([]*domain.Location, error) {
	query := s.q("SELECT " + locationColumns + ` FROM locations
	WHERE deleted_at IS NULL AND location_type IN (?, ?, ?)
	ORDER BY name`)
	rows, err := s.DB.QueryContext(ctx, query,
		domain.LocationTypeDepot, domain.LocationTypeHome, domain.LocationTypeOther)
	if err != nil {
		return nil, fmt.Errorf("fetch base locations: query locations table: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Location, 0)
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("fetch base locations: scan rows: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch base locations: row iteration: %w", err)
	}
	return out, nil
}

const routeColumns = `id, route_name, route_code, vehicle_id, route_date, planned_start_time, planned_end_time,
	total_distance_km, total_duration_minutes, total_service_time_minutes, total_travel_time_minutes,
	total_stops, optimization_type, optimization_score, status, stop_sequence, route_geometry,
	cost_currency, needs_recalculation, created_at, deleted_at`

func (s *SQLStore) InsertRoute(ctx context.Context, r *domain.Route) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "store.InsertRoute")(&err)

	seq := r.StopSequence
	if seq == nil {
		seq = []string{}
	}
	seqJSON, err := json.Marshal(seq)
	if err != nil {
		return nil, fmt.Errorf("insert route: encode stop sequence: %w", err)
	}
	geomJSON, err := json.Marshal(r.Geometry)
	if err != nil {
		return nil, fmt.Errorf("insert route: encode geometry: %w", err)
	}

	out := cloneRoute(r)
	if out.CreatedAt.IsZero() {
		out.CreatedAt = s.Now().UTC()
	}

	query := s.q(`INSERT INTO routes (` + routeColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.DB.ExecContext(ctx, query,
		r.ID, r.RouteName, nullString(r.RouteCode), nullString(r.VehicleID), r.RouteDate,
		nullString(r.PlannedStartTime), nullString(r.PlannedEndTime),
		r.TotalDistanceKm, r.TotalDurationMinutes, r.TotalServiceTimeMinutes, r.TotalTravelTimeMinutes,
		r.TotalStops, nullString(r.OptimizationType), nullFloat(r.OptimizationScore), string(r.Status),
		string(seqJSON), string(geomJSON), nullString(r.CostCurrency), r.NeedsRecalculation,
		out.CreatedAt.Format(time.RFC3339Nano), nil,
	)
	if err != nil {
		return nil, fmt.Errorf("insert route %s: %w", r.ID, err)
	}
	return out, nil
}

func (s *SQLStore) GetRoute(ctx context.Context, id string) (*domain.Route, error) {
	query := s.q("SELECT " + routeColumns + " FROM routes WHERE id = ? AND deleted_at IS NULL")

	var (
		r                                       domain.Route
		code, vehicle, start, end, optType, cur sql.NullString
		score                                   sql.NullFloat64
		status, seq, geom, created              string
		deletedAt                               sql.NullString
	)
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.RouteName, &code, &vehicle, &r.RouteDate, &start, &end,
		&r.TotalDistanceKm, &r.TotalDurationMinutes, &r.TotalServiceTimeMinutes, &r.TotalTravelTimeMinutes,
		&r.TotalStops, &optType, &score, &status, &seq, &geom,
		&cur, &r.NeedsRecalculation, &created, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.KindNotFound, "route %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get route %s: %w", id, err)
	}

	r.RouteCode = code.String
	r.VehicleID = vehicle.String
	r.PlannedStartTime = start.String
	r.PlannedEndTime = end.String
	r.OptimizationType = optType.String
	r.OptimizationScore = floatPtr(score)
	r.Status = domain.RouteStatus(status)
	r.CostCurrency = cur.String
	r.DeletedAt = timePtr(deletedAt)
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		r.CreatedAt = t
	}
	if err := json.Unmarshal([]byte(seq), &r.StopSequence); err != nil {
		return nil, fmt.Errorf("get route %s: decode stop sequence: %w", id, err)
	}
	if err := json.Unmarshal([]byte(geom), &r.Geometry); err != nil {
		return nil, fmt.Errorf("get route %s: decode geometry: %w", id, err)
	}
	return &r, nil
}

func (s *SQLStore) TombstoneRoute(ctx context.Context, id string) error {
	query := s.q("UPDATE routes SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL")
	res, err := s.DB.ExecContext(ctx, query, s.now(), id)
	if err != nil {
		return fmt.Errorf("tombstone route %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.Newf(apperr.KindNotFound, "route %s not found", id)
	}
	return nil
}

func (s *SQLStore) ListRouteCodes(ctx context.Context, prefix string) ([]string, error) {
	query := s.q("SELECT route_code FROM routes WHERE route_code LIKE ? ORDER BY route_code")
	rows, err := s.DB.QueryContext(ctx, query, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("list route codes: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("list route codes: scan rows: %w", err)
		}
		out = append(out, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list route codes: row iteration: %w", err)
	}
	return out, nil
}

func (s *SQLStore) MarkStopRemoved(ctx context.Context, id string) error {
	query := s.q(`UPDATE routes
	SET needs_recalculation = ?, total_stops = CASE WHEN total_stops > 0 THEN total_stops - 1 ELSE 0 END
	WHERE id = ? AND deleted_at IS NULL`)
	res, err := s.DB.ExecContext(ctx, query, true, id)
	if err != nil {
		return fmt.Errorf("mark stop removed on route %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.Newf(apperr.KindNotFound, "route %s not found", id)
	}
	return nil
}

// Seed upserts demo data inside one transaction.
func (s *SQLStore) Seed(ctx context.Context, data SeedData) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	locStmt, err := tx.PrepareContext(ctx, s.q(`
	INSERT INTO locations (id, name, address_line1, city, state, location_type, latitude, longitude)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		address_line1 = EXCLUDED.address_line1,
		city = EXCLUDED.city,
		state = EXCLUDED.state,
		location_type = EXCLUDED.location_type,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude;
	`))
	if err != nil {
		return fmt.Errorf("seed: prepare location insert: %w", err)
	}
	defer locStmt.Close()

	for _, l := range data.Locations {
		if _, err := locStmt.ExecContext(ctx, l.ID, l.Name, nullString(l.AddressLine1), nullString(l.City),
			nullString(l.State), nullString(l.LocationType), nullFloat(l.Latitude), nullFloat(l.Longitude)); err != nil {
			return fmt.Errorf("seed: insert location %s: %w", l.ID, err)
		}
	}

	vehStmt, err := tx.PrepareContext(ctx, s.q(`
	INSERT INTO vehicles (id, name, service_types, status, home_location_id)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		service_types = EXCLUDED.service_types,
		status = EXCLUDED.status,
		home_location_id = EXCLUDED.home_location_id;
	`))
	if err != nil {
		return fmt.Errorf("seed: prepare vehicle insert: %w", err)
	}
	defer vehStmt.Close()

	linkStmt, err := tx.PrepareContext(ctx, s.q(`
	INSERT INTO vehicle_locations (vehicle_id, location_id, is_primary)
	VALUES (?, ?, ?)
	ON CONFLICT (vehicle_id, location_id) DO UPDATE
	SET is_primary = EXCLUDED.is_primary;
	`))
	if err != nil {
		return fmt.Errorf("seed: prepare vehicle location insert: %w", err)
	}
	defer linkStmt.Close()

	for _, v := range data.Vehicles {
		services := v.ServiceTypes
		if services == nil {
			services = []string{}
		}
		servicesJSON, err := json.Marshal(services)
		if err != nil {
			return fmt.Errorf("seed: encode service types of %s: %w", v.ID, err)
		}
		if _, err := vehStmt.ExecContext(ctx, v.ID, v.Name, string(servicesJSON), string(v.Status),
			nullString(v.HomeLocationID)); err != nil {
			return fmt.Errorf("seed: insert vehicle %s: %w", v.ID, err)
		}
		for _, link := range v.Locations {
			if _, err := linkStmt.ExecContext(ctx, v.ID, link.LocationID, link.IsPrimary); err != nil {
				return fmt.Errorf("seed: link vehicle %s to %s: %w", v.ID, link.LocationID, err)
			}
		}
	}

	bookStmt, err := tx.PrepareContext(ctx, s.q(`
	INSERT INTO bookings (
		id, customer_id, service_id, vehicle_id, route_id, stop_order, status, scheduled_date,
		scheduled_start_time, scheduled_end_time, estimated_duration_minutes, latitude, longitude, location_id
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE
	SET customer_id = EXCLUDED.customer_id,
		service_id = EXCLUDED.service_id,
		vehicle_id = EXCLUDED.vehicle_id,
		route_id = EXCLUDED.route_id,
		stop_order = EXCLUDED.stop_order,
		status = EXCLUDED.status,
		scheduled_date = EXCLUDED.scheduled_date,
		scheduled_start_time = EXCLUDED.scheduled_start_time,
		scheduled_end_time = EXCLUDED.scheduled_end_time,
		estimated_duration_minutes = EXCLUDED.estimated_duration_minutes,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		location_id = EXCLUDED.location_id;
	`))
	if err != nil {
		return fmt.Errorf("seed: prepare booking insert: %w", err)
	}
	defer bookStmt.Close()

	for _, b := range data.Bookings {
		if _, err := bookStmt.ExecContext(ctx,
			b.ID, nullString(b.CustomerID), b.ServiceID, nullString(b.VehicleID), nullString(b.RouteID),
			nullInt(b.StopOrder), string(b.Status), b.ScheduledDate,
			nullString(b.ScheduledStartTime), nullString(b.ScheduledEndTime), nullInt(b.EstimatedDurationMinutes),
			nullFloat(b.Latitude), nullFloat(b.Longitude), nullString(b.LocationID),
		); err != nil {
			return fmt.Errorf("seed: insert booking %s: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit: %w", err)
	}
	return nil
}
