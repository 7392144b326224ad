package repositories

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/apperr"
	"route-planning-service/internal/platform/db"
	"route-planning-service/internal/ports"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type testStore interface {
	ports.BookingStore
	ports.VehicleStore
	ports.LocationStore
	ports.RouteStore
	Seeder
}

func f64(v float64) *float64 { return &v }
func iptr(v int) *int { return &v }
func sptr(v string) *string { return &v }

func fixture() SeedData {
	return SeedData{
		Locations: []*domain.Location{
			{ID: "depot-1", Name: "Central Depot", LocationType: domain.LocationTypeDepot, Latitude: f64(40.0), Longitude: f64(-105.0)},
			{ID: "home-1", Name: "Tech Home", LocationType: domain.LocationTypeHome, Latitude: f64(40.1), Longitude: f64(-105.1)},
			{ID: "cust-1", Name: "Customer One", LocationType: domain.LocationTypeCustomer, Latitude: f64(40.01), Longitude: f64(-105.01)},
		},
		Vehicles: []*domain.Vehicle{
			{
				ID: "v1", Name: "Van 1", ServiceTypes: []string{"svc-a", "svc-b"}, Status: domain.VehicleAvailable,
				Locations: []domain.VehicleLocation{{LocationID: "depot-1", IsPrimary: true}},
			},
			{ID: "v2", Name: "Van 2", ServiceTypes: []string{"svc-a"}, Status: domain.VehicleMaintenance},
		},
		Bookings: []*domain.Booking{
			{ID: "b1", ServiceID: "svc-a", Status: domain.BookingConfirmed, ScheduledDate: "2026-10-15", LocationID: "cust-1"},
			{
				ID: "b2", ServiceID: "svc-a", Status: domain.BookingConfirmed, ScheduledDate: "2026-10-15",
				ScheduledStartTime: "09:00:00", Latitude: f64(40.02), Longitude: f64(-105.02),
			},
			{ID: "b3", ServiceID: "svc-b", Status: domain.BookingPending, ScheduledDate: "2026-10-16", EstimatedDurationMinutes: iptr(45)},
		},
	}
}

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "routes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, InitSchema(context.Background(), conn))
	return NewSQLStore(conn, db.DialectSQLite)
}

func eachStore(t *testing.T, fn func(t *testing.T, s testStore)) {
	t.Run("memory", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Seed(context.Background(), fixture()))
		fn(t, s)
	})
	t.Run("sqlite", func(t *testing.T) {
		s := newSQLiteStore(t)
		require.NoError(t, s.Seed(context.Background(), fixture()))
		fn(t, s)
	})
}

func TestFetchBookingsFiltersAndPages(t *testing.T) {
	eachStore(t, func(t *testing.T, s testStore) {
		ctx := context.Background()

		page, err := s.FetchBookings(ctx, ports.BookingFilter{ScheduledDateFrom: "2026-10-15", ScheduledDateTo: "2026-10-15"})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
		assert.Equal(t, []string{"b1", "b2"}, domain.BookingIDs(page.Bookings))

		b1 := page.Bookings[0]
		require.NotNil(t, b1.Location)
		c, ok := b1.Location.Coordinates()
		require.True(t, ok)
		assert.InDelta(t, 40.01, c.Lat, 1e-9)

		page, err = s.FetchBookings(ctx, ports.BookingFilter{ScheduledDateFrom: "2026-10-15", Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
		assert.Equal(t, []string{"b2"}, domain.BookingIDs(page.Bookings))

		page, err = s.FetchBookings(ctx, ports.BookingFilter{IDs: []string{}})
		require.NoError(t, err)
		assert.Empty(t, page.Bookings)

		page, err = s.FetchBookings(ctx, ports.BookingFilter{IDs: []string{"b3", "missing"}, ServiceID: "svc-b"})
		require.NoError(t, err)
		require.Len(t, page.Bookings, 1)
		assert.Equal(t, 45, page.Bookings[0].ServiceMinutes(30))

		page, err = s.FetchBookings(ctx, ports.BookingFilter{Status: domain.BookingPending})
		require.NoError(t, err)
		assert.Equal(t, []string{"b3"}, domain.BookingIDs(page.Bookings))
	})
}

func TestUpdateAndResetBookings(t *testing.T) {
	eachStore(t, func(t *testing.T, s testStore) {
		ctx := context.Background()
		scheduled := domain.BookingScheduled

		require.NoError(t, s.UpdateBooking(ctx, ports.BookingUpdate{
			ID: "b1", VehicleID: sptr("v1"), RouteID: sptr("r1"), Status: &scheduled,
			StopOrder: iptr(1), ScheduledStartTime: sptr("08:15:00"), ScheduledEndTime: sptr("08:45:00"),
		}))
		require.NoError(t, s.UpdateBooking(ctx, ports.BookingUpdate{ID: "b2", VehicleID: sptr("v1"), RouteID: sptr("r1"), StopOrder: iptr(2)}))

		b1, err := s.GetBooking(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, "v1", b1.VehicleID)
		assert.Equal(t, "r1", b1.RouteID)
		assert.Equal(t, domain.BookingScheduled, b1.Status)
		require.NotNil(t, b1.StopOrder)
		assert.Equal(t, 1, *b1.StopOrder)
		assert.Equal(t, "08:15:00", b1.ScheduledStartTime)

		err = s.UpdateBooking(ctx, ports.BookingUpdate{ID: "nope", VehicleID: sptr("v1")})
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

		_, err = s.GetBooking(ctx, "nope")
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

		n, err := s.ResetBookings(ctx, []string{"b1", "missing"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		b1, err = s.GetBooking(ctx, "b1")
		require.NoError(t, err)
		assert.Empty(t, b1.VehicleID)
		assert.Empty(t, b1.RouteID)
		assert.Nil(t, b1.StopOrder)
		assert.Equal(t, domain.BookingConfirmed, b1.Status)

		n, err = s.ResetBookingsForVehicleDate(ctx, "v1", "2026-10-15")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		b2, err := s.GetBooking(ctx, "b2")
		require.NoError(t, err)
		assert.False(t, b2.IsAssigned())
	})
}

func TestRenumberRouteStops(t *testing.T) {
	eachStore(t, func(t *testing.T, s testStore) {
		ctx := context.Background()
		for i, id := range []string{"b1", "b2", "b3"} {
			require.NoError(t, s.UpdateBooking(ctx, ports.BookingUpdate{ID: id, RouteID: sptr("r1"), StopOrder: iptr(i + 1)}))
		}
		require.NoError(t, s.UpdateBooking(ctx, ports.BookingUpdate{ID: "b1", RouteID: sptr(""), ClearStopOrder: true}))
		require.NoError(t, s.RenumberRouteStops(ctx, "r1", 1))

		b1, err := s.GetBooking(ctx, "b1")
		require.NoError(t, err)
		assert.Nil(t, b1.StopOrder)

		for id, want := range map[string]int{"b2": 1, "b3": 2} {
			b, err := s.GetBooking(ctx, id)
			require.NoError(t, err)
			require.NotNil(t, b.StopOrder)
			assert.Equal(t, want, *b.StopOrder, id)
		}
	})
}

func TestVehiclesAndLocations(t *testing.T) {
	eachStore(t, func(t *testing.T, s testStore) {
		ctx := context.Background()

		all, err := s.FetchVehicles(ctx, ports.VehicleFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		avail, err := s.FetchVehicles(ctx, ports.VehicleFilter{Status: domain.VehicleAvailable})
		require.NoError(t, err)
		require.Len(t, avail, 1)
		assert.Equal(t, "v1", avail[0].ID)
		assert.True(t, avail[0].Supports("svc-b"))
		assert.Equal(t, "depot-1", avail[0].PrimaryLocationID())

		loc, err := s.FetchLocationByID(ctx, "cust-1")
		require.NoError(t, err)
		assert.Equal(t, "Customer One", loc.Name)

		_, err = s.FetchLocationByID(ctx, "missing")
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

		bases, err := s.FetchBaseLocations(ctx)
		require.NoError(t, err)
		names := make([]string, 0, len(bases))
		for _, l := range bases {
			names = append(names, l.Name)
		}
		assert.Equal(t, []string{"Central Depot", "Tech Home"}, names)
	})
}

func TestRouteLifecycle(t *testing.T) {
	eachStore(t, func(t *testing.T, s testStore) {
		ctx := context.Background()
		score := 95.0
		route := &domain.Route{
			ID:                   "r1",
			RouteName:            "Route 1 - 2026-10-15",
			RouteCode:            "RT-20261015-001",
			VehicleID:            "v1",
			RouteDate:            "2026-10-15",
			PlannedStartTime:     "08:00:00",
			PlannedEndTime:       "10:30:00",
			TotalDistanceKm:      12.5,
			TotalDurationMinutes: 150,
			TotalStops:           2,
			OptimizationScore:    &score,
			Status:               domain.RoutePlanned,
			StopSequence:         []string{"b2", "b1"},
			Geometry: domain.RouteGeometry{
				EncodedPolyline: "abc",
				Legs:            []domain.RouteLeg{{DistanceMeters: 5000, DurationSeconds: 600}},
			},
		}

		_, err := s.InsertRoute(ctx, route)
		require.NoError(t, err)

		got, err := s.GetRoute(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, []string{"b2", "b1"}, got.StopSequence)
		assert.Equal(t, "RT-20261015-001", got.RouteCode)
		assert.Equal(t, 600, got.Geometry.Legs[0].DurationSeconds)
		require.NotNil(t, got.OptimizationScore)
		assert.InDelta(t, 95.0, *got.OptimizationScore, 1e-9)

		dup := *route
		dup.ID = "r2"
		_, err = s.InsertRoute(ctx, &dup)
		assert.Error(t, err)

		require.NoError(t, s.MarkStopRemoved(ctx, "r1"))
		got, err = s.GetRoute(ctx, "r1")
		require.NoError(t, err)
		assert.True(t, got.NeedsRecalculation)
		assert.Equal(t, 1, got.TotalStops)

		require.NoError(t, s.TombstoneRoute(ctx, "r1"))
		_, err = s.GetRoute(ctx, "r1")
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
		assert.True(t, apperr.IsKind(s.TombstoneRoute(ctx, "r1"), apperr.KindNotFound))

		codes, err := s.ListRouteCodes(ctx, "RT-20261015-")
		require.NoError(t, err)
		assert.Equal(t, []string{"RT-20261015-001"}, codes)
	})
}

func TestSeedFromJSON(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(good, []byte(`{
		"locations": [{"id": "depot-1", "name": "Depot", "location_type": "depot", "latitude": 1, "longitude": 2}],
		"vehicles": [{"id": "v1", "name": "Van", "service_types": ["svc"], "status": "available"}],
		"bookings": [{"id": "b1", "service_id": "svc", "status": "confirmed", "scheduled_date": "2026-10-15", "location_id": "depot-1"}]
	}`), 0o600))

	s := newSQLiteStore(t)
	require.NoError(t, SeedFromJSON(context.Background(), s, good))

	b, err := s.GetBooking(context.Background(), "b1")
	require.NoError(t, err)
	require.NotNil(t, b.Location)
	assert.Equal(t, "Depot", b.Location.Name)

	// Seeding twice upserts.
	require.NoError(t, SeedFromJSON(context.Background(), s, good))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"bookings": [{"id": "b1"}]}`), 0o600))
	_, err = ReadSeedFile(bad)
	assert.ErrorContains(t, err, "booking at index 0")

	_, err = ReadSeedFile(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	s := newSQLiteStore(t)
	require.NoError(t, InitSchema(context.Background(), s.DB))
	assert.Error(t, InitSchema(context.Background(), nil))
}

func TestDemoSeedLoads(t *testing.T) {
	data, err := ReadSeedFile(filepath.Join("..", "..", "..", "data", "seeds", "demo.json"))
	require.NoError(t, err)
	assert.Len(t, data.Locations, 7)
	assert.Len(t, data.Vehicles, 3)
	assert.Len(t, data.Bookings, 8)

	eachStore(t, func(t *testing.T, s testStore) {
		ctx := context.Background()
		require.NoError(t, s.Seed(ctx, data))

		page, err := s.FetchBookings(ctx, ports.BookingFilter{ScheduledDateFrom: "2026-10-20", ScheduledDateTo: "2026-10-20", Status: domain.BookingConfirmed})
		require.NoError(t, err)
		assert.Equal(t, 7, page.Total)

		bases, err := s.FetchBaseLocations(ctx)
		require.NoError(t, err)
		assert.Len(t, bases, 5)
	})
}
