package services

import (
	"context"
	"errors"
	"route-planning-service/internal/adapters/repositories"
	"route-planning-service/internal/adapters/routing"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/apperr"
	"route-planning-service/internal/ports"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const planDate = "2026-10-15"

var (
	northDepot = domain.Coordinates{Lat: 47.63, Lon: -122.34}
	southDepot = domain.Coordinates{Lat: 47.56, Lon: -122.34}
)

func confirmed(id, service string, lat, lon float64) *domain.Booking {
	return &domain.Booking{
		ID: id, ServiceID: service, Status: domain.BookingConfirmed, ScheduledDate: planDate,
		Latitude: f64(lat), Longitude: f64(lon),
	}
}

func planningStore() *repositories.MemoryStore {
	store := repositories.NewMemoryStore()
	store.AddLocations(
		&domain.Location{ID: "north", Name: "North Depot", LocationType: domain.LocationTypeDepot, Latitude: f64(northDepot.Lat), Longitude: f64(northDepot.Lon)},
		&domain.Location{ID: "south", Name: "South Depot", LocationType: domain.LocationTypeDepot, Latitude: f64(southDepot.Lat), Longitude: f64(southDepot.Lon)},
		&domain.Location{ID: "home", Name: "Home", LocationType: domain.LocationTypeHome, Latitude: f64(47.75), Longitude: f64(-122.34)},
		&domain.Location{ID: "cust", Name: "Customer", LocationType: domain.LocationTypeCustomer, Latitude: f64(47.60), Longitude: f64(-122.30)},
	)
	store.AddVehicles(
		&domain.Vehicle{
			ID: "v1", Name: "Van 1", ServiceTypes: []string{"repair"}, Status: domain.VehicleAvailable,
			Locations: []domain.VehicleLocation{{LocationID: "north", IsPrimary: true}},
		},
		&domain.Vehicle{
			ID: "v2", Name: "Van 2", ServiceTypes: []string{"repair", "install"}, Status: domain.VehicleAvailable,
			Locations: []domain.VehicleLocation{{LocationID: "south", IsPrimary: true}},
		},
		&domain.Vehicle{ID: "v3", Name: "Van 3", ServiceTypes: []string{"repair"}, Status: domain.VehicleMaintenance},
	)
	return store
}

func newTestPlanner(store *repositories.MemoryStore, oracle ports.RoutingOracle) *Planner {
	return NewPlanner(PlannerDeps{
		Bookings:  store,
		Vehicles:  store,
		Locations: store,
		Routes:    store,
		Oracle:    oracle,
		Logger:    zap.NewNop(),
	}, DefaultPlannerConfig())
}

// recordingOracle keeps every request and answers with the static oracle.
type recordingOracle struct {
	mu       sync.Mutex
	requests []ports.ComputeRouteRequest
	fail     func(req ports.ComputeRouteRequest) error
}

func (o *recordingOracle) ComputeRoute(ctx context.Context, req ports.ComputeRouteRequest) (*ports.ComputedRoute, error) {
	o.mu.Lock()
	o.requests = append(o.requests, req)
	o.mu.Unlock()
	if o.fail != nil {
		if err := o.fail(req); err != nil {
			return nil, err
		}
	}
	return routing.NewStaticOracle(0).ComputeRoute(ctx, req)
}

func TestPlanRoutesWithoutBookings(t *testing.T) {
	p := newTestPlanner(planningStore(), &recordingOracle{})

	res, err := p.PlanRoutes(context.Background(), PlanRoutesInput{RouteDate: planDate})
	require.NoError(t, err)

	assert.Empty(t, res.Routes)
	assert.NotNil(t, res.Routes)
	assert.Empty(t, res.UnassignedBookings)
	assert.Equal(t, []string{noBookingsWarning}, res.Warnings)
	assert.Equal(t, PlanSummary{}, res.Summary)
}

func TestPlanRoutesRejectsInvalidInput(t *testing.T) {
	p := newTestPlanner(planningStore(), &recordingOracle{})

	tests := []struct {
		name    string
		in      PlanRoutesInput
		message string
	}{
		{"missing date", PlanRoutesInput{}, "Route date is required"},
		{"bad date", PlanRoutesInput{RouteDate: "2026-02-30"}, "Route date must be formatted as YYYY-MM-DD"},
		{"negative stops", PlanRoutesInput{RouteDate: planDate, MaxStopsPerRoute: -2}, "Max stops per route must be positive"},
		{"unknown preference", PlanRoutesInput{RouteDate: planDate, RoutingPreference: "FAST"}, `Unknown routing preference "FAST"`},
		{
			"optimal preference",
			PlanRoutesInput{RouteDate: planDate, RoutingPreference: ports.TrafficAwareOptimal},
			"Routing preference TRAFFIC_AWARE_OPTIMAL cannot be combined with waypoint order optimization",
		},
		{
			"bad allocation",
			PlanRoutesInput{RouteDate: planDate, VehicleAllocations: []domain.VehicleAllocation{{VehicleID: "v1", BookingCount: 1}, {BookingCount: 1}}},
			"Invalid vehicle allocation at index 1",
		},
		{
			"departure out of range",
			PlanRoutesInput{RouteDate: planDate, DepartureLocation: &domain.Coordinates{Lat: 10, Lon: 200}},
			"Departure location has invalid coordinates",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.PlanRoutes(context.Background(), tt.in)
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
			assert.Equal(t, tt.message, apperr.From(err).Message)
		})
	}
}

func TestPlanRoutesSetsAsideUnroutableBookings(t *testing.T) {
	store := planningStore()
	store.AddBookings(
		confirmed("ok", "repair", 47.61, -122.33),
		&domain.Booking{ID: "nowhere", ServiceID: "repair", Status: domain.BookingConfirmed, ScheduledDate: planDate},
		confirmed("roof", "roofing", 47.62, -122.33),
		confirmed("taken", "repair", 47.62, -122.31),
		confirmed("tomorrow", "repair", 47.62, -122.31),
		confirmed("pending", "repair", 47.62, -122.31),
	)
	taken, _ := store.GetBooking(context.Background(), "taken")
	taken.VehicleID = "v1"
	store.AddBookings(taken)
	tomorrow, _ := store.GetBooking(context.Background(), "tomorrow")
	tomorrow.ScheduledDate = "2026-10-16"
	store.AddBookings(tomorrow)
	pending, _ := store.GetBooking(context.Background(), "pending")
	pending.Status = domain.BookingPending
	store.AddBookings(pending)

	p := newTestPlanner(store, &recordingOracle{})
	res, err := p.PlanRoutes(context.Background(), PlanRoutesInput{RouteDate: planDate})
	require.NoError(t, err)

	reasons := map[string]string{}
	for _, u := range res.UnassignedBookings {
		reasons[u.Booking.ID] = u.Reason
	}
	assert.Equal(t, map[string]string{
		"nowhere": ReasonMissingCoordinates,
		"roof":    ReasonIncompatible,
	}, reasons)
	assert.Contains(t, res.Warnings, "1 bookings missing coordinates")
	assert.Contains(t, res.Warnings, "1 booking(s) have services not supported by any available vehicle")

	// The already-assigned booking counts toward the total but is never reported.
	assert.Equal(t, 4, res.Summary.TotalBookings)
	assert.Equal(t, 2, res.Summary.AssignedBookings)
	require.Len(t, res.Routes, 1)
	assert.Equal(t, []string{"ok"}, res.Routes[0].StopSequence)
}

func TestPlanRoutesAllAlreadyAssigned(t *testing.T) {
	store := planningStore()
	b := confirmed("b1", "repair", 47.61, -122.33)
	b.VehicleID = "v1"
	store.AddBookings(b)

	res, err := newTestPlanner(store, &recordingOracle{}).PlanRoutes(context.Background(), PlanRoutesInput{RouteDate: planDate})
	require.NoError(t, err)

	assert.Empty(t, res.Routes)
	assert.Equal(t, []string{"All bookings with valid coordinates already have vehicles assigned"}, res.Warnings)
}

func TestPlanRoutesWithoutAvailableVehicles(t *testing.T) {
	store := repositories.NewMemoryStore()
	store.AddVehicles(&domain.Vehicle{ID: "v3", ServiceTypes: []string{"repair"}, Status: domain.VehicleMaintenance})
	store.AddBookings(confirmed("b1", "repair", 47.61, -122.33))

	res, err := newTestPlanner(store, &recordingOracle{}).PlanRoutes(context.Background(), PlanRoutesInput{RouteDate: planDate})
	require.NoError(t, err)

	assert.Equal(t, []string{"No available vehicles found"}, res.Warnings)
	require.Len(t, res.UnassignedBookings, 1)
	assert.Equal(t, ReasonNoVehicle, res.UnassignedBookings[0].Reason)
}

func TestPlanRoutesIsolatesFailedBatch(t *testing.T) {
	store := planningStore()
	store.AddBookings(
		confirmed("b1", "repair", 47.61, -122.33),
		confirmed("b2", "repair", 47.62, -122.32),
		confirmed("b3", "repair", 47.58, -122.31),
		confirmed("b4", "repair", 47.57, -122.32),
	)
	oracle := &recordingOracle{fail: func(req ports.ComputeRouteRequest) error {
		if *req.Origin.Coordinates == southDepot {
			return apperr.New(apperr.KindOracleUnavailable, "routing service unavailable")
		}
		return nil
	}}

	res, err := newTestPlanner(store, oracle).PlanRoutes(context.Background(), PlanRoutesInput{RouteDate: planDate})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Summary.RoutesCreated)
	assert.Equal(t, 1, res.Summary.VehiclesUsed)
	assert.Equal(t, 4, res.Summary.TotalBookings)
	assert.Equal(t, 2, res.Summary.AssignedBookings)
	require.Len(t, res.Routes, 1)
	assert.Equal(t, "v1", res.Routes[0].VehicleID)
	assert.Equal(t, "RT-20261015-001", res.Routes[0].RouteCode)

	require.Len(t, res.UnassignedBookings, 2)
	for _, u := range res.UnassignedBookings {
		assert.Equal(t, ReasonOptimizationFailed, u.Reason)
	}
	assert.Equal(t, []string{"Failed to optimize route for batch 2 (vehicle v2): routing service unavailable"}, res.Warnings)

	ctx := context.Background()
	for _, id := range []string{"b1", "b2"} {
		b, err := store.GetBooking(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingScheduled, b.Status)
		assert.Equal(t, "v1", b.VehicleID)
		assert.Equal(t, res.Routes[0].ID, b.RouteID)
	}
	for _, id := range []string{"b3", "b4"} {
		b, err := store.GetBooking(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingConfirmed, b.Status)
		assert.False(t, b.IsAssigned())
	}
}

func TestPlanRoutesPersistsOracleOrderAndTotals(t *testing.T) {
	store := planningStore()
	store.AddBookings(
		confirmed("b1", "install", 47.61, -122.33),
		confirmed("b2", "install", 47.62, -122.32),
	)
	oracle := oracleFunc(func(ctx context.Context, req ports.ComputeRouteRequest) (*ports.ComputedRoute, error) {
		require.Len(t, req.Intermediates, 2)
		assert.Equal(t, ports.TrafficUnaware, req.RoutingPreference)
		assert.Equal(t, ports.TravelModeDrive, req.TravelMode)
		assert.True(t, req.OptimizeWaypointOrder)
		return &ports.ComputedRoute{
			DistanceMeters:  12345,
			DurationSeconds: 3601,
			EncodedPolyline: "abc",
			Legs:            []domain.RouteLeg{{DurationSeconds: 1200}, {DurationSeconds: 1200}, {DurationSeconds: 1201}},
			OptimizedIntermediateWaypointIndex: []int{1, 0},
		}, nil
	})

	res, err := newTestPlanner(store, oracle).PlanRoutes(context.Background(), PlanRoutesInput{RouteDate: planDate})
	require.NoError(t, err)
	require.Len(t, res.Routes, 1)

	r := res.Routes[0]
	assert.Equal(t, "v2", r.VehicleID)
	assert.Equal(t, []string{"b2", "b1"}, r.StopSequence)
	assert.InDelta(t, 12.345, r.TotalDistanceKm, 1e-9)
	assert.Equal(t, 61, r.TotalTravelTimeMinutes)
	assert.Equal(t, 60, r.TotalServiceTimeMinutes)
	assert.Equal(t, 121, r.TotalDurationMinutes)
	assert.Equal(t, 2, r.TotalStops)
	assert.Equal(t, domain.RoutePlanned, r.Status)
	assert.Equal(t, "balanced", r.OptimizationType)
	require.NotNil(t, r.OptimizationScore)
	assert.Equal(t, 85.0, *r.OptimizationScore)
	assert.Equal(t, "abc", r.Geometry.EncodedPolyline)
	assert.Len(t, r.Geometry.Legs, 3)
	assert.Equal(t, "USD", r.CostCurrency)

	assert.InDelta(t, 12.345, res.Summary.TotalDistanceKm, 1e-9)
	assert.Equal(t, 121, res.Summary.TotalDurationMinutes)

	b2, err := store.GetBooking(context.Background(), "b2")
	require.NoError(t, err)
	require.NotNil(t, b2.StopOrder)
	assert.Equal(t, 1, *b2.StopOrder)
	assert.Equal(t, "08:30:00", b2.ScheduledStartTime)
	assert.Equal(t, "09:00:00", b2.ScheduledEndTime)

	b1, err := store.GetBooking(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, 2, *b1.StopOrder)
}

func TestPlanRoutesKeepsFixedAppointments(t *testing.T) {
	store := planningStore()
	fixed := confirmed("fixed", "install", 47.61, -122.33)
	fixed.ScheduledStartTime = "13:00:00"
	fixed.ScheduledEndTime = "14:00:00"
	store.AddBookings(fixed, confirmed("loose", "install", 47.62, -122.32))

	res, err := newTestPlanner(store, &recordingOracle{}).PlanRoutes(context.Background(), PlanRoutesInput{RouteDate: planDate})
	require.NoError(t, err)
	require.Len(t, res.Routes, 1)
	assert.NotEmpty(t, res.Routes[0].PlannedStartTime)

	got, err := store.GetBooking(context.Background(), "fixed")
	require.NoError(t, err)
	assert.Equal(t, "13:00:00", got.ScheduledStartTime)
	assert.Equal(t, "14:00:00", got.ScheduledEndTime)

	loose, err := store.GetBooking(context.Background(), "loose")
	require.NoError(t, err)
	assert.NotEmpty(t, loose.ScheduledStartTime)
}

func TestPlanRoutesHonoursCallerAllocations(t *testing.T) {
	store := planningStore()
	store.AddBookings(
		confirmed("b1", "install", 47.61, -122.33),
		confirmed("b2", "repair", 47.62, -122.32),
		confirmed("b3", "repair", 47.58, -122.31),
	)
	oracle := &recordingOracle{}

	res, err := newTestPlanner(store, oracle).PlanRoutes(context.Background(), PlanRoutesInput{
		RouteDate: planDate,
		VehicleAllocations: []domain.VehicleAllocation{
			{VehicleID: "ghost", BookingCount: 1},
			{VehicleID: "v1", BookingCount: 1, EndLocationID: "south"},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, res.Warnings, "Vehicle ghost not found or not available")
	require.Len(t, res.Routes, 1)
	// v1 cannot install, so it takes the first repair booking.
	assert.Equal(t, []string{"b2"}, res.Routes[0].StopSequence)

	require.Len(t, oracle.requests, 1)
	req := oracle.requests[0]
	assert.Equal(t, northDepot, *req.Origin.Coordinates)
	assert.Equal(t, southDepot, *req.Destination.Coordinates)
	assert.Len(t, req.Intermediates, 1)

	reasons := map[string]string{}
	for _, u := range res.UnassignedBookings {
		reasons[u.Booking.ID] = u.Reason
	}
	assert.Equal(t, map[string]string{"b1": ReasonNotAllocated, "b3": ReasonNotAllocated}, reasons)
}

func TestPlanRoutesWarnsWhenNothingClaimed(t *testing.T) {
	store := planningStore()
	store.AddBookings(confirmed("b1", "install", 47.61, -122.33))

	res, err := newTestPlanner(store, &recordingOracle{}).PlanRoutes(context.Background(), PlanRoutesInput{
		RouteDate:          planDate,
		VehicleAllocations: []domain.VehicleAllocation{{VehicleID: "v1", BookingCount: 3}},
	})
	require.NoError(t, err)

	assert.Empty(t, res.Routes)
	assert.Contains(t, res.Warnings, "No bookings could be matched to available vehicles")
	require.Len(t, res.UnassignedBookings, 1)
	assert.Equal(t, ReasonNotAllocated, res.UnassignedBookings[0].Reason)
}

func TestPlanRoutesSplitsLargeAllocations(t *testing.T) {
	store := planningStore()
	store.AddBookings(
		confirmed("b1", "install", 47.61, -122.33),
		confirmed("b2", "install", 47.62, -122.32),
		confirmed("b3", "install", 47.63, -122.31),
	)

	res, err := newTestPlanner(store, &recordingOracle{}).PlanRoutes(context.Background(), PlanRoutesInput{
		RouteDate:          planDate,
		MaxStopsPerRoute:   2,
		VehicleAllocations: []domain.VehicleAllocation{{VehicleID: "v2", BookingCount: 3}},
	})
	require.NoError(t, err)

	require.Len(t, res.Routes, 2)
	assert.Equal(t, "RT-20261015-001", res.Routes[0].RouteCode)
	assert.Equal(t, "RT-20261015-002", res.Routes[1].RouteCode)
	assert.Equal(t, "Route 2 - 2026-10-15", res.Routes[1].RouteName)
	assert.Equal(t, 1, res.Summary.VehiclesUsed)
	assert.Equal(t, 3, res.Summary.AssignedBookings)
}

// failingRoutes rejects every insert.
type failingRoutes struct {
	*repositories.MemoryStore
}

func (failingRoutes) InsertRoute(ctx context.Context, r *domain.Route) (*domain.Route, error) {
	return nil, errors.New("disk full")
}

func TestPlanRoutesReportsPersistFailure(t *testing.T) {
	store := planningStore()
	store.AddBookings(confirmed("b1", "install", 47.61, -122.33))

	p := NewPlanner(PlannerDeps{
		Bookings:  store,
		Vehicles:  store,
		Locations: store,
		Routes:    failingRoutes{store},
		Oracle:    &recordingOracle{},
	}, DefaultPlannerConfig())

	res, err := p.PlanRoutes(context.Background(), PlanRoutesInput{RouteDate: planDate})
	require.NoError(t, err)

	assert.Empty(t, res.Routes)
	assert.Equal(t, []string{"Failed to create route for batch 1 (vehicle v2): Failed to create route"}, res.Warnings)
	require.Len(t, res.UnassignedBookings, 1)
	assert.Equal(t, ReasonPersistFailed, res.UnassignedBookings[0].Reason)

	b, err := store.GetBooking(context.Background(), "b1")
	require.NoError(t, err)
	assert.False(t, b.IsAssigned())
}

func TestResolveDeparture(t *testing.T) {
	p := newTestPlanner(planningStore(), &recordingOracle{})
	ctx := context.Background()

	v := &domain.Vehicle{
		ID:             "v",
		HomeLocationID: "home",
		Locations:      []domain.VehicleLocation{{LocationID: "north", IsPrimary: true}},
	}
	custom := domain.Coordinates{Lat: 1, Lon: 2}

	got := p.resolveDeparture(ctx, PlanRoutesInput{DepartureLocation: &custom}, v, domain.VehicleAllocation{StartLocationID: "south"})
	assert.Equal(t, custom, *got)

	got = p.resolveDeparture(ctx, PlanRoutesInput{}, v, domain.VehicleAllocation{StartLocationID: "south"})
	assert.Equal(t, southDepot, *got)

	got = p.resolveDeparture(ctx, PlanRoutesInput{}, v, domain.VehicleAllocation{})
	assert.Equal(t, northDepot, *got)

	v.Locations = nil
	got = p.resolveDeparture(ctx, PlanRoutesInput{}, v, domain.VehicleAllocation{})
	assert.Equal(t, domain.Coordinates{Lat: 47.75, Lon: -122.34}, *got)

	v.HomeLocationID = "missing"
	assert.Nil(t, p.resolveDeparture(ctx, PlanRoutesInput{}, v, domain.VehicleAllocation{}))
}
