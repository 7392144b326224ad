package services

import (
	"context"
	"errors"
	"route-planning-service/internal/adapters/repositories"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/apperr"
	"route-planning-service/internal/ports"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, 10, 15, 7, 30, 0, 0, time.UTC)

func newRouteService(store *repositories.MemoryStore) *RouteService {
	s := NewRouteService(store, store, zap.NewNop())
	s.Now = func() time.Time { return fixedNow }
	n := 0
	s.NewID = func() string {
		n++
		return "route-" + string(rune('0'+n))
	}
	return s
}

// mockBookings records calls and returns whatever the test scripts.
type mockBookings struct {
	mock.Mock
}

func (m *mockBookings) FetchBookings(ctx context.Context, f ports.BookingFilter) (ports.BookingPage, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(ports.BookingPage), args.Error(1)
}

func (m *mockBookings) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*domain.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) UpdateBooking(ctx context.Context, u ports.BookingUpdate) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockBookings) ResetBookings(ctx context.Context, ids []string) (int, error) {
	args := m.Called(ctx, ids)
	return args.Int(0), args.Error(1)
}

func (m *mockBookings) ResetBookingsForVehicleDate(ctx context.Context, vehicleID, date string) (int, error) {
	args := m.Called(ctx, vehicleID, date)
	return args.Int(0), args.Error(1)
}

func (m *mockBookings) RenumberRouteStops(ctx context.Context, routeID string, removed int) error {
	return m.Called(ctx, routeID, removed).Error(0)
}

// brokenCodes fails to list route codes and delegates everything else.
type brokenCodes struct {
	*repositories.MemoryStore
}

func (brokenCodes) ListRouteCodes(ctx context.Context, prefix string) ([]string, error) {
	return nil, errors.New("connection reset")
}

func TestCreateRouteDefaults(t *testing.T) {
	store := repositories.NewMemoryStore()
	s := newRouteService(store)

	got, err := s.CreateRoute(context.Background(), CreateRouteInput{
		RouteName:    "  Morning  ",
		RouteDate:    "2026-10-15",
		StopSequence: []string{"b1", "b2", "b3"},
	})
	require.NoError(t, err)

	assert.Equal(t, "route-1", got.ID)
	assert.Equal(t, "Morning", got.RouteName)
	assert.Equal(t, domain.RouteDraft, got.Status)
	assert.Equal(t, 3, got.TotalStops)
	assert.Equal(t, fixedNow, got.CreatedAt)

	stored, err := store.GetRoute(context.Background(), "route-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2", "b3"}, stored.StopSequence)
}

func TestCreateRouteValidation(t *testing.T) {
	s := newRouteService(repositories.NewMemoryStore())

	tests := []struct {
		name    string
		in      CreateRouteInput
		message string
		field   string
	}{
		{"blank name", CreateRouteInput{RouteName: " ", RouteDate: "2026-10-15"}, "Route name is required", "routeName"},
		{"missing date", CreateRouteInput{RouteName: "r"}, "Route date is required", "routeDate"},
		{"bad date", CreateRouteInput{RouteName: "r", RouteDate: "2026-13-01"}, "Route date must be formatted as YYYY-MM-DD", "routeDate"},
		{
			"score too high", CreateRouteInput{RouteName: "r", RouteDate: "2026-10-15", OptimizationScore: f64(100.5)},
			"Optimization score must be between 0 and 100", "optimizationScore",
		},
		{
			"negative distance", CreateRouteInput{RouteName: "r", RouteDate: "2026-10-15", TotalDistanceKm: f64(-0.1)},
			"Total distance cannot be negative", "totalDistanceKm",
		},
		{
			"negative duration", CreateRouteInput{RouteName: "r", RouteDate: "2026-10-15", TotalDurationMinutes: iptr(-1)},
			"Total duration cannot be negative", "totalDurationMinutes",
		},
		{"unknown status", CreateRouteInput{RouteName: "r", RouteDate: "2026-10-15", Status: "parked"}, `Unknown route status "parked"`, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateRoute(context.Background(), tt.in)
			require.Error(t, err)
			ae := apperr.From(err)
			assert.Equal(t, apperr.KindInvalidInput, ae.Kind)
			assert.Equal(t, tt.message, ae.Message)
			assert.Equal(t, tt.field, ae.Details["field"])
		})
	}
}

func TestCreateRouteAcceptsBoundaryValues(t *testing.T) {
	s := newRouteService(repositories.NewMemoryStore())

	got, err := s.CreateRoute(context.Background(), CreateRouteInput{
		RouteName:            "r",
		RouteDate:            "2026-10-15",
		OptimizationScore:    f64(0),
		TotalDistanceKm:      f64(0),
		TotalDurationMinutes: iptr(0),
		Status:               domain.RoutePlanned,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoutePlanned, got.Status)
}

func TestNextRouteCode(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	s := newRouteService(store)

	assert.Equal(t, "RT-20261015-001", s.NextRouteCode(ctx, "2026-10-15"))

	for _, code := range []string{"RT-20261015-001", "RT-20261015-007", "RT-20261015-x", "RT-20261016-020"} {
		_, err := s.CreateRoute(ctx, CreateRouteInput{RouteName: code, RouteDate: "2026-10-15", RouteCode: code})
		require.NoError(t, err)
	}
	assert.Equal(t, "RT-20261015-008", s.NextRouteCode(ctx, "2026-10-15"))

	// Tombstoned codes stay reserved.
	_, err := s.CreateRoute(ctx, CreateRouteInput{RouteName: "late", RouteDate: "2026-10-15", RouteCode: "RT-20261015-009"})
	require.NoError(t, err)
	require.NoError(t, store.TombstoneRoute(ctx, "route-5"))
	assert.Equal(t, "RT-20261015-010", s.NextRouteCode(ctx, "2026-10-15"))
}

func TestNextRouteCodeFallbackStaysUnique(t *testing.T) {
	store := repositories.NewMemoryStore()
	s := NewRouteService(brokenCodes{store}, store, zap.NewNop())
	s.Now = func() time.Time { return fixedNow }

	first := s.NextRouteCode(context.Background(), "2026-10-15")
	second := s.NextRouteCode(context.Background(), "2026-10-15")

	assert.Regexp(t, `^RT-20261015-1792049400-[0-9a-f]{8}$`, first)
	assert.Regexp(t, `^RT-20261015-1792049400-[0-9a-f]{8}$`, second)
	assert.NotEqual(t, first, second)
}

func seedAssignedRoute(t *testing.T, store *repositories.MemoryStore, s *RouteService) *domain.Route {
	t.Helper()
	route, err := s.CreateRoute(context.Background(), CreateRouteInput{
		RouteName:    "Route 1",
		RouteDate:    "2026-10-15",
		VehicleID:    "v1",
		StopSequence: []string{"b1", "b2", "b3"},
	})
	require.NoError(t, err)

	assigned := func(id string, stop int) *domain.Booking {
		return &domain.Booking{
			ID: id, ServiceID: "svc", Status: domain.BookingScheduled, ScheduledDate: "2026-10-15",
			VehicleID: "v1", RouteID: route.ID, StopOrder: iptr(stop),
		}
	}
	store.AddBookings(
		assigned("b1", 1),
		assigned("b2", 2),
		assigned("b3", 3),
		// Same vehicle and date but missing from the stop sequence.
		&domain.Booking{ID: "b4", ServiceID: "svc", Status: domain.BookingScheduled, ScheduledDate: "2026-10-15", VehicleID: "v1", RouteID: "stale"},
		&domain.Booking{ID: "b5", ServiceID: "svc", Status: domain.BookingScheduled, ScheduledDate: "2026-10-15", VehicleID: "v2", RouteID: "other"},
	)
	return route
}

func TestDeleteRouteReleasesBookings(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	s := newRouteService(store)
	route := seedAssignedRoute(t, store, s)

	require.NoError(t, s.DeleteRoute(ctx, route.ID))

	for _, id := range []string{"b1", "b2", "b3", "b4"} {
		b, err := store.GetBooking(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingConfirmed, b.Status, id)
		assert.Empty(t, b.VehicleID, id)
		assert.Empty(t, b.RouteID, id)
		assert.Nil(t, b.StopOrder, id)
	}

	untouched, err := store.GetBooking(ctx, "b5")
	require.NoError(t, err)
	assert.Equal(t, "other", untouched.RouteID)

	_, err = s.GetRoute(ctx, route.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestDeleteRouteTombstonesWhenResetFails(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	seeded := newRouteService(store)
	route := seedAssignedRoute(t, store, seeded)

	bookings := &mockBookings{}
	bookings.On("ResetBookings", mock.Anything, []string{"b1", "b2", "b3"}).Return(0, errors.New("db locked"))
	bookings.On("ResetBookingsForVehicleDate", mock.Anything, "v1", "2026-10-15").Return(0, errors.New("db locked"))

	s := NewRouteService(store, bookings, zap.NewNop())
	require.NoError(t, s.DeleteRoute(ctx, route.ID))

	bookings.AssertExpectations(t)
	_, err := store.GetRoute(ctx, route.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestDeleteMissingRoute(t *testing.T) {
	s := newRouteService(repositories.NewMemoryStore())

	err := s.DeleteRoute(context.Background(), "nope")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestRemoveBookingFromRoute(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	s := newRouteService(store)
	route := seedAssignedRoute(t, store, s)

	require.NoError(t, s.RemoveBookingFromRoute(ctx, "b2"))

	removed, err := store.GetBooking(ctx, "b2")
	require.NoError(t, err)
	assert.Empty(t, removed.RouteID)
	assert.Nil(t, removed.StopOrder)

	b1, _ := store.GetBooking(ctx, "b1")
	b3, _ := store.GetBooking(ctx, "b3")
	assert.Equal(t, 1, *b1.StopOrder)
	assert.Equal(t, 2, *b3.StopOrder)

	updated, err := store.GetRoute(ctx, route.ID)
	require.NoError(t, err)
	assert.True(t, updated.NeedsRecalculation)
	assert.Equal(t, 2, updated.TotalStops)
}

func TestRemoveBookingWithoutRouteIsNoop(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	store.AddBookings(&domain.Booking{ID: "free", ServiceID: "svc", Status: domain.BookingConfirmed, ScheduledDate: "2026-10-15"})

	bookings := &mockBookings{}
	bookings.On("GetBooking", mock.Anything, "free").Return(&domain.Booking{ID: "free"}, nil)

	s := NewRouteService(store, bookings, zap.NewNop())
	require.NoError(t, s.RemoveBookingFromRoute(ctx, "free"))

	bookings.AssertExpectations(t)
	bookings.AssertNotCalled(t, "UpdateBooking", mock.Anything, mock.Anything)
}

func TestRemoveMissingBooking(t *testing.T) {
	s := newRouteService(repositories.NewMemoryStore())

	err := s.RemoveBookingFromRoute(context.Background(), "ghost")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
