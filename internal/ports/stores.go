package ports

import (
	"context"
	"route-planning-service/internal/domain"
)

// Filters used when fetching bookings. Zero values mean "no filter".
type BookingFilter struct {
	IDs               []string
	ScheduledDateFrom string
	ScheduledDateTo   string
	Status            domain.BookingStatus
	ServiceID         string
	Limit             int
	Offset            int
}

type BookingPage struct {
	Bookings []*domain.Booking
	Total    int
}

// Partial booking update. Nil fields are left unchanged; a pointer to "" clears the column.
type BookingUpdate struct {
	ID                 string
	VehicleID          *string
	RouteID            *string
	Status             *domain.BookingStatus
	StopOrder          *int
	ClearStopOrder     bool
	ScheduledStartTime *string
	ScheduledEndTime   *string
}

// Port: bookings with their linked service locations.
type BookingStore interface {
	FetchBookings(ctx context.Context, filter BookingFilter) (BookingPage, error)
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	UpdateBooking(ctx context.Context, update BookingUpdate) error
	// Clear vehicle/route assignment and revert to confirmed for the given ids.
	ResetBookings(ctx context.Context, ids []string) (int, error)
	// Same reset for every live booking on vehicleID for date.
	ResetBookingsForVehicleDate(ctx context.Context, vehicleID, date string) (int, error)
	// Decrement stop_order of bookings on routeID placed after removedStopOrder.
	RenumberRouteStops(ctx context.Context, routeID string, removedStopOrder int) error
}

type VehicleFilter struct {
	Status domain.VehicleStatus
}

// Port: read-only vehicle catalogue.
type VehicleStore interface {
	FetchVehicles(ctx context.Context, filter VehicleFilter) ([]*domain.Vehicle, error)
}

// Port: read-only locations.
type LocationStore interface {
	FetchLocationByID(ctx context.Context, id string) (*domain.Location, error)
	// Live locations usable as vehicle bases (depot, home, other).
	FetchBaseLocations(ctx context.Context) ([]*domain.Location, error)
}

// Port: persisted routes.
type RouteStore interface {
	InsertRoute(ctx context.Context, route *domain.Route) (*domain.Route, error)
	GetRoute(ctx context.Context, id string) (*domain.Route, error)
	TombstoneRoute(ctx context.Context, id string) error
	// Route codes already used with the given prefix, including tombstoned routes.
	ListRouteCodes(ctx context.Context, prefix string) ([]string, error)
	// Mark a route for recalculation after one of its stops was removed.
	MarkStopRemoved(ctx context.Context, id string) error
}
