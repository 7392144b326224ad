package services

import (
	"context"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/ports"
)

func f64(v float64) *float64 { return &v }
func iptr(v int) *int { return &v }

func at(id string, lat, lon float64) *domain.Booking {
	return &domain.Booking{ID: id, Latitude: f64(lat), Longitude: f64(lon)}
}

func ids(bookings []*domain.Booking) []string {
	return domain.BookingIDs(bookings)
}

// oracleFunc adapts a function to ports.RoutingOracle.
type oracleFunc func(ctx context.Context, req ports.ComputeRouteRequest) (*ports.ComputedRoute, error)

func (f oracleFunc) ComputeRoute(ctx context.Context, req ports.ComputeRouteRequest) (*ports.ComputedRoute, error) {
	return f(ctx, req)
}
