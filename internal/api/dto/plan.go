package dto

import "route-planning-service/internal/domain"

type CoordinatesRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type AllocationRequest struct {
	VehicleID       string `json:"vehicle_id"`
	BookingCount    int    `json:"booking_count"`
	StartLocationID string `json:"start_location_id"`
	EndLocationID   string `json:"end_location_id"`
}

// Body of POST /routes/plan and POST /routes/plan/preview.
type PlanRoutesRequest struct {
	RouteDate          string              `json:"route_date"`
	ServiceID          string              `json:"service_id"`
	MaxStopsPerRoute   int                 `json:"max_stops_per_route"`
	DepartureLocation  *CoordinatesRequest `json:"departure_location"`
	ReturnToStart      *bool               `json:"return_to_start"`
	RoutingPreference  string              `json:"routing_preference"`
	VehicleAllocations []AllocationRequest `json:"vehicle_allocations"`
}

// Body of POST /routes/optimize. Exactly one of BookingIDs and Bookings must be present.
type OptimizeRoutesRequest struct {
	BookingIDs            []string            `json:"booking_ids"`
	Bookings              []*domain.Booking   `json:"bookings"`
	DepartureLocation     *CoordinatesRequest `json:"departure_location"`
	ReturnToStart         bool                `json:"return_to_start"`
	TravelMode            string              `json:"travel_mode"`
	RoutingPreference     string              `json:"routing_preference"`
	OptimizeWaypointOrder *bool               `json:"optimize_waypoint_order"`
}
