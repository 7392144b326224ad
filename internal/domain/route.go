package domain

import "time"

type RouteStatus string

const (
	RouteDraft      RouteStatus = "draft"
	RoutePlanned    RouteStatus = "planned"
	RouteOptimized  RouteStatus = "optimized"
	RouteAssigned   RouteStatus = "assigned"
	RouteInProgress RouteStatus = "in_progress"
	RouteCompleted  RouteStatus = "completed"
	RouteCancelled  RouteStatus = "cancelled"
	RouteFailed     RouteStatus = "failed"
)

// Valid reports whether s is a known route status.
func (s RouteStatus) Valid() bool {
	switch s {
	case RouteDraft, RoutePlanned, RouteOptimized, RouteAssigned,
		RouteInProgress, RouteCompleted, RouteCancelled, RouteFailed:
		return true
	}
	return false
}

// One leg of a computed route, between two consecutive waypoints.
type RouteLeg struct {
	DistanceMeters  int    `json:"distance_meters"`
	DurationSeconds int    `json:"duration_seconds"`
	EncodedPolyline string `json:"encoded_polyline,omitempty"`
}

type RouteGeometry struct {
	EncodedPolyline string     `json:"encoded_polyline,omitempty"`
	Legs            []RouteLeg `json:"legs,omitempty"`
}

// Represents the persisted plan for one vehicle on one day.
// StopSequence records the final visiting order as booking ids.
type Route struct {
	ID                      string        `json:"id"`
	RouteName               string        `json:"route_name"`
	RouteCode               string        `json:"route_code,omitempty"`
	VehicleID               string        `json:"vehicle_id,omitempty"`
	RouteDate               string        `json:"route_date"`
	PlannedStartTime        string        `json:"planned_start_time,omitempty"`
	PlannedEndTime          string        `json:"planned_end_time,omitempty"`
	TotalDistanceKm         float64       `json:"total_distance_km"`
	TotalDurationMinutes    int           `json:"total_duration_minutes"`
	TotalServiceTimeMinutes int           `json:"total_service_time_minutes"`
	TotalTravelTimeMinutes  int           `json:"total_travel_time_minutes"`
	TotalStops              int           `json:"total_stops"`
	OptimizationType        string        `json:"optimization_type,omitempty"`
	OptimizationScore       *float64      `json:"optimization_score,omitempty"`
	Status                  RouteStatus   `json:"status"`
	StopSequence            []string      `json:"stop_sequence"`
	Geometry                RouteGeometry `json:"route_geometry"`
	CostCurrency            string        `json:"cost_currency,omitempty"`
	NeedsRecalculation      bool          `json:"needs_recalculation"`
	CreatedAt               time.Time     `json:"created_at"`
	DeletedAt               *time.Time    `json:"deleted_at,omitempty"`
}
