package dto

import "route-planning-service/internal/domain"

type CreateRouteRequest struct {
	RouteName               string               `json:"route_name"`
	RouteCode               string               `json:"route_code"`
	VehicleID               string               `json:"vehicle_id"`
	RouteDate               string               `json:"route_date"`
	PlannedStartTime        string               `json:"planned_start_time"`
	PlannedEndTime          string               `json:"planned_end_time"`
	TotalDistanceKm         *float64             `json:"total_distance_km"`
	TotalDurationMinutes    *int                 `json:"total_duration_minutes"`
	TotalServiceTimeMinutes int                  `json:"total_service_time_minutes"`
	TotalTravelTimeMinutes  int                  `json:"total_travel_time_minutes"`
	OptimizationType        string               `json:"optimization_type"`
	OptimizationScore       *float64             `json:"optimization_score"`
	Status                  string               `json:"status"`
	StopSequence            []string             `json:"stop_sequence"`
	RouteGeometry           domain.RouteGeometry `json:"route_geometry"`
	CostCurrency            string               `json:"cost_currency"`
}

type RouteResponse struct {
	Route *domain.Route `json:"route"`
}

type DeleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error any `json:"error"`
}
