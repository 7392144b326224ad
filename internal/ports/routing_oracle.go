package ports

import (
	"context"
	"route-planning-service/internal/domain"
)

type TravelMode string

const (
	TravelModeDrive      TravelMode = "DRIVE"
	TravelModeBicycle    TravelMode = "BICYCLE"
	TravelModeWalk       TravelMode = "WALK"
	TravelModeTwoWheeler TravelMode = "TWO_WHEELER"
)

type RoutingPreference string

const (
	TrafficUnaware      RoutingPreference = "TRAFFIC_UNAWARE"
	TrafficAware        RoutingPreference = "TRAFFIC_AWARE"
	TrafficAwareOptimal RoutingPreference = "TRAFFIC_AWARE_OPTIMAL"
)

const PolylineHighQuality = "HIGH_QUALITY"

// Waypoint-ordering request for one batch.
type ComputeRouteRequest struct {
	Origin                domain.Waypoint   `json:"origin"`
	Destination           domain.Waypoint   `json:"destination"`
	Intermediates         []domain.Waypoint `json:"intermediates,omitempty"`
	TravelMode            TravelMode        `json:"travel_mode,omitempty"`
	RoutingPreference     RoutingPreference `json:"routing_preference,omitempty"`
	OptimizeWaypointOrder bool              `json:"optimize_waypoint_order"`
	PolylineQuality       string            `json:"polyline_quality,omitempty"`
}

// Best route returned by the oracle. Durations are already parsed into seconds.
type ComputedRoute struct {
	DistanceMeters  int               `json:"distance_meters"`
	DurationSeconds int               `json:"duration_seconds"`
	EncodedPolyline string            `json:"encoded_polyline,omitempty"`
	Legs            []domain.RouteLeg `json:"legs"`
	// Zero-based positions into the request's Intermediates, in visiting order.
	OptimizedIntermediateWaypointIndex []int    `json:"optimized_intermediate_waypoint_index,omitempty"`
	Warnings                           []string `json:"warnings,omitempty"`
}

// Contract for the external route computation service.
type RoutingOracle interface {
	// Return the best route for the request, or an *apperr.Error with an ORACLE_* kind.
	ComputeRoute(ctx context.Context, req ComputeRouteRequest) (*ComputedRoute, error)
}

// Optional persistent store for oracle responses keyed by a request fingerprint.
type RouteCache interface {
	Get(ctx context.Context, key string) (*ComputedRoute, bool, error)
	Put(ctx context.Context, key string, route *ComputedRoute) error
}
