package routing

import (
	"context"
	"math"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/apperr"
	"route-planning-service/internal/ports"
)

const defaultStaticSpeedKmh = 40.0

// StaticOracle computes straight-line routes offline.
// Legs are haversine distances driven at a constant speed and the intermediate order is never changed.
type StaticOracle struct {
	SpeedKmh float64
}

func NewStaticOracle(speedKmh float64) *StaticOracle {
	if speedKmh <= 0 {
		speedKmh = defaultStaticSpeedKmh
	}
	return &StaticOracle{SpeedKmh: speedKmh}
}

func (s *StaticOracle) ComputeRoute(ctx context.Context, req ports.ComputeRouteRequest) (*ports.ComputedRoute, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindOracleTimeout, "routing request cancelled", err)
	}

	points := make([]domain.Coordinates, 0, len(req.Intermediates)+2)
	for _, w := range append(append([]domain.Waypoint{req.Origin}, req.Intermediates...), req.Destination) {
		if w.Coordinates == nil || !w.Coordinates.Valid() {
			return nil, apperr.New(apperr.KindOracleInvalidRequest, "static routing needs coordinates for every waypoint")
		}
		points = append(points, *w.Coordinates)
	}

	speed := s.SpeedKmh
	if speed <= 0 {
		speed = defaultStaticSpeedKmh
	}

	out := &ports.ComputedRoute{Legs: make([]domain.RouteLeg, 0, len(points)-1)}
	for i := 1; i < len(points); i++ {
		km := domain.DistanceKm(points[i-1], points[i])
		leg := domain.RouteLeg{
			DistanceMeters:  int(math.Round(km * 1000)),
			DurationSeconds: int(math.Round(km / speed * 3600)),
		}
		out.Legs = append(out.Legs, leg)
		out.DistanceMeters += leg.DistanceMeters
		out.DurationSeconds += leg.DurationSeconds
	}

	if req.OptimizeWaypointOrder {
		out.OptimizedIntermediateWaypointIndex = make([]int, len(req.Intermediates))
		for i := range out.OptimizedIntermediateWaypointIndex {
			out.OptimizedIntermediateWaypointIndex[i] = i
		}
	}
	return out, nil
}
