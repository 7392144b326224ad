package routing

import (
	"fmt"
	"math"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/ports"
	"strings"
	"time"
)

const fieldMask = "routes.distanceMeters,routes.duration,routes.polyline.encodedPolyline," +
	"routes.legs.distanceMeters,routes.legs.duration,routes.legs.polyline.encodedPolyline," +
	"routes.optimizedIntermediateWaypointIndex,routes.warnings"

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type wireLocation struct {
	LatLng latLng `json:"latLng"`
}

type wireWaypoint struct {
	Location *wireLocation `json:"location,omitempty"`
	PlaceID  string        `json:"placeId,omitempty"`
}

type computeRoutesRequest struct {
	Origin                wireWaypoint   `json:"origin"`
	Destination           wireWaypoint   `json:"destination"`
	Intermediates         []wireWaypoint `json:"intermediates,omitempty"`
	TravelMode            string         `json:"travelMode,omitempty"`
	RoutingPreference     string         `json:"routingPreference,omitempty"`
	OptimizeWaypointOrder bool           `json:"optimizeWaypointOrder,omitempty"`
	PolylineQuality       string         `json:"polylineQuality,omitempty"`
}

type wirePolyline struct {
	EncodedPolyline string `json:"encodedPolyline"`
}

type wireLeg struct {
	DistanceMeters int          `json:"distanceMeters"`
	Duration       string       `json:"duration"`
	Polyline       wirePolyline `json:"polyline"`
}

type wireRoute struct {
	DistanceMeters                     int          `json:"distanceMeters"`
	Duration                           string       `json:"duration"`
	Polyline                           wirePolyline `json:"polyline"`
	Legs                               []wireLeg    `json:"legs"`
	OptimizedIntermediateWaypointIndex []int        `json:"optimizedIntermediateWaypointIndex"`
	Warnings                           []string     `json:"warnings"`
}

type computeRoutesResponse struct {
	Routes []wireRoute `json:"routes"`
}

type googleErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func toWireWaypoint(w domain.Waypoint) (wireWaypoint, error) {
	if w.Coordinates != nil {
		if !w.Coordinates.Valid() {
			return wireWaypoint{}, fmt.Errorf("invalid coordinates (%f, %f)", w.Coordinates.Lat, w.Coordinates.Lon)
		}
		return wireWaypoint{Location: &wireLocation{LatLng: latLng{
			Latitude:  w.Coordinates.Lat,
			Longitude: w.Coordinates.Lon,
		}}}, nil
	}
	if strings.TrimSpace(w.PlaceID) != "" {
		return wireWaypoint{PlaceID: w.PlaceID}, nil
	}
	return wireWaypoint{}, fmt.Errorf("waypoint has neither coordinates nor place id")
}

// Build the Routes API request body.
// Routing preference is only sent for motorised travel modes, which is all the API accepts.
func toWireRequest(req ports.ComputeRouteRequest) (computeRoutesRequest, error) {
	origin, err := toWireWaypoint(req.Origin)
	if err != nil {
		return computeRoutesRequest{}, fmt.Errorf("origin: %w", err)
	}
	destination, err := toWireWaypoint(req.Destination)
	if err != nil {
		return computeRoutesRequest{}, fmt.Errorf("destination: %w", err)
	}

	out := computeRoutesRequest{
		Origin:                origin,
		Destination:           destination,
		TravelMode:            string(req.TravelMode),
		OptimizeWaypointOrder: req.OptimizeWaypointOrder,
		PolylineQuality:       req.PolylineQuality,
	}
	if out.TravelMode == "" {
		out.TravelMode = string(ports.TravelModeDrive)
	}

	for i, w := range req.Intermediates {
		ww, err := toWireWaypoint(w)
		if err != nil {
			return computeRoutesRequest{}, fmt.Errorf("intermediate %d: %w", i, err)
		}
		out.Intermediates = append(out.Intermediates, ww)
	}

	switch ports.TravelMode(out.TravelMode) {
	case ports.TravelModeDrive, ports.TravelModeTwoWheeler:
		out.RoutingPreference = string(req.RoutingPreference)
	}

	return out, nil
}

// ParseDurationSeconds converts a protobuf duration string such as "3600s" or "12.5s" to whole seconds.
func ParseDurationSeconds(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if !strings.HasSuffix(s, "s") {
		return 0, fmt.Errorf("parse duration %q: missing seconds suffix", s)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("parse duration %q: negative", s)
	}
	return int(math.Round(d.Seconds())), nil
}

func fromWireRoute(r wireRoute) (*ports.ComputedRoute, error) {
	seconds, err := ParseDurationSeconds(r.Duration)
	if err != nil {
		return nil, fmt.Errorf("route: %w", err)
	}

	out := &ports.ComputedRoute{
		DistanceMeters:                     r.DistanceMeters,
		DurationSeconds:                    seconds,
		EncodedPolyline:                    r.Polyline.EncodedPolyline,
		Legs:                               make([]domain.RouteLeg, 0, len(r.Legs)),
		OptimizedIntermediateWaypointIndex: r.OptimizedIntermediateWaypointIndex,
		Warnings:                           r.Warnings,
	}
	for i, l := range r.Legs {
		legSeconds, err := ParseDurationSeconds(l.Duration)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		out.Legs = append(out.Legs, domain.RouteLeg{
			DistanceMeters:  l.DistanceMeters,
			DurationSeconds: legSeconds,
			EncodedPolyline: l.Polyline.EncodedPolyline,
		})
	}
	return out, nil
}
