package services

import (
	"context"
	"fmt"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/apperr"
	"route-planning-service/internal/ports"

	"go.uber.org/zap"
)

// Reasons recorded for bookings left out of a plan.
const (
	ReasonMissingCoordinates = "missing coordinates"
	ReasonIncompatible       = "service not supported by any available vehicle"
	ReasonNoVehicle          = "no available vehicle"
	ReasonNotAllocated       = "not allocated to any vehicle"
	ReasonOptimizationFailed = "route optimization failed"
	ReasonPersistFailed      = "route could not be saved"
)

// Explicit planning defaults. Tests and configuration override them field by field.
type PlannerConfig struct {
	MaxStopsPerRoute      int
	DefaultServiceMinutes int
	DayStartTime          string
	OptimizationScore     float64
	OptimizationType      string
	CostCurrency          string
	FetchPageSize         int
	TravelMode            ports.TravelMode
	PlanningPreference    ports.RoutingPreference
	GenerationPreference  ports.RoutingPreference
	PolylineQuality       string
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		MaxStopsPerRoute:      15,
		DefaultServiceMinutes: 30,
		DayStartTime:          "08:00:00",
		OptimizationScore:     85,
		OptimizationType:      "balanced",
		CostCurrency:          "USD",
		FetchPageSize:         500,
		TravelMode:            ports.TravelModeDrive,
		PlanningPreference:    ports.TrafficUnaware,
		GenerationPreference:  ports.TrafficAware,
		PolylineQuality:       ports.PolylineHighQuality,
	}
}

// Collaborators injected into the Planner.
type PlannerDeps struct {
	Bookings  ports.BookingStore
	Vehicles  ports.VehicleStore
	Locations ports.LocationStore
	Routes    ports.RouteStore
	Oracle    ports.RoutingOracle
	Logger    *zap.Logger
}

// Planner sequences resolution, matching, allocation, clustering, optimization,
// timing and persistence for the three planning operations.
//
// Batches within one invocation run one after another. Nothing guards against two
// concurrent invocations claiming the same unassigned booking.
type Planner struct {
	bookings  ports.BookingStore
	vehicles  ports.VehicleStore
	locations ports.LocationStore
	routes    *RouteService
	oracle    ports.RoutingOracle
	cfg       PlannerConfig
	timing    TimingReconciler
	logger    *zap.Logger
}

func NewPlanner(deps PlannerDeps, cfg PlannerConfig) *Planner {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{
		bookings:  deps.Bookings,
		vehicles:  deps.Vehicles,
		locations: deps.Locations,
		routes:    NewRouteService(deps.Routes, deps.Bookings, logger),
		oracle:    deps.Oracle,
		cfg:       cfg,
		timing: TimingReconciler{
			DefaultServiceMinutes: cfg.DefaultServiceMinutes,
			DayStartTime:          cfg.DayStartTime,
		},
		logger: logger,
	}
}

// Routes exposes the persistence service the planner writes through.
func (p *Planner) Routes() *RouteService { return p.routes }

// A booking left out of a plan and why.
type UnassignedBooking struct {
	Booking *domain.Booking `json:"booking"`
	Reason  string          `json:"reason"`
}

func unassigned(bookings []*domain.Booking, reason string) []UnassignedBooking {
	out := make([]UnassignedBooking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, UnassignedBooking{Booking: b, Reason: reason})
	}
	return out
}

// Options for one oracle round trip.
type batchOptions struct {
	Departure     *domain.Coordinates
	Destination   *domain.Coordinates
	ReturnToStart bool
	TravelMode    ports.TravelMode
	Preference    ports.RoutingPreference
	Optimize      bool
}

type optimizedBatch struct {
	Plan           *WaypointPlan
	Route          *ports.ComputedRoute
	Ordered        []*domain.Booking
	OptimizedOrder []int
	Timing         Timing
	Stops          []StopTime
}

// Map a batch to waypoints, call the oracle and reconcile order and timing.
func (p *Planner) optimizeBatch(ctx context.Context, bookings []*domain.Booking, opts batchOptions) (*optimizedBatch, error) {
	plan, err := BuildWaypoints(bookings, WaypointOptions{
		Departure:     opts.Departure,
		Destination:   opts.Destination,
		ReturnToStart: opts.ReturnToStart,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindOptimizationFailed, "Failed to build waypoints", err)
	}

	route, err := p.oracle.ComputeRoute(ctx, ports.ComputeRouteRequest{
		Origin:                plan.Origin,
		Destination:           plan.Destination,
		Intermediates:         plan.Intermediates,
		TravelMode:            opts.TravelMode,
		RoutingPreference:     opts.Preference,
		OptimizeWaypointOrder: opts.Optimize,
		PolylineQuality:       p.cfg.PolylineQuality,
	})
	if err != nil {
		return nil, err
	}
	if route == nil {
		return nil, apperr.New(apperr.KindOracleZeroResults, "No routes found for the provided waypoints")
	}

	var order []int
	if opts.Optimize {
		order = route.OptimizedIntermediateWaypointIndex
	}
	ordered := plan.VisitOrder(bookings, order)

	legs := make([]int, 0, len(route.Legs))
	for _, l := range route.Legs {
		legs = append(legs, l.DurationSeconds)
	}
	in := TimingInput{
		Stops:                ordered,
		LegSeconds:           legs,
		TotalDurationSeconds: route.DurationSeconds,
		DepartsFromFirstStop: !plan.HasCustomDeparture,
		ReturnToStart:        plan.ReturnToStart,
	}
	timing := p.timing.Reconcile(in)

	return &optimizedBatch{
		Plan:           plan,
		Route:          route,
		Ordered:        ordered,
		OptimizedOrder: order,
		Timing:         timing,
		Stops:          p.timing.ScheduleStops(in, timing.PlannedStart),
	}, nil
}

// Page through the booking store until a short page is returned.
func (p *Planner) fetchAllBookings(ctx context.Context, filter ports.BookingFilter) ([]*domain.Booking, error) {
	size := p.cfg.FetchPageSize
	if size <= 0 {
		size = 500
	}
	filter.Limit = size

	var all []*domain.Booking
	for offset := 0; ; offset += size {
		filter.Offset = offset
		page, err := p.bookings.FetchBookings(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Bookings...)
		if len(page.Bookings) < size {
			return all, nil
		}
	}
}

func (p *Planner) locationCoordinates(ctx context.Context, id string) (*domain.Coordinates, *domain.Location) {
	if id == "" {
		return nil, nil
	}
	loc, err := p.locations.FetchLocationByID(ctx, id)
	if err != nil {
		p.logger.Warn("location lookup failed", zap.String("location_id", id), zap.Error(err))
		return nil, nil
	}
	c, ok := loc.Coordinates()
	if !ok {
		p.logger.Warn("location has no usable coordinates", zap.String("location_id", id))
		return nil, loc
	}
	return &c, loc
}

func errMessage(err error) string {
	return apperr.From(err).Message
}

func validPreference(p ports.RoutingPreference) bool {
	switch p {
	case "", ports.TrafficUnaware, ports.TrafficAware, ports.TrafficAwareOptimal:
		return true
	}
	return false
}

func validTravelMode(m ports.TravelMode) bool {
	switch m {
	case "", ports.TravelModeDrive, ports.TravelModeBicycle, ports.TravelModeWalk, ports.TravelModeTwoWheeler:
		return true
	}
	return false
}

// The Routes API refuses waypoint optimization under TRAFFIC_AWARE_OPTIMAL.
func validateOptimization(pref ports.RoutingPreference, optimize bool) error {
	if optimize && pref == ports.TrafficAwareOptimal {
		return apperr.Newf(apperr.KindInvalidInput,
			"Routing preference %s cannot be combined with waypoint order optimization", pref).
			WithDetail("field", "routingPreference")
	}
	return nil
}

func validateDeparture(c *domain.Coordinates) error {
	if c != nil && !c.Valid() {
		return apperr.New(apperr.KindInvalidInput, "Departure location has invalid coordinates").
			WithDetail("latitude", c.Lat).
			WithDetail("longitude", c.Lon)
	}
	return nil
}

func batchLabel(index int, vehicleID string) string {
	return fmt.Sprintf("%d (vehicle %s)", index+1, vehicleID)
}
