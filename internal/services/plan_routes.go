package services

import (
	"context"
	"fmt"
	"math"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/apperr"
	"route-planning-service/internal/platform/metrics"
	"route-planning-service/internal/platform/obs"
	"route-planning-service/internal/ports"
	"time"

	"go.uber.org/zap"
)

const noBookingsWarning = "No confirmed bookings found for the specified date"

type PlanRoutesInput struct {
	RouteDate          string                     `json:"route_date"`
	ServiceID          string                     `json:"service_id,omitempty"`
	MaxStopsPerRoute   int                        `json:"max_stops_per_route,omitempty"`
	DepartureLocation  *domain.Coordinates        `json:"departure_location,omitempty"`
	ReturnToStart      *bool                      `json:"return_to_start,omitempty"`
	RoutingPreference  ports.RoutingPreference    `json:"routing_preference,omitempty"`
	VehicleAllocations []domain.VehicleAllocation `json:"vehicle_allocations,omitempty"`
}

type PlanSummary struct {
	TotalBookings        int     `json:"total_bookings"`
	AssignedBookings     int     `json:"assigned_bookings"`
	RoutesCreated        int     `json:"routes_created"`
	VehiclesUsed         int     `json:"vehicles_used"`
	TotalDistanceKm      float64 `json:"total_distance_km"`
	TotalDurationMinutes int     `json:"total_duration_minutes"`
}

type PlanRoutesResult struct {
	Routes             []*domain.Route     `json:"routes"`
	UnassignedBookings []UnassignedBooking `json:"unassigned_bookings"`
	Summary            PlanSummary         `json:"summary"`
	Warnings           []string            `json:"warnings"`
}

// Bookings that survived filtering, plus everything set aside on the way.
type candidatePool struct {
	total        int
	routable     []*domain.Booking
	unassignable []UnassignedBooking
	vehicles     []*domain.Vehicle
	warnings     []string
}

func (p *Planner) normalizePlanInput(in *PlanRoutesInput) error {
	if in.RouteDate == "" {
		return apperr.New(apperr.KindInvalidInput, "Route date is required").WithDetail("field", "routeDate")
	}
	if _, err := time.Parse(dateLayout, in.RouteDate); err != nil {
		return apperr.New(apperr.KindInvalidInput, "Route date must be formatted as YYYY-MM-DD").
			WithDetail("field", "routeDate").
			WithDetail("value", in.RouteDate)
	}
	if in.MaxStopsPerRoute < 0 {
		return apperr.New(apperr.KindInvalidInput, "Max stops per route must be positive").WithDetail("field", "maxStopsPerRoute")
	}
	if in.MaxStopsPerRoute == 0 {
		in.MaxStopsPerRoute = p.cfg.MaxStopsPerRoute
	}
	if !validPreference(in.RoutingPreference) {
		return apperr.Newf(apperr.KindInvalidInput, "Unknown routing preference %q", in.RoutingPreference)
	}
	if in.RoutingPreference == "" {
		in.RoutingPreference = p.cfg.PlanningPreference
	}
	if err := validateOptimization(in.RoutingPreference, true); err != nil {
		return err
	}
	for i, a := range in.VehicleAllocations {
		if a.VehicleID == "" || a.BookingCount < 0 {
			return apperr.Newf(apperr.KindInvalidInput, "Invalid vehicle allocation at index %d", i)
		}
	}
	return validateDeparture(in.DepartureLocation)
}

// Fetch confirmed bookings for the date and sort them into routable and unassignable.
// Only store failures are returned as errors.
func (p *Planner) gatherCandidates(ctx context.Context, in PlanRoutesInput) (*candidatePool, error) {
	bookings, err := p.fetchAllBookings(ctx, ports.BookingFilter{
		ScheduledDateFrom: in.RouteDate,
		ScheduledDateTo:   in.RouteDate,
		Status:            domain.BookingConfirmed,
		ServiceID:         in.ServiceID,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFetchFailed, "Failed to fetch bookings", err)
	}

	pool := &candidatePool{total: len(bookings)}
	if len(bookings) == 0 {
		pool.warnings = append(pool.warnings, noBookingsWarning)
		return pool, nil
	}

	var missing, valid []*domain.Booking
	alreadyAssigned := 0
	for _, b := range bookings {
		if b.IsAssigned() {
			alreadyAssigned++
			continue
		}
		if _, ok := ResolveCoordinates(b); !ok {
			missing = append(missing, b)
			continue
		}
		valid = append(valid, b)
	}

	if len(missing) > 0 {
		pool.unassignable = append(pool.unassignable, unassigned(missing, ReasonMissingCoordinates)...)
		pool.warnings = append(pool.warnings, fmt.Sprintf("%d bookings missing coordinates", len(missing)))
	}
	if len(valid) == 0 {
		if alreadyAssigned > 0 {
			pool.warnings = append(pool.warnings, "All bookings with valid coordinates already have vehicles assigned")
		}
		return pool, nil
	}

	vehicles, err := p.vehicles.FetchVehicles(ctx, ports.VehicleFilter{Status: domain.VehicleAvailable})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFetchFailed, "Failed to fetch vehicles", err)
	}
	for _, v := range vehicles {
		if v.IsAvailable() {
			pool.vehicles = append(pool.vehicles, v)
		}
	}
	if len(pool.vehicles) == 0 {
		pool.warnings = append(pool.warnings, "No available vehicles found")
		pool.unassignable = append(pool.unassignable, unassigned(valid, ReasonNoVehicle)...)
		return pool, nil
	}

	match := MatchCompatibility(valid, pool.vehicles, in.ServiceID)
	if len(match.Incompatible) > 0 {
		pool.unassignable = append(pool.unassignable, unassigned(match.Incompatible, ReasonIncompatible)...)
		pool.warnings = append(pool.warnings,
			fmt.Sprintf("%d booking(s) have services not supported by any available vehicle", len(match.Incompatible)))
	}
	pool.routable = match.Compatible
	return pool, nil
}

// Plan routes for every unscheduled, confirmed booking on a date.
//
// Only invalid input and store fetch failures fail the call. Problems with single
// batches are reported through warnings and unassigned bookings while the
// remaining batches are still attempted.
func (p *Planner) PlanRoutes(ctx context.Context, in PlanRoutesInput) (_ *PlanRoutesResult, err error) {
	defer obs.Time(ctx, "planner.PlanRoutes")(&err)

	if err := p.normalizePlanInput(&in); err != nil {
		return nil, err
	}

	pool, err := p.gatherCandidates(ctx, in)
	if err != nil {
		p.logger.Error("plan routes: fetch failed", zap.String("route_date", in.RouteDate), zap.Error(err))
		return nil, err
	}

	res := &PlanRoutesResult{
		Routes:             []*domain.Route{},
		UnassignedBookings: pool.unassignable,
		Warnings:           pool.warnings,
	}

	if len(pool.routable) > 0 {
		p.planBatches(ctx, in, pool, res)
	}

	if res.UnassignedBookings == nil {
		res.UnassignedBookings = []UnassignedBooking{}
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}

	vehiclesUsed := make(map[string]struct{})
	for _, r := range res.Routes {
		vehiclesUsed[r.VehicleID] = struct{}{}
		res.Summary.TotalDistanceKm += r.TotalDistanceKm
		res.Summary.TotalDurationMinutes += r.TotalDurationMinutes
	}
	res.Summary.TotalDistanceKm = math.Round(res.Summary.TotalDistanceKm*1000) / 1000
	res.Summary.TotalBookings = pool.total
	res.Summary.AssignedBookings = pool.total - len(res.UnassignedBookings)
	res.Summary.RoutesCreated = len(res.Routes)
	res.Summary.VehiclesUsed = len(vehiclesUsed)

	p.logger.Info("route planning finished",
		zap.String("route_date", in.RouteDate),
		zap.Int("total_bookings", res.Summary.TotalBookings),
		zap.Int("routes_created", res.Summary.RoutesCreated),
		zap.Int("unassigned", len(res.UnassignedBookings)),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res, nil
}

func (p *Planner) planBatches(ctx context.Context, in PlanRoutesInput, pool *candidatePool, res *PlanRoutesResult) {
	allocations := in.VehicleAllocations
	if len(allocations) > 0 {
		CheckAllocation(allocations, len(pool.routable), p.logger)
	} else {
		allocations = DefaultAllocation(pool.routable, pool.vehicles, in.MaxStopsPerRoute)
	}

	byID := make(map[string]*domain.Vehicle, len(pool.vehicles))
	for _, v := range pool.vehicles {
		byID[v.ID] = v
	}

	returnToStart := true
	if in.ReturnToStart != nil {
		returnToStart = *in.ReturnToStart
	}

	remaining := append([]*domain.Booking(nil), pool.routable...)
	claimed := 0
	batchIndex := 0

	for _, alloc := range allocations {
		vehicle, ok := byID[alloc.VehicleID]
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Vehicle %s not found or not available", alloc.VehicleID))
			continue
		}

		var taken []*domain.Booking
		taken, remaining = takeSupported(remaining, vehicle, alloc.BookingCount)
		if len(taken) == 0 {
			continue
		}
		claimed += len(taken)

		for _, batch := range ClusterBookings(taken, in.MaxStopsPerRoute) {
			p.planBatch(ctx, in, vehicle, alloc, batch, returnToStart, batchIndex, res)
			batchIndex++
		}
	}

	if claimed == 0 {
		res.Warnings = append(res.Warnings, "No bookings could be matched to available vehicles")
	}
	if len(remaining) > 0 {
		res.UnassignedBookings = append(res.UnassignedBookings, unassigned(remaining, ReasonNotAllocated)...)
	}
}

// Take up to n bookings the vehicle can serve, keeping input order for both halves.
func takeSupported(pool []*domain.Booking, v *domain.Vehicle, n int) (taken, rest []*domain.Booking) {
	rest = make([]*domain.Booking, 0, len(pool))
	for _, b := range pool {
		if len(taken) < n && v.Supports(b.ServiceID) {
			taken = append(taken, b)
			continue
		}
		rest = append(rest, b)
	}
	return taken, rest
}

// Departure priority: request point, allocation start, vehicle primary location, vehicle home.
func (p *Planner) resolveDeparture(ctx context.Context, in PlanRoutesInput, v *domain.Vehicle, alloc domain.VehicleAllocation) *domain.Coordinates {
	if in.DepartureLocation != nil {
		c := *in.DepartureLocation
		return &c
	}

	locationID := alloc.StartLocationID
	if locationID == "" {
		locationID = v.PrimaryLocationID()
	}
	if locationID == "" {
		locationID = v.HomeLocationID
	}
	c, _ := p.locationCoordinates(ctx, locationID)
	return c
}

func (p *Planner) planBatch(
	ctx context.Context,
	in PlanRoutesInput,
	vehicle *domain.Vehicle,
	alloc domain.VehicleAllocation,
	batch []*domain.Booking,
	returnToStart bool,
	batchIndex int,
	res *PlanRoutesResult,
) {
	log := p.logger.With(zap.Int("batch", batchIndex+1), zap.String("vehicle_id", vehicle.ID))

	opts := batchOptions{
		Departure:     p.resolveDeparture(ctx, in, vehicle, alloc),
		ReturnToStart: returnToStart,
		TravelMode:    p.cfg.TravelMode,
		Preference:    in.RoutingPreference,
		Optimize:      true,
	}
	if alloc.EndLocationID != "" {
		opts.ReturnToStart = false
		opts.Destination, _ = p.locationCoordinates(ctx, alloc.EndLocationID)
	}

	opt, err := p.optimizeBatch(ctx, batch, opts)
	if err != nil {
		log.Warn("batch optimization failed", zap.Int("bookings", len(batch)), zap.Error(err))
		metrics.PlanningBatches.WithLabelValues("plan", "optimization_failed").Inc()
		res.Warnings = append(res.Warnings, fmt.Sprintf("Failed to optimize route for batch %s: %s", batchLabel(batchIndex, vehicle.ID), errMessage(err)))
		res.UnassignedBookings = append(res.UnassignedBookings, unassigned(batch, ReasonOptimizationFailed)...)
		return
	}

	route, err := p.persistPlannedRoute(ctx, in.RouteDate, vehicle, opt, len(res.Routes)+1)
	if err != nil {
		log.Warn("batch route persistence failed", zap.Error(err))
		metrics.PlanningBatches.WithLabelValues("plan", "persist_failed").Inc()
		res.Warnings = append(res.Warnings, fmt.Sprintf("Failed to create route for batch %s: %s", batchLabel(batchIndex, vehicle.ID), errMessage(err)))
		res.UnassignedBookings = append(res.UnassignedBookings, unassigned(batch, ReasonPersistFailed)...)
		return
	}

	scheduled := domain.BookingScheduled
	for _, st := range opt.Stops {
		update := ports.BookingUpdate{
			ID:        st.BookingID,
			VehicleID: &vehicle.ID,
			RouteID:   &route.ID,
			Status:    &scheduled,
			StopOrder: &st.StopOrder,
		}
		if !st.Fixed {
			start, end := st.StartTime, st.EndTime
			update.ScheduledStartTime = &start
			update.ScheduledEndTime = &end
		}
		if err := p.bookings.UpdateBooking(ctx, update); err != nil {
			log.Warn("booking update failed", zap.String("booking_id", st.BookingID), zap.Error(err))
			res.Warnings = append(res.Warnings, fmt.Sprintf("Failed to update booking %s: %s", st.BookingID, errMessage(err)))
		}
	}

	metrics.PlanningBatches.WithLabelValues("plan", "succeeded").Inc()
	metrics.RoutesCreated.Inc()
	res.Routes = append(res.Routes, route)
}

func (p *Planner) persistPlannedRoute(ctx context.Context, routeDate string, vehicle *domain.Vehicle, opt *optimizedBatch, ordinal int) (*domain.Route, error) {
	serviceMinutes := 0
	for _, b := range opt.Ordered {
		serviceMinutes += b.ServiceMinutes(p.cfg.DefaultServiceMinutes)
	}
	travelMinutes := int(math.Ceil(float64(opt.Route.DurationSeconds) / 60))
	distanceKm := float64(opt.Route.DistanceMeters) / 1000
	duration := travelMinutes + serviceMinutes
	score := p.cfg.OptimizationScore

	return p.routes.CreateRoute(ctx, CreateRouteInput{
		RouteName:               fmt.Sprintf("Route %d - %s", ordinal, routeDate),
		RouteCode:               p.routes.NextRouteCode(ctx, routeDate),
		VehicleID:               vehicle.ID,
		RouteDate:               routeDate,
		PlannedStartTime:        opt.Timing.PlannedStart,
		PlannedEndTime:          opt.Timing.PlannedEnd,
		TotalDistanceKm:         &distanceKm,
		TotalDurationMinutes:    &duration,
		TotalServiceTimeMinutes: serviceMinutes,
		TotalTravelTimeMinutes:  travelMinutes,
		TotalStops:              len(opt.Ordered),
		OptimizationType:        p.cfg.OptimizationType,
		OptimizationScore:       &score,
		Status:                  domain.RoutePlanned,
		StopSequence:            domain.BookingIDs(opt.Ordered),
		Geometry: domain.RouteGeometry{
			EncodedPolyline: opt.Route.EncodedPolyline,
			Legs:            opt.Route.Legs,
		},
		CostCurrency: p.cfg.CostCurrency,
	})
}
