package services

import (
	"context"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/apperr"
	"route-planning-service/internal/platform/metrics"
	"route-planning-service/internal/platform/obs"
	"route-planning-service/internal/ports"

	"go.uber.org/zap"
)

type GenerateRoutesInput struct {
	BookingIDs            []string                `json:"booking_ids,omitempty"`
	Bookings              []*domain.Booking       `json:"bookings,omitempty"`
	DepartureLocation     *domain.Coordinates     `json:"departure_location,omitempty"`
	ReturnToStart         bool                    `json:"return_to_start,omitempty"`
	TravelMode            ports.TravelMode        `json:"travel_mode,omitempty"`
	RoutingPreference     ports.RoutingPreference `json:"routing_preference,omitempty"`
	OptimizeWaypointOrder *bool                   `json:"optimize_waypoint_order,omitempty"`
}

// Optimized visiting order for one route+service group.
type OptimizedBatch struct {
	BatchIndex       int               `json:"batch_index"`
	RouteID          string            `json:"route_id"`
	VehicleID        string            `json:"vehicle_id"`
	ServiceID        string            `json:"service_id"`
	Bookings         []*domain.Booking `json:"bookings"`
	OptimizedOrder   []int             `json:"optimized_order"`
	DistanceMeters   int               `json:"distance_meters"`
	DurationSeconds  int               `json:"duration_seconds"`
	EncodedPolyline  string            `json:"encoded_polyline,omitempty"`
	Legs             []domain.RouteLeg `json:"legs"`
	PlannedStartTime string            `json:"planned_start_time,omitempty"`
	PlannedEndTime   string            `json:"planned_end_time,omitempty"`
	Warnings         []string          `json:"warnings,omitempty"`
}

type BatchError struct {
	BatchIndex int    `json:"batch_index"`
	VehicleID  string `json:"vehicle_id"`
	ServiceID  string `json:"service_id"`
	Error      string `json:"error"`
}

type GenerateSummary struct {
	TotalBatches         int `json:"total_batches"`
	TotalBookings        int `json:"total_bookings"`
	SuccessfulBatches    int `json:"successful_batches"`
	FailedBatches        int `json:"failed_batches"`
	TotalDistanceMeters  int `json:"total_distance_meters"`
	TotalDurationSeconds int `json:"total_duration_seconds"`
}

type GenerateResult struct {
	Batches []OptimizedBatch `json:"batches"`
	Summary GenerateSummary  `json:"summary"`
	Errors  []BatchError     `json:"errors,omitempty"`
}

func validateGenerateInput(in GenerateRoutesInput) error {
	hasIDs, hasBookings := in.BookingIDs != nil, in.Bookings != nil
	switch {
	case hasIDs && hasBookings:
		return apperr.New(apperr.KindInvalidInput, "Cannot provide both bookingIds and bookings")
	case !hasIDs && !hasBookings:
		return apperr.New(apperr.KindInvalidInput, "Must provide either bookingIds or bookings")
	case len(in.BookingIDs) == 0 && len(in.Bookings) == 0:
		return apperr.New(apperr.KindInvalidInput, "No bookings provided")
	}
	if !validTravelMode(in.TravelMode) {
		return apperr.Newf(apperr.KindInvalidInput, "Unknown travel mode %q", in.TravelMode)
	}
	if !validPreference(in.RoutingPreference) {
		return apperr.Newf(apperr.KindInvalidInput, "Unknown routing preference %q", in.RoutingPreference)
	}
	optimize := in.OptimizeWaypointOrder == nil || *in.OptimizeWaypointOrder
	if err := validateOptimization(in.RoutingPreference, optimize); err != nil {
		return err
	}
	return validateDeparture(in.DepartureLocation)
}

// Fail on the first requested id the store did not return.
func requireAllFound(requested []string, found []*domain.Booking) error {
	have := make(map[string]struct{}, len(found))
	for _, b := range found {
		have[b.ID] = struct{}{}
	}
	for _, id := range requested {
		if _, ok := have[id]; !ok {
			return apperr.New(apperr.KindNotFound, "Failed to fetch booking "+id).WithDetail("bookingId", id)
		}
	}
	return nil
}

// Group bookings that already carry a route by route and service, in first-seen order.
// Bookings without a route or without usable coordinates are skipped.
func groupByRouteAndService(bookings []*domain.Booking) []domain.Batch {
	index := make(map[string]int)
	var batches []domain.Batch
	for _, b := range bookings {
		if b == nil || b.RouteID == "" {
			continue
		}
		if _, ok := ResolveCoordinates(b); !ok {
			continue
		}
		key := b.RouteID + ":" + b.ServiceID
		i, ok := index[key]
		if !ok {
			i = len(batches)
			index[key] = i
			batches = append(batches, domain.Batch{VehicleID: b.VehicleID, ServiceID: b.ServiceID})
		}
		batches[i].Bookings = append(batches[i].Bookings, b)
	}
	return batches
}

// Re-optimize the visiting order of bookings that already belong to routes.
//
// Nothing is persisted. Each route+service group is one oracle call; failed groups
// are listed in Errors and the rest still run.
func (p *Planner) GenerateOptimizedRoutes(ctx context.Context, in GenerateRoutesInput) (_ *GenerateResult, err error) {
	defer obs.Time(ctx, "planner.GenerateOptimizedRoutes")(&err)

	if err := validateGenerateInput(in); err != nil {
		return nil, err
	}

	bookings := in.Bookings
	if in.BookingIDs != nil {
		bookings, err = p.fetchAllBookings(ctx, ports.BookingFilter{IDs: in.BookingIDs})
		if err != nil {
			return nil, apperr.Wrap(apperr.KindFetchFailed, "Failed to fetch bookings", err)
		}
		if len(bookings) == 0 {
			return nil, apperr.New(apperr.KindNotFound, "No bookings found for the provided IDs")
		}
		if err := requireAllFound(in.BookingIDs, bookings); err != nil {
			return nil, err
		}
	}

	batches := groupByRouteAndService(bookings)
	if len(batches) == 0 {
		return nil, apperr.New(apperr.KindInvalidInput,
			"No valid batches created (bookings may be missing vehicle assignments or coordinates)")
	}

	opts := batchOptions{
		Departure:     in.DepartureLocation,
		ReturnToStart: in.ReturnToStart,
		TravelMode:    in.TravelMode,
		Preference:    in.RoutingPreference,
		Optimize:      true,
	}
	if opts.TravelMode == "" {
		opts.TravelMode = p.cfg.TravelMode
	}
	if opts.Preference == "" {
		opts.Preference = p.cfg.GenerationPreference
	}
	if in.OptimizeWaypointOrder != nil {
		opts.Optimize = *in.OptimizeWaypointOrder
	}

	res := &GenerateResult{Batches: []OptimizedBatch{}}
	res.Summary.TotalBatches = len(batches)
	res.Summary.TotalBookings = len(bookings)

	for i, batch := range batches {
		opt, err := p.optimizeBatch(ctx, batch.Bookings, opts)
		if err != nil {
			p.logger.Warn("batch optimization failed",
				zap.Int("batch", i),
				zap.String("vehicle_id", batch.VehicleID),
				zap.String("service_id", batch.ServiceID),
				zap.Error(err),
			)
			metrics.PlanningBatches.WithLabelValues("generate", "optimization_failed").Inc()
			res.Summary.FailedBatches++
			res.Errors = append(res.Errors, BatchError{
				BatchIndex: i,
				VehicleID:  batch.VehicleID,
				ServiceID:  batch.ServiceID,
				Error:      errMessage(err),
			})
			continue
		}

		metrics.PlanningBatches.WithLabelValues("generate", "succeeded").Inc()
		res.Summary.SuccessfulBatches++
		res.Summary.TotalDistanceMeters += opt.Route.DistanceMeters
		res.Summary.TotalDurationSeconds += opt.Route.DurationSeconds

		order := opt.OptimizedOrder
		if order == nil {
			order = []int{}
		}
		res.Batches = append(res.Batches, OptimizedBatch{
			BatchIndex:       i,
			RouteID:          batch.Bookings[0].RouteID,
			VehicleID:        batch.VehicleID,
			ServiceID:        batch.ServiceID,
			Bookings:         opt.Ordered,
			OptimizedOrder:   order,
			DistanceMeters:   opt.Route.DistanceMeters,
			DurationSeconds:  opt.Route.DurationSeconds,
			EncodedPolyline:  opt.Route.EncodedPolyline,
			Legs:             opt.Route.Legs,
			PlannedStartTime: opt.Timing.PlannedStart,
			PlannedEndTime:   opt.Timing.PlannedEnd,
			Warnings:         opt.Route.Warnings,
		})
	}

	return res, nil
}
