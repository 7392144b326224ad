package services

import (
	"context"
	"fmt"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/apperr"
	"route-planning-service/internal/platform/obs"
	"route-planning-service/internal/ports"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Fields accepted when creating a route. Optional numeric totals are pointers so
// "absent" and "zero" stay distinguishable for validation.
type CreateRouteInput struct {
	RouteName               string               `json:"route_name"`
	RouteCode               string               `json:"route_code,omitempty"`
	VehicleID               string               `json:"vehicle_id,omitempty"`
	RouteDate               string               `json:"route_date"`
	PlannedStartTime        string               `json:"planned_start_time,omitempty"`
	PlannedEndTime          string               `json:"planned_end_time,omitempty"`
	TotalDistanceKm         *float64             `json:"total_distance_km,omitempty"`
	TotalDurationMinutes    *int                 `json:"total_duration_minutes,omitempty"`
	TotalServiceTimeMinutes int                  `json:"total_service_time_minutes,omitempty"`
	TotalTravelTimeMinutes  int                  `json:"total_travel_time_minutes,omitempty"`
	TotalStops              int                  `json:"total_stops,omitempty"`
	OptimizationType        string               `json:"optimization_type,omitempty"`
	OptimizationScore       *float64             `json:"optimization_score,omitempty"`
	Status                  domain.RouteStatus   `json:"status,omitempty"`
	StopSequence            []string             `json:"stop_sequence,omitempty"`
	Geometry                domain.RouteGeometry `json:"route_geometry"`
	CostCurrency            string               `json:"cost_currency,omitempty"`
}

// RouteService persists routes and keeps booking assignments consistent with them.
type RouteService struct {
	Routes   ports.RouteStore
	Bookings ports.BookingStore
	Logger   *zap.Logger
	Now      func() time.Time
	NewID    func() string
}

func NewRouteService(routes ports.RouteStore, bookings ports.BookingStore, logger *zap.Logger) *RouteService {
	return &RouteService{
		Routes:   routes,
		Bookings: bookings,
		Logger:   logger,
		Now:      time.Now,
		NewID:    uuid.NewString,
	}
}

func validateRouteInput(in CreateRouteInput) error {
	if strings.TrimSpace(in.RouteName) == "" {
		return apperr.New(apperr.KindInvalidInput, "Route name is required").WithDetail("field", "routeName")
	}
	if strings.TrimSpace(in.RouteDate) == "" {
		return apperr.New(apperr.KindInvalidInput, "Route date is required").WithDetail("field", "routeDate")
	}
	if _, err := time.Parse(dateLayout, in.RouteDate); err != nil {
		return apperr.New(apperr.KindInvalidInput, "Route date must be formatted as YYYY-MM-DD").
			WithDetail("field", "routeDate").
			WithDetail("value", in.RouteDate)
	}
	if in.OptimizationScore != nil && (*in.OptimizationScore < 0 || *in.OptimizationScore > 100) {
		return apperr.New(apperr.KindInvalidInput, "Optimization score must be between 0 and 100").
			WithDetail("field", "optimizationScore").
			WithDetail("value", *in.OptimizationScore)
	}
	if in.TotalDistanceKm != nil && *in.TotalDistanceKm < 0 {
		return apperr.New(apperr.KindInvalidInput, "Total distance cannot be negative").
			WithDetail("field", "totalDistanceKm").
			WithDetail("value", *in.TotalDistanceKm)
	}
	if in.TotalDurationMinutes != nil && *in.TotalDurationMinutes < 0 {
		return apperr.New(apperr.KindInvalidInput, "Total duration cannot be negative").
			WithDetail("field", "totalDurationMinutes").
			WithDetail("value", *in.TotalDurationMinutes)
	}
	if in.Status != "" && !in.Status.Valid() {
		return apperr.Newf(apperr.KindInvalidInput, "Unknown route status %q", in.Status).WithDetail("field", "status")
	}
	return nil
}

// Validate and store a route, returning the stored record.
func (s *RouteService) CreateRoute(ctx context.Context, in CreateRouteInput) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "routes.CreateRoute")(&err)

	if err := validateRouteInput(in); err != nil {
		return nil, err
	}

	route := &domain.Route{
		ID:                      s.NewID(),
		RouteName:               strings.TrimSpace(in.RouteName),
		RouteCode:               in.RouteCode,
		VehicleID:               in.VehicleID,
		RouteDate:               in.RouteDate,
		PlannedStartTime:        in.PlannedStartTime,
		PlannedEndTime:          in.PlannedEndTime,
		TotalServiceTimeMinutes: in.TotalServiceTimeMinutes,
		TotalTravelTimeMinutes:  in.TotalTravelTimeMinutes,
		TotalStops:              in.TotalStops,
		OptimizationType:        in.OptimizationType,
		OptimizationScore:       in.OptimizationScore,
		Status:                  in.Status,
		StopSequence:            append([]string(nil), in.StopSequence...),
		Geometry:                in.Geometry,
		CostCurrency:            in.CostCurrency,
		CreatedAt:               s.Now().UTC(),
	}
	if in.TotalDistanceKm != nil {
		route.TotalDistanceKm = *in.TotalDistanceKm
	}
	if in.TotalDurationMinutes != nil {
		route.TotalDurationMinutes = *in.TotalDurationMinutes
	}
	if route.Status == "" {
		route.Status = domain.RouteDraft
	}
	if route.TotalStops == 0 {
		route.TotalStops = len(route.StopSequence)
	}

	stored, err := s.Routes.InsertRoute(ctx, route)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistFailed, "Failed to create route", err)
	}

	s.Logger.Info("route created",
		zap.String("route_id", stored.ID),
		zap.String("route_code", stored.RouteCode),
		zap.Int("stops", stored.TotalStops),
	)
	return stored, nil
}

func (s *RouteService) GetRoute(ctx context.Context, id string) (*domain.Route, error) {
	route, err := s.Routes.GetRoute(ctx, id)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindFetchFailed, "Failed to fetch route", err)
	}
	return route, nil
}

// Soft-delete a route and release its bookings.
//
// Bookings named in the stop sequence are reset first, then every live booking on
// the same vehicle and date. Reset failures are logged and never block the tombstone.
func (s *RouteService) DeleteRoute(ctx context.Context, id string) (err error) {
	defer obs.Time(ctx, "routes.DeleteRoute")(&err)

	route, err := s.GetRoute(ctx, id)
	if err != nil {
		return err
	}

	log := s.Logger.With(zap.String("route_id", id))

	if len(route.StopSequence) > 0 {
		n, err := s.Bookings.ResetBookings(ctx, route.StopSequence)
		if err != nil {
			log.Warn("failed to reset bookings for deleted route", zap.Error(err))
		} else {
			log.Info("reset bookings for deleted route", zap.Int("count", n), zap.Strings("booking_ids", route.StopSequence))
		}
	}

	if route.VehicleID != "" && route.RouteDate != "" {
		n, err := s.Bookings.ResetBookingsForVehicleDate(ctx, route.VehicleID, route.RouteDate)
		if err != nil {
			log.Warn("failed fallback reset of bookings", zap.Error(err))
		} else if n > 0 {
			log.Info("fallback reset bookings", zap.Int("count", n))
		}
	}

	if err := s.Routes.TombstoneRoute(ctx, id); err != nil {
		return apperr.Wrap(apperr.KindPersistFailed, "Failed to delete route", err).WithDetail("routeId", id)
	}
	return nil
}

// Detach one booking from its route, close the gap in stop numbering and flag the
// route for recalculation.
func (s *RouteService) RemoveBookingFromRoute(ctx context.Context, bookingID string) (err error) {
	defer obs.Time(ctx, "routes.RemoveBookingFromRoute")(&err)

	b, err := s.Bookings.GetBooking(ctx, bookingID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return err
		}
		return apperr.Wrap(apperr.KindFetchFailed, "Failed to fetch booking", err)
	}
	if b.RouteID == "" {
		return nil
	}

	routeID := b.RouteID
	empty := ""
	if err := s.Bookings.UpdateBooking(ctx, ports.BookingUpdate{ID: b.ID, RouteID: &empty, ClearStopOrder: true}); err != nil {
		return apperr.Wrap(apperr.KindPersistFailed, "Failed to remove booking from route", err)
	}

	log := s.Logger.With(zap.String("booking_id", b.ID), zap.String("route_id", routeID))
	if b.StopOrder != nil {
		if err := s.Bookings.RenumberRouteStops(ctx, routeID, *b.StopOrder); err != nil {
			log.Warn("could not renumber route stops", zap.Error(err))
		}
	}
	if err := s.Routes.MarkStopRemoved(ctx, routeID); err != nil {
		log.Warn("failed to flag route for recalculation", zap.Error(err))
	}
	return nil
}

// Next free "RT-YYYYMMDD-NNN" code for the date. When existing codes cannot be
// read the suffix falls back to the current unix time plus a short random tag.
func (s *RouteService) NextRouteCode(ctx context.Context, routeDate string) string {
	prefix := "RT-" + strings.ReplaceAll(routeDate, "-", "") + "-"

	codes, err := s.Routes.ListRouteCodes(ctx, prefix)
	if err != nil {
		s.Logger.Warn("failed to list route codes", zap.String("prefix", prefix), zap.Error(err))
		return fmt.Sprintf("%s%d-%s", prefix, s.Now().Unix(), uuid.NewString()[:8])
	}

	highest := 0
	for _, c := range codes {
		n, err := strconv.Atoi(strings.TrimPrefix(c, prefix))
		if err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, highest+1)
}
