package handlers

import (
	"net/http"
	"route-planning-service/internal/api/dto"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/ports"
	"route-planning-service/internal/services"
)

// PlanHandler exposes the planning operations: plan, preview and optimize.
type PlanHandler struct {
	Planner *services.Planner
}

func toPlanInput(req dto.PlanRoutesRequest) (services.PlanRoutesInput, error) {
	departure, err := toCoordinates(req.DepartureLocation)
	if err != nil {
		return services.PlanRoutesInput{}, err
	}

	in := services.PlanRoutesInput{
		RouteDate:         req.RouteDate,
		ServiceID:         req.ServiceID,
		MaxStopsPerRoute:  req.MaxStopsPerRoute,
		DepartureLocation: departure,
		ReturnToStart:     req.ReturnToStart,
		RoutingPreference: ports.RoutingPreference(req.RoutingPreference),
	}
	for _, a := range req.VehicleAllocations {
		in.VehicleAllocations = append(in.VehicleAllocations, domain.VehicleAllocation{
			VehicleID:       a.VehicleID,
			BookingCount:    a.BookingCount,
			StartLocationID: a.StartLocationID,
			EndLocationID:   a.EndLocationID,
		})
	}
	return in, nil
}

func (h *PlanHandler) decodePlan(w http.ResponseWriter, r *http.Request) (services.PlanRoutesInput, bool) {
	var req dto.PlanRoutesRequest
	if !decodeStrict(w, r, &req) {
		return services.PlanRoutesInput{}, false
	}
	in, err := toPlanInput(req)
	if err != nil {
		writeAppError(w, r, err)
		return services.PlanRoutesInput{}, false
	}
	return in, true
}

// Plan creates routes for all confirmed, unassigned bookings of a date.
// Per-batch failures are reported in the body; the status stays 200.
func (h *PlanHandler) Plan(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	in, ok := h.decodePlan(w, r)
	if !ok {
		return
	}

	res, err := h.Planner.PlanRoutes(r.Context(), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *PlanHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	in, ok := h.decodePlan(w, r)
	if !ok {
		return
	}

	res, err := h.Planner.PreviewRoutePlan(r.Context(), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// Optimize orders already-assigned bookings per route and service without persisting anything.
func (h *PlanHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.OptimizeRoutesRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	departure, err := toCoordinates(req.DepartureLocation)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	res, err := h.Planner.GenerateOptimizedRoutes(r.Context(), services.GenerateRoutesInput{
		BookingIDs:            req.BookingIDs,
		Bookings:              req.Bookings,
		DepartureLocation:     departure,
		ReturnToStart:         req.ReturnToStart,
		TravelMode:            ports.TravelMode(req.TravelMode),
		RoutingPreference:     ports.RoutingPreference(req.RoutingPreference),
		OptimizeWaypointOrder: req.OptimizeWaypointOrder,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}
