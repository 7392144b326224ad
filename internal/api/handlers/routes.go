package handlers

import (
	"net/http"
	"route-planning-service/internal/api/dto"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/apperr"
	"route-planning-service/internal/services"
	"strings"
)

// RouteHandler exposes route records and booking detachment.
type RouteHandler struct {
	Routes *services.RouteService
}

func (h *RouteHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.CreateRouteRequest
	if !decodeStrict(w, r, &req) {
		return
	}

	route, err := h.Routes.CreateRoute(r.Context(), services.CreateRouteInput{
		RouteName:               req.RouteName,
		RouteCode:               req.RouteCode,
		VehicleID:               req.VehicleID,
		RouteDate:               req.RouteDate,
		PlannedStartTime:        req.PlannedStartTime,
		PlannedEndTime:          req.PlannedEndTime,
		TotalDistanceKm:         req.TotalDistanceKm,
		TotalDurationMinutes:    req.TotalDurationMinutes,
		TotalServiceTimeMinutes: req.TotalServiceTimeMinutes,
		TotalTravelTimeMinutes:  req.TotalTravelTimeMinutes,
		OptimizationType:        req.OptimizationType,
		OptimizationScore:       req.OptimizationScore,
		Status:                  domain.RouteStatus(req.Status),
		StopSequence:            req.StopSequence,
		Geometry:                req.RouteGeometry,
		CostCurrency:            req.CostCurrency,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.RouteResponse{Route: route})
}

// Route serves GET and DELETE on /routes/{id}.
func (h *RouteHandler) Route(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, apperr.KindInvalidInput, "route id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		route, err := h.Routes.GetRoute(r.Context(), id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, dto.RouteResponse{Route: route})
	case http.MethodDelete:
		if err := h.Routes.DeleteRoute(r.Context(), id); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, dto.DeleteResponse{ID: id, Deleted: true})
	default:
		w.Header().Set("Allow", "GET, DELETE")
		writeError(w, r, http.StatusMethodNotAllowed, apperr.KindInvalidInput, "method not allowed")
	}
}

// RemoveBooking detaches a booking from its route.
func (h *RouteHandler) RemoveBooking(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodDelete) {
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if err := h.Routes.RemoveBookingFromRoute(r.Context(), id); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
