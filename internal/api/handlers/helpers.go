package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"route-planning-service/internal/api/dto"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/apperr"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code apperr.Kind, msg string) {
	writeJSON(w, r, status, dto.ErrorResponse{Error: apperr.New(code, msg)})
}

// writeAppError renders err with the status its kind maps to.
// Internal failures are logged and their cause is never sent to the client.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	ae := apperr.From(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("code", ae.Code()),
			zap.Error(err),
		)
	}
	writeJSON(w, r, status, dto.ErrorResponse{Error: ae})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, r, http.StatusMethodNotAllowed, apperr.KindInvalidInput, "method not allowed")
	return false
}

// decodeStrict reads exactly one JSON object, rejecting unknown fields.
func decodeStrict(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, apperr.KindInvalidInput, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, apperr.KindInvalidInput, "body must contain only one JSON object")
		return false
	}
	return true
}

// Convert optional request coordinates. Both components must be present.
func toCoordinates(c *dto.CoordinatesRequest) (*domain.Coordinates, error) {
	if c == nil {
		return nil, nil
	}
	if c.Latitude == nil || c.Longitude == nil {
		return nil, apperr.New(apperr.KindInvalidInput, "departure_location requires latitude and longitude").
			WithDetail("field", "departureLocation")
	}
	return &domain.Coordinates{Lat: *c.Latitude, Lon: *c.Longitude}, nil
}
