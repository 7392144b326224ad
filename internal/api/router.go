package api

import (
	"net/http"
	"route-planning-service/internal/api/handlers"
	"route-planning-service/internal/platform/metrics"
	"route-planning-service/internal/services"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type RouterConfig struct {
	RatePerSecond float64 // zero disables rate limiting
	Burst         int
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(planner *services.Planner, logger *zap.Logger, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	planHandler := &handlers.PlanHandler{Planner: planner}
	routeHandler := &handlers.RouteHandler{Routes: planner.Routes()}

	mux.HandleFunc("/health", handlers.Health)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/routes/plan", planHandler.Plan)
	mux.HandleFunc("/routes/plan/preview", planHandler.Preview)
	mux.HandleFunc("/routes/optimize", planHandler.Optimize)
	mux.HandleFunc("/routes", routeHandler.Create)
	mux.HandleFunc("/routes/{id}", routeHandler.Route)
	mux.HandleFunc("/bookings/{id}/route", routeHandler.RemoveBooking)

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	var h http.Handler = metricsMiddleware(mux)
	h = rateLimitMiddleware(limiter, h)
	h = loggingMiddleware(logger, h)
	return requestIDMiddleware(h)
}
