// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/rookery/internal/middleware"
)

// Authenticator resolves the request subject. *auth.Middleware satisfies it.
type Authenticator interface {
	Authenticate(next http.Handler) http.Handler
}

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	authenticator Authenticator
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil chi middleware config uses the defaults.
func NewRouter(handler *Handler, authenticator Authenticator, cfg *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		authenticator: authenticator,
		chiMiddleware: NewChiMiddleware(cfg),
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Applied to all routes in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.authenticator.Authenticate)

		r.Post("/imports", router.handler.Import)

		r.Get("/accounts", router.handler.ListAccounts)
		r.Put("/accounts/{provider}", router.handler.LinkAccount)
		r.Post("/accounts/{provider}/reset", router.handler.ResetAccount)

		r.Get("/games", router.handler.ListGames)
		r.Delete("/games", router.handler.DeleteGames)
		r.Delete("/games/{id}", router.handler.DeleteGame)
		r.Put("/games/{id}/mapping", router.handler.UpdateMapping)

		r.Get("/stats", router.handler.Stats)

		r.Post("/training-plans", router.handler.RegenerateTrainingPlan)
		r.Get("/training-plans/latest", router.handler.LatestTrainingPlan)
		r.Patch("/training-plans/{planID}/items/{lineKey}", router.handler.UpdatePlanItem)
	})

	return r
}
