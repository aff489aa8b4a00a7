// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

/*
Package middleware provides HTTP middleware components for the API server.

Key Components:

  - Request ID: UUID-based request tracking, propagated into the logging context
  - Prometheus Metrics: request count, duration and in-flight gauge per route

Both are chi-compatible (func(http.Handler) http.Handler) and are installed
by the api package:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(middleware.PrometheusMetrics)
	    ...
	})

Metrics are labeled with the chi route pattern ("/api/v1/games/{id}")
rather than the raw path, so per-game URLs do not create new series.
*/
package middleware
