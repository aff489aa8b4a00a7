// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/rookery/internal/logging"
)

// readinessTimeout bounds the database ping of a readiness probe.
const readinessTimeout = 2 * time.Second

// HealthLive reports that the process is serving HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"status": "alive",
		"uptime": time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// HealthReady reports whether the database answers. Kubernetes-style
// probes treat 503 as not ready.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if h.deps.DB == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "database not configured", nil)
		return
	}
	if err := h.deps.DB.Ping(ctx); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Readiness check failed")
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "database unavailable", nil)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"status":   "ready",
		"database": "ok",
	}, start)
}
