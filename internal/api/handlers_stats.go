// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/rookery/internal/apperrors"
	"github.com/tomtom215/rookery/internal/auth"
	"github.com/tomtom215/rookery/internal/models"
)

// Stats returns the caller's aggregated stats for the filters.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	f, err := models.ParseGameFilter(r.URL.Query())
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}

	sum, err := h.deps.Stats.Summary(r.Context(), auth.UserID(r.Context()), f)
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}
	respondData(w, http.StatusOK, sum, start)
}

// RegenerateTrainingPlan builds and stores a new plan from unfiltered stats.
func (h *Handler) RegenerateTrainingPlan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	plan, err := h.deps.Training.Regenerate(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}
	respondData(w, http.StatusCreated, plan, start)
}

// LatestTrainingPlan returns the newest plan hydrated with live stats.
// Lines outside the filters are hidden only when a filter is active.
func (h *Handler) LatestTrainingPlan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	f, err := models.ParseGameFilter(r.URL.Query())
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}

	plan, err := h.deps.Training.Latest(r.Context(), auth.UserID(r.Context()), f)
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}
	respondData(w, http.StatusOK, plan, start)
}

// UpdatePlanItem sets the done flag of one plan item.
func (h *Handler) UpdatePlanItem(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	planID := strings.TrimSpace(chi.URLParam(r, "planID"))
	lineKey := strings.TrimSpace(chi.URLParam(r, "lineKey"))
	if planID == "" || lineKey == "" {
		respondAppError(w, r, apperrors.NewValidationError("path", "plan ID and line key are required"), nil)
		return
	}

	var body PlanItemRequest
	if err := decodeAndValidate(w, r, &body); err != nil {
		respondAppError(w, r, err, nil)
		return
	}

	plan, err := h.deps.Training.SetItemDone(r.Context(), auth.UserID(r.Context()), planID, lineKey, *body.Done)
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}
	respondData(w, http.StatusOK, plan, start)
}
