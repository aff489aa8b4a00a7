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
	"github.com/google/uuid"

	"github.com/tomtom215/rookery/internal/apperrors"
	"github.com/tomtom215/rookery/internal/auth"
	"github.com/tomtom215/rookery/internal/logging"
	"github.com/tomtom215/rookery/internal/mapping"
	"github.com/tomtom215/rookery/internal/models"
	"github.com/tomtom215/rookery/internal/repertoire"
)

// ListGames returns one page of the caller's games matching the filters.
func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	f, err := models.ParseGameFilter(q)
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}
	limit, offset, err := pageParams(q)
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}

	userID := auth.UserID(r.Context())
	total, err := h.deps.Games.CountGames(r.Context(), userID, f)
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}
	games, err := h.deps.Games.ListGames(r.Context(), userID, f, limit, offset)
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}
	if games == nil {
		games = []models.ImportedGame{}
	}

	respondList(w, games, &models.PaginationInfo{
		Limit:   limit,
		Offset:  offset,
		Count:   len(games),
		HasMore: offset+len(games) < total,
	}, start)
}

// DeleteGame removes one of the caller's games.
func (h *Handler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := gameIDParam(r)
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.deps.Games.DeleteGame(r.Context(), userID, id); err != nil {
		respondAppError(w, r, err, nil)
		return
	}
	h.deps.Stats.Invalidate(userID)

	respondData(w, http.StatusOK, map[string]int64{"deleted_count": 1}, start)
}

// DeleteGames removes every game of the caller matching the filters. When
// only source and time-control restrictions are active, the affected
// linked accounts are reset so the next sync refetches from scratch.
func (h *Handler) DeleteGames(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	f, err := models.ParseGameFilter(r.URL.Query())
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}

	userID := auth.UserID(r.Context())
	n, err := h.deps.Games.DeleteGames(r.Context(), userID, f)
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}
	h.deps.Stats.Invalidate(userID)

	var reset int64
	if f.ResetsSyncCursor() && (f.Source == nil || f.Source.IsProvider()) {
		reset, err = h.deps.Accounts.ResetAccounts(r.Context(), userID, f.Source)
		if err != nil {
			respondAppError(w, r, err, nil)
			return
		}
	}

	logging.Ctx(r.Context()).Info().Int64("deleted", n).Int64("accounts_reset", reset).Msg("Games deleted")
	respondData(w, http.StatusOK, map[string]int64{"deleted_count": n, "accounts_reset": reset}, start)
}

// UpdateMapping sets the caller's manual repertoire attribution for a game,
// or clears it when repertoire_id is empty.
func (h *Handler) UpdateMapping(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := gameIDParam(r)
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}
	var body MappingRequest
	if err := decodeAndValidate(w, r, &body); err != nil {
		respondAppError(w, r, err, nil)
		return
	}

	userID := auth.UserID(r.Context())
	m, err := h.manualMapping(r, userID, body)
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}
	if err := h.deps.Games.UpdateMapping(r.Context(), userID, id, m); err != nil {
		respondAppError(w, r, err, nil)
		return
	}
	h.deps.Stats.Invalidate(userID)

	game, err := h.deps.Games.GetGame(r.Context(), userID, id)
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}
	respondData(w, http.StatusOK, game, start)
}

func (h *Handler) manualMapping(r *http.Request, userID string, body MappingRequest) (models.OpeningMapping, error) {
	repID := strings.TrimSpace(body.RepertoireID)
	if repID == "" {
		return models.Unmapped(), nil
	}

	rep, err := h.deps.Repertoires.GetRepertoire(r.Context(), userID, repID)
	if err != nil {
		return models.OpeningMapping{}, err
	}

	md := repertoire.BuildMetadata(rep, h.deps.VariantDepth)
	variant := strings.TrimSpace(body.VariantName)
	if variant != "" {
		found := false
		for _, v := range md.Variants {
			if strings.EqualFold(v.Name, variant) || strings.EqualFold(v.FullName, variant) {
				variant, found = v.Name, true
				break
			}
		}
		if !found {
			return models.OpeningMapping{}, apperrors.NewValidationError("variant_name", "repertoire %q has no variant %q", rep.Name, variant)
		}
	}
	return mapping.Manual(md, variant), nil
}

func gameIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError("id", "must be a UUID (got %q)", raw)
	}
	return id, nil
}
