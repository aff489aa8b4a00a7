// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/rookery/internal/apperrors"
	"github.com/tomtom215/rookery/internal/auth"
	"github.com/tomtom215/rookery/internal/importer"
	"github.com/tomtom215/rookery/internal/models"
)

// Import runs one import for the caller and returns the outcome counts.
// Failed runs still carry zero counts in the error details.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body ImportRequest
	if err := decodeAndValidate(w, r, &body); err != nil {
		respondAppError(w, r, err, emptyCounts())
		return
	}

	req, err := body.toImporterRequest(auth.UserID(r.Context()))
	if err != nil {
		respondAppError(w, r, err, emptyCounts())
		return
	}

	result, err := h.deps.Importer.Import(r.Context(), req)
	if err != nil {
		respondAppError(w, r, err, emptyCounts())
		return
	}
	// The import.completed consumer also invalidates, but asynchronously.
	h.deps.Stats.Invalidate(req.UserID)

	respondData(w, http.StatusOK, result, start)
}

func (b *ImportRequest) toImporterRequest(userID string) (importer.Request, error) {
	source, err := models.ParseSource(b.Source)
	if err != nil {
		return importer.Request{}, err
	}
	if source == models.SourceManual && b.PGN == "" {
		return importer.Request{}, apperrors.NewValidationError("pgn", "is required for manual imports")
	}

	req := importer.Request{
		UserID:   userID,
		Source:   source,
		Username: b.Username,
		Token:    b.Token,
		PGN:      b.PGN,
		Max:      b.Max,
		Tags:     b.Tags,
	}
	if b.Orientation != "" {
		o, err := models.ParseOrientation(b.Orientation)
		if err != nil {
			return importer.Request{}, err
		}
		req.Orientation = &o
	}
	return req, nil
}

func emptyCounts() map[string]interface{} {
	return map[string]interface{}{
		"imported_count":  0,
		"duplicate_count": 0,
		"failed_count":    0,
		"processed_count": 0,
	}
}
