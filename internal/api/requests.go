// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package api

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rookery/internal/apperrors"
	"github.com/tomtom215/rookery/internal/validation"
)

const (
	// maxBodyBytes caps request bodies. Pasted PGN is the largest payload.
	maxBodyBytes = 8 << 20

	defaultGamesLimit = 50
	maxGamesLimit     = 500
)

// ImportRequest is the body of POST /imports.
type ImportRequest struct {
	Source      string   `json:"source" validate:"required,source"`
	Username    string   `json:"username" validate:"omitempty,max=100"`
	Token       string   `json:"token" validate:"omitempty,max=4096"`
	PGN         string   `json:"pgn"`
	Max         int      `json:"max" validate:"gte=0,lte=100000"`
	Tags        []string `json:"tags" validate:"max=32,dive,max=64"`
	Orientation string   `json:"orientation" validate:"omitempty,orientation"`
}

// LinkAccountRequest is the body of PUT /accounts/{provider}.
type LinkAccountRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Token    string `json:"token" validate:"omitempty,max=4096"`
}

// MappingRequest is the body of PUT /games/{id}/mapping. An empty
// repertoire_id clears the mapping.
type MappingRequest struct {
	RepertoireID string `json:"repertoire_id" validate:"omitempty,max=200"`
	VariantName  string `json:"variant_name" validate:"omitempty,max=200"`
}

// PlanItemRequest is the body of PATCH /training-plans/{planID}/items/{lineKey}.
type PlanItemRequest struct {
	Done *bool `json:"done" validate:"required"`
}

// decodeAndValidate reads a JSON body into dst and validates it. Unknown
// fields are rejected.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperrors.NewValidationError("body", "request body is required")
		case errors.As(err, &maxErr):
			return apperrors.NewValidationError("body", "request body exceeds %d bytes", maxErr.Limit)
		default:
			return apperrors.NewValidationError("body", "invalid JSON: %v", err)
		}
	}

	if verr := validation.ValidateStruct(dst); verr != nil {
		return verr.AsAppError()
	}
	return nil
}

// pageParams reads limit and offset from the query.
func pageParams(q url.Values) (limit, offset int, err error) {
	limit, err = intParam(q, "limit", defaultGamesLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit < 1 || limit > maxGamesLimit {
		return 0, 0, apperrors.NewValidationError("limit", "must be between 1 and %d", maxGamesLimit)
	}
	offset, err = intParam(q, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	if offset < 0 {
		return 0, 0, apperrors.NewValidationError("offset", "must not be negative")
	}
	return limit, offset, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperrors.NewValidationError(name, "must be an integer (got %q)", v)
	}
	return n, nil
}
