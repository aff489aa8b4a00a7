// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

// Package validation provides struct validation using go-playground/validator v10.
//
// The package wraps a thread-safe singleton validator with custom tags for
// the closed enums of the import API and translates failures into the
// application's VALIDATION_ERROR format.
//
// # Custom Tags
//
//   - source: lichess, chesscom or manual
//   - provider: lichess or chesscom
//   - orientation: white or black
//   - tcbucket: bullet, blitz, rapid or classical
//
// All custom tags are case-insensitive and accept surrounding whitespace,
// matching the models.Parse* functions they delegate to.
//
// # Quick Start
//
//	type ImportRequest struct {
//	    Source      string `json:"source" validate:"required,source"`
//	    Orientation string `json:"orientation" validate:"omitempty,orientation"`
//	    Max         int    `json:"max" validate:"gte=0,lte=10000"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    return verr.AsAppError() // *apperrors.ValidationError, HTTP 400
//	}
//
// # Field Names
//
// Field names in messages come from the json tag when present, so clients
// see the same names they sent.
package validation
