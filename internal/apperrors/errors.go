// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

// Package apperrors defines the error taxonomy shared by the import pipeline
// and the HTTP layer.
//
// Each kind answers one question for the caller:
//
//   - ProviderFetchError: an external game source could not be reached. The
//     whole import is aborted and the linked account is marked failed.
//   - PerGameProcessingError: one game could not be detected or mapped. The
//     game is counted as failed and the batch continues.
//   - PersistenceWriteError: one row could not be written. Duplicates are
//     reclassified by the caller; everything else is a per-game failure.
//   - ValidationError: input was rejected before any I/O (HTTP 400).
//   - NotFoundError: the referenced resource does not exist (HTTP 404).
//
// Use errors.As to recover the concrete type and HTTPStatus to map any error
// to a status code.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAlreadyRunning is returned when a sync for the same linked account is
// already in progress in this process.
var ErrAlreadyRunning = errors.New("sync already in progress for this account")

// ProviderFetchError reports an HTTP or network failure talking to a provider.
type ProviderFetchError struct {
	Provider   string
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *ProviderFetchError) Error() string {
	msg := fmt.Sprintf("%s fetch failed", e.Provider)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" with status %d", e.StatusCode)
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderFetchError) Unwrap() error { return e.Err }

// PerGameProcessingError reports that detection or mapping failed for one game.
type PerGameProcessingError struct {
	DedupeKey string
	Err       error
}

func (e *PerGameProcessingError) Error() string {
	return fmt.Sprintf("process game %s: %v", e.DedupeKey, e.Err)
}

func (e *PerGameProcessingError) Unwrap() error { return e.Err }

// PersistenceWriteError reports a failed write for one game.
type PersistenceWriteError struct {
	DedupeKey string
	Duplicate bool
	Err       error
}

func (e *PersistenceWriteError) Error() string {
	if e.Duplicate {
		return fmt.Sprintf("write game %s: duplicate key", e.DedupeKey)
	}
	return fmt.Sprintf("write game %s: %v", e.DedupeKey, e.Err)
}

func (e *PersistenceWriteError) Unwrap() error { return e.Err }

// ValidationError rejects malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NewValidationError is a convenience constructor.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// HTTPStatus maps an error from the taxonomy to an HTTP status code.
func HTTPStatus(err error) int {
	var (
		ve *ValidationError
		nf *NotFoundError
		pf *ProviderFetchError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyRunning):
		return http.StatusConflict
	case errors.As(err, &pf):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the machine-readable API error code for err.
func Code(err error) string {
	switch HTTPStatus(err) {
	case http.StatusBadRequest:
		return "VALIDATION_ERROR"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "SYNC_IN_PROGRESS"
	case http.StatusBadGateway:
		return "PROVIDER_FETCH_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}
