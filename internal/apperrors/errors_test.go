// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"validation", NewValidationError("from", "must be RFC3339"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"wrapped not found", fmt.Errorf("delete: %w", &NotFoundError{Resource: "game", ID: "x"}), http.StatusNotFound, "NOT_FOUND"},
		{"provider", &ProviderFetchError{Provider: "chesscom", StatusCode: 429, Attempts: 3}, http.StatusBadGateway, "PROVIDER_FETCH_ERROR"},
		{"already running", fmt.Errorf("import: %w", ErrAlreadyRunning), http.StatusConflict, "SYNC_IN_PROGRESS"},
		{"other", errors.New("disk full"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
			if got := Code(tt.err); got != tt.code {
				t.Errorf("Code() = %s, want %s", got, tt.code)
			}
		})
	}
}

func TestProviderFetchError_Message(t *testing.T) {
	cause := errors.New("connection reset")
	err := &ProviderFetchError{Provider: "chesscom", StatusCode: 429, Attempts: 4, Err: cause}

	msg := err.Error()
	for _, want := range []string{"chesscom", "429", "4 attempts", "connection reset"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestPredicates(t *testing.T) {
	if !IsNotFound(&NotFoundError{Resource: "plan"}) {
		t.Error("IsNotFound() = false, want true")
	}
	if IsNotFound(errors.New("x")) {
		t.Error("IsNotFound(plain) = true, want false")
	}
	if !IsValidation(fmt.Errorf("wrap: %w", &ValidationError{Message: "bad"})) {
		t.Error("IsValidation() = false, want true")
	}
	dup := &PersistenceWriteError{DedupeKey: "k", Duplicate: true}
	if !strings.Contains(dup.Error(), "duplicate") {
		t.Errorf("Error() = %q, want duplicate", dup.Error())
	}
}
