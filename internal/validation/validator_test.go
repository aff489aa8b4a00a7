// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package validation

import (
	"net/http"
	"strings"
	"testing"

	"github.com/tomtom215/rookery/internal/apperrors"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

type enumRequest struct {
	Source      string   `json:"source" validate:"required,source"`
	Provider    string   `json:"provider" validate:"omitempty,provider"`
	Orientation string   `json:"orientation" validate:"omitempty,orientation"`
	Bucket      string   `json:"timeControlBucket" validate:"omitempty,tcbucket"`
	Max         int      `json:"max" validate:"gte=0,lte=10000"`
	Tags        []string `json:"tags" validate:"max=3"`
	Name        string   `validate:"omitempty,max=5"`
}

func TestValidateStruct_Enums(t *testing.T) {
	tests := []struct {
		name      string
		input     enumRequest
		wantField string
		wantMsg   string
	}{
		{name: "valid minimal", input: enumRequest{Source: "lichess"}},
		{name: "case and space insensitive", input: enumRequest{Source: " ChessCom ", Orientation: "WHITE", Bucket: "Blitz"}},
		{name: "manual source", input: enumRequest{Source: "manual", Provider: "chesscom"}},
		{name: "missing source", input: enumRequest{}, wantField: "source", wantMsg: "source is required"},
		{name: "unknown source", input: enumRequest{Source: "fics"}, wantField: "source", wantMsg: "source must be one of lichess, chesscom, manual"},
		{name: "manual is not a provider", input: enumRequest{Source: "lichess", Provider: "manual"}, wantField: "provider", wantMsg: "provider must be one of lichess, chesscom"},
		{name: "bad orientation", input: enumRequest{Source: "lichess", Orientation: "red"}, wantField: "orientation", wantMsg: "orientation must be white or black"},
		{name: "bad bucket", input: enumRequest{Source: "lichess", Bucket: "hyper"}, wantField: "timeControlBucket", wantMsg: "timeControlBucket must be one of bullet, blitz, rapid, classical"},
		{name: "max too large", input: enumRequest{Source: "lichess", Max: 10001}, wantField: "max", wantMsg: "max must be less than or equal to 10000"},
		{name: "too many tags", input: enumRequest{Source: "lichess", Tags: []string{"a", "b", "c", "d"}}, wantField: "tags", wantMsg: "tags must be at most 3 items"},
		{name: "no json tag uses field name", input: enumRequest{Source: "lichess", Name: "toolong"}, wantField: "Name", wantMsg: "Name must be at most 5 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("Errors() = %d entries, want 1: %v", len(errs), verr)
			}
			if errs[0].Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", errs[0].Field(), tt.wantField)
			}
			if errs[0].Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", errs[0].Error(), tt.wantMsg)
			}
		})
	}
}

func TestRequestValidationError_AsAppError(t *testing.T) {
	verr := ValidateStruct(&enumRequest{Source: "nope", Orientation: "red"})
	if verr == nil {
		t.Fatal("expected validation failure")
	}

	appErr := verr.AsAppError()
	if appErr.Field != "source" {
		t.Errorf("Field = %q, want source", appErr.Field)
	}
	if !strings.Contains(appErr.Message, "orientation") {
		t.Errorf("Message = %q, want every failure listed", appErr.Message)
	}

	var err error = appErr
	if apperrors.HTTPStatus(err) != http.StatusBadRequest || apperrors.Code(err) != "VALIDATION_ERROR" {
		t.Errorf("HTTPStatus/Code = %d/%s", apperrors.HTTPStatus(err), apperrors.Code(err))
	}
}

func TestRequestValidationError_Empty(t *testing.T) {
	ve := &RequestValidationError{}
	if ve.Error() != "validation failed" {
		t.Errorf("Error() = %q", ve.Error())
	}
	if ve.AsAppError().Message != "validation failed" {
		t.Errorf("AsAppError() = %+v", ve.AsAppError())
	}
}

func TestValidateStruct_NonStruct(t *testing.T) {
	verr := ValidateStruct("not a struct")
	if verr == nil || verr.Errors()[0].Field() != "unknown" {
		t.Errorf("ValidateStruct(string) = %v", verr)
	}
}
