// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package auth

import (
	"context"
	"errors"
	"strings"
)

// AuthMode represents the authentication strategy.
type AuthMode string

const (
	// AuthModeNone acts as the configured default user.
	AuthModeNone AuthMode = "none"

	// AuthModeJWT uses JWT Bearer tokens.
	AuthModeJWT AuthMode = "jwt"
)

// ParseAuthMode converts a string to AuthMode.
func ParseAuthMode(s string) (AuthMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return AuthModeNone, nil
	case "jwt":
		return AuthModeJWT, nil
	default:
		return "", errors.New("invalid auth mode: " + s)
	}
}

// String returns the string representation of AuthMode.
func (m AuthMode) String() string {
	return string(m)
}

// Standard authentication errors
var (
	// ErrNoCredentials indicates no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates credentials were invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type contextKey string

const subjectContextKey contextKey = "auth-subject"

// Subject is the authenticated caller.
type Subject struct {
	// UserID is the JWT "sub" claim, or the default user in mode none.
	UserID string `json:"user_id"`

	// AuthMethod indicates how the subject was resolved.
	AuthMethod AuthMode `json:"auth_method"`
}

// WithSubject returns a context carrying s.
func WithSubject(ctx context.Context, s *Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey, s)
}

// SubjectFromContext returns the subject stored by the middleware, if any.
func SubjectFromContext(ctx context.Context) (*Subject, bool) {
	s, ok := ctx.Value(subjectContextKey).(*Subject)
	return s, ok && s != nil
}

// UserID returns the authenticated user ID, or "" outside an authenticated request.
func UserID(ctx context.Context) string {
	if s, ok := SubjectFromContext(ctx); ok {
		return s.UserID
	}
	return ""
}
