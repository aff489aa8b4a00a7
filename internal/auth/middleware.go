// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rookery/internal/config"
	"github.com/tomtom215/rookery/internal/logging"
	"github.com/tomtom215/rookery/internal/models"
)

// Middleware resolves the request subject.
type Middleware struct {
	mode          AuthMode
	jwtManager    *JWTManager
	defaultUserID string
}

// NewMiddleware builds the middleware for the configured auth mode.
func NewMiddleware(cfg *config.SecurityConfig) (*Middleware, error) {
	mode, err := ParseAuthMode(cfg.AuthMode)
	if err != nil {
		return nil, err
	}

	m := &Middleware{mode: mode, defaultUserID: strings.TrimSpace(cfg.DefaultUserID)}
	switch mode {
	case AuthModeJWT:
		if m.jwtManager, err = NewJWTManager(cfg.JWTSecret); err != nil {
			return nil, err
		}
	case AuthModeNone:
		if m.defaultUserID == "" {
			return nil, fmt.Errorf("default user ID is required when auth mode is none")
		}
	}
	return m, nil
}

// Mode returns the active auth mode.
func (m *Middleware) Mode() AuthMode {
	return m.mode
}

// Authenticate is chi-compatible middleware that rejects unauthenticated
// requests with 401 and stores the Subject in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.resolve(r)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("Authentication failed")
			w.Header().Set("WWW-Authenticate", `Bearer realm="rookery"`)
			writeUnauthorized(w, err)
			return
		}

		ctx := WithSubject(r.Context(), subject)
		ctx = logging.ContextWithUserID(ctx, subject.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) resolve(r *http.Request) (*Subject, error) {
	if m.mode == AuthModeNone {
		return &Subject{UserID: m.defaultUserID, AuthMethod: AuthModeNone}, nil
	}

	token, err := extractBearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}
	sub, err := m.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return &Subject{UserID: sub, AuthMethod: AuthModeJWT}, nil
}

// extractBearerToken extracts the token from an Authorization header.
func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrNoCredentials
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("%w: invalid authorization header", ErrInvalidCredentials)
	}
	return strings.TrimSpace(parts[1]), nil
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	msg := "authentication required"
	if !errors.Is(err, ErrNoCredentials) {
		msg = "invalid token"
	}
	resp := models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: "UNAUTHORIZED", Message: msg},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		logging.Error().Err(encErr).Msg("Failed to encode unauthorized response")
	}
}
