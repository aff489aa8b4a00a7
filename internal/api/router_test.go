// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/rookery/internal/auth"
	"github.com/tomtom215/rookery/internal/config"
)

func TestRouter_JWTRequired(t *testing.T) {
	const secret = "router-test-secret-at-least-32-characters"
	mw, err := auth.NewMiddleware(&config.SecurityConfig{AuthMode: "jwt", JWTSecret: secret})
	if err != nil {
		t.Fatalf("NewMiddleware() error = %v", err)
	}
	stats := &fakeStats{}
	handler := NewHandler(Dependencies{Stats: stats, DB: fakePinger{}})
	router := NewRouter(handler, mw, nil).Setup()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("without token status = %d, want 401", rec.Code)
	}

	// Health stays public.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}

	m, _ := auth.NewJWTManager(secret)
	token, _ := m.GenerateToken("jwt-user", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("with token status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

func TestRouter_Metrics(t *testing.T) {
	h := newHarness(t, 0)
	h.do(t, http.MethodGet, "/api/v1/stats", nil)

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `api_requests_total{endpoint="/api/v1/stats"`) {
		t.Error("metrics should expose api_requests_total for the stats route")
	}
}

func TestRouter_RateLimit(t *testing.T) {
	mw, _ := auth.NewMiddleware(&config.SecurityConfig{AuthMode: "none", DefaultUserID: "u"})
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Minute
	router := NewRouter(NewHandler(Dependencies{Stats: &fakeStats{}}), mw, cfg).Setup()

	var last int
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		router.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", last)
	}
}

func TestChiMiddlewareConfigFromSecurity(t *testing.T) {
	cfg := ChiMiddlewareConfigFromSecurity(&config.SecurityConfig{
		CORSOrigins:       []string{"https://example.com"},
		RateLimitReqs:     7,
		RateLimitWindow:   time.Second,
		RateLimitDisabled: true,
	})
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.RateLimitRequests != 7 || cfg.RateLimitWindow != time.Second || !cfg.RateLimitDisabled {
		t.Errorf("config = %+v", cfg)
	}
	if def := ChiMiddlewareConfigFromSecurity(nil); def.RateLimitRequests != 100 {
		t.Errorf("nil security config = %+v", def)
	}
}
