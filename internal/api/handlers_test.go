// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/tomtom215/rookery/internal/apperrors"
	"github.com/tomtom215/rookery/internal/mapping"
	"github.com/tomtom215/rookery/internal/models"
	"github.com/tomtom215/rookery/internal/repertoire"
)

func TestImport_Success(t *testing.T) {
	h := newHarness(t, 0)

	code, env := h.do(t, http.MethodPost, "/api/v1/imports", map[string]interface{}{
		"source":      "Lichess",
		"username":    "magnus",
		"max":         50,
		"tags":        []string{"sicilian"},
		"orientation": "black",
	})
	if code != http.StatusOK || env.Status != "success" {
		t.Fatalf("status = %d, envelope = %+v", code, env)
	}

	var res struct {
		Imported  int `json:"imported_count"`
		Duplicate int `json:"duplicate_count"`
		Processed int `json:"processed_count"`
	}
	decodeData(t, env, &res)
	if res.Imported != 2 || res.Duplicate != 1 || res.Processed != 3 {
		t.Errorf("counts = %+v", res)
	}

	got := h.importer.last
	if got.UserID != testUser || got.Source != models.SourceLichess || got.Username != "magnus" ||
		got.Max != 50 || got.Orientation == nil || *got.Orientation != models.Black || len(got.Tags) != 1 {
		t.Errorf("importer request = %+v", got)
	}
}

func TestImport_RejectsBeforeIO(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{"unknown source", map[string]interface{}{"source": "fics"}},
		{"missing source", map[string]interface{}{}},
		{"bad orientation", map[string]interface{}{"source": "lichess", "orientation": "green"}},
		{"negative max", map[string]interface{}{"source": "lichess", "max": -1}},
		{"manual without pgn", map[string]interface{}{"source": "manual"}},
		{"unknown field", map[string]interface{}{"source": "lichess", "since": "2026-01-01"}},
		{"malformed json", `{"source": "lichess"`},
		{"empty body", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 0)
			code, env := h.do(t, http.MethodPost, "/api/v1/imports", tt.body)

			wantError(t, code, env, http.StatusBadRequest, "VALIDATION_ERROR")
			if h.importer.calls != 0 {
				t.Error("importer should not be called")
			}
			if env.Error != nil && env.Error.Details["imported_count"] == nil {
				t.Error("error response should carry counts")
			}
		})
	}
}

func TestImport_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"provider fetch", &apperrors.ProviderFetchError{Provider: "chesscom", StatusCode: 503, Err: errBoom}, http.StatusBadGateway, "PROVIDER_FETCH_ERROR"},
		{"already running", apperrors.ErrAlreadyRunning, http.StatusConflict, "SYNC_IN_PROGRESS"},
		{"missing username", apperrors.NewValidationError("username", "is required"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"internal", errBoom, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 0)
			h.importer.result, h.importer.err = nil, tt.err

			code, env := h.do(t, http.MethodPost, "/api/v1/imports", map[string]interface{}{"source": "chesscom"})
			wantError(t, code, env, tt.wantCode, tt.wantErr)
			if tt.wantCode == http.StatusInternalServerError && strings.Contains(env.Error.Message, "boom") {
				t.Error("internal error details should not leak")
			}
		})
	}
}

func TestAccounts(t *testing.T) {
	h := newHarness(t, 0)

	code, env := h.do(t, http.MethodGet, "/api/v1/accounts", nil)
	if code != http.StatusOK || string(env.Data) != "[]" {
		t.Errorf("empty list = %d %s", code, env.Data)
	}

	code, env = h.do(t, http.MethodPut, "/api/v1/accounts/chesscom", map[string]string{"username": "hikaru", "token": "secret"})
	if code != http.StatusOK {
		t.Fatalf("link status = %d: %+v", code, env.Error)
	}
	if strings.Contains(string(env.Data), "secret") {
		t.Error("token must never be serialized")
	}

	code, env = h.do(t, http.MethodPut, "/api/v1/accounts/manual", map[string]string{"username": "x"})
	wantError(t, code, env, http.StatusBadRequest, "VALIDATION_ERROR")

	code, env = h.do(t, http.MethodPut, "/api/v1/accounts/lichess", map[string]string{})
	wantError(t, code, env, http.StatusBadRequest, "VALIDATION_ERROR")
	if len(h.accounts.upserted) != 1 {
		t.Errorf("upserts = %v, want only the valid one", h.accounts.upserted)
	}

	code, _ = h.do(t, http.MethodPost, "/api/v1/accounts/lichess/reset", nil)
	if code != http.StatusOK || len(h.accounts.resets) != 1 || *h.accounts.resets[0].provider != models.SourceLichess {
		t.Errorf("reset = %d %+v", code, h.accounts.resets)
	}
}

func TestListGames_Pagination(t *testing.T) {
	h := newHarness(t, 5)

	code, env := h.do(t, http.MethodGet, "/api/v1/games?limit=2&offset=1&source=lichess&mapped=unmapped", nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d: %+v", code, env.Error)
	}
	page := env.Metadata.Pagination
	if page == nil || page.Limit != 2 || page.Offset != 1 || page.Count != 2 || !page.HasMore {
		t.Errorf("pagination = %+v", page)
	}
	if h.games.lastF.Source == nil || *h.games.lastF.Source != models.SourceLichess || h.games.lastF.Mapped != models.UnmappedOnly {
		t.Errorf("filter = %+v", h.games.lastF)
	}

	_, env = h.do(t, http.MethodGet, "/api/v1/games?limit=2&offset=4", nil)
	if env.Metadata.Pagination.HasMore {
		t.Error("last page should not have more")
	}
}

func TestListGames_RejectsBeforeIO(t *testing.T) {
	for _, q := range []string{
		"from=yesterday",
		"to=2026-13-01",
		"from=2026-05-01&to=2026-04-01",
		"timeControlBucket=hyperbullet",
		"orientation=red",
		"mapped=maybe",
		"limit=0",
		"limit=501",
		"offset=-1",
		"limit=ten",
	} {
		t.Run(q, func(t *testing.T) {
			h := newHarness(t, 1)
			code, env := h.do(t, http.MethodGet, "/api/v1/games?"+q, nil)
			wantError(t, code, env, http.StatusBadRequest, "VALIDATION_ERROR")
			if h.games.calls != 0 {
				t.Errorf("store called %d times", h.games.calls)
			}
		})
	}
}

func TestDeleteGame(t *testing.T) {
	h := newHarness(t, 1)
	id := h.games.ids()[0]

	code, env := h.do(t, http.MethodDelete, "/api/v1/games/"+id.String(), nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d: %+v", code, env.Error)
	}
	if len(h.stats.invalidated) != 1 || h.stats.invalidated[0] != testUser {
		t.Errorf("stats invalidated = %v", h.stats.invalidated)
	}

	code, env = h.do(t, http.MethodDelete, "/api/v1/games/"+id.String(), nil)
	wantError(t, code, env, http.StatusNotFound, "NOT_FOUND")

	code, env = h.do(t, http.MethodDelete, "/api/v1/games/not-a-uuid", nil)
	wantError(t, code, env, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestDeleteGames_CursorReset(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantReset    bool
		wantProvider *models.Source
	}{
		{"all games resets every provider", "", true, nil},
		{"single provider", "source=chesscom", true, sourcePtr(models.SourceChessCom)},
		{"provider and bucket", "source=lichess&timeControlBucket=blitz", true, sourcePtr(models.SourceLichess)},
		{"manual source never resets", "source=manual", false, nil},
		{"opening filter keeps cursor", "source=lichess&opening=sicilian", false, nil},
		{"date filter keeps cursor", "from=2026-01-01", false, nil},
		{"mapped filter keeps cursor", "mapped=unmapped", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 0)
			h.games.deleted = 7

			target := "/api/v1/games"
			if tt.query != "" {
				target += "?" + tt.query
			}
			code, env := h.do(t, http.MethodDelete, target, nil)
			if code != http.StatusOK {
				t.Fatalf("status = %d: %+v", code, env.Error)
			}

			var res map[string]int64
			decodeData(t, env, &res)
			if res["deleted_count"] != 7 {
				t.Errorf("deleted_count = %d, want 7", res["deleted_count"])
			}

			if got := len(h.accounts.resets) == 1; got != tt.wantReset {
				t.Fatalf("reset called = %v, want %v", got, tt.wantReset)
			}
			if tt.wantReset {
				p := h.accounts.resets[0].provider
				if (p == nil) != (tt.wantProvider == nil) || (p != nil && *p != *tt.wantProvider) {
					t.Errorf("reset provider = %v, want %v", p, tt.wantProvider)
				}
			}
			if len(h.stats.invalidated) != 1 {
				t.Error("bulk delete should invalidate stats")
			}
		})
	}
}

func sourcePtr(s models.Source) *models.Source { return &s }

func TestUpdateMapping(t *testing.T) {
	h := newHarness(t, 1)
	id := h.games.ids()[0]
	target := "/api/v1/games/" + id.String() + "/mapping"

	code, env := h.do(t, http.MethodPut, target, map[string]string{"repertoire_id": "rep-1", "variant_name": "najdorf"})
	if code != http.StatusOK {
		t.Fatalf("status = %d: %+v", code, env.Error)
	}
	m := h.games.mappings[id]
	if m.Strategy != models.StrategyManual || m.Confidence != 1 || m.RequiresManualReview ||
		m.RepertoireName != "Sicilian" || m.VariantName != "Najdorf" {
		t.Errorf("mapping = %+v", m)
	}
	if want := mapping.Manual(repertoire.Metadata{ID: "rep-1", Name: "Sicilian"}, "Najdorf"); m != want {
		t.Errorf("mapping = %+v, want %+v", m, want)
	}
	var game models.ImportedGame
	decodeData(t, env, &game)
	if game.OpeningMapping.RepertoireID != "rep-1" {
		t.Errorf("response game mapping = %+v", game.OpeningMapping)
	}

	code, env = h.do(t, http.MethodPut, target, map[string]string{"repertoire_id": "rep-1", "variant_name": "Dragon"})
	wantError(t, code, env, http.StatusBadRequest, "VALIDATION_ERROR")

	code, env = h.do(t, http.MethodPut, target, map[string]string{"repertoire_id": "rep-404"})
	wantError(t, code, env, http.StatusNotFound, "NOT_FOUND")

	code, _ = h.do(t, http.MethodPut, target, map[string]string{})
	if code != http.StatusOK || h.games.mappings[id].Strategy != models.StrategyNone || !h.games.mappings[id].RequiresManualReview {
		t.Errorf("clear mapping = %d %+v", code, h.games.mappings[id])
	}
}

func TestStats(t *testing.T) {
	h := newHarness(t, 0)

	code, env := h.do(t, http.MethodGet, "/api/v1/stats?timeControlBucket=rapid&orientation=white", nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d: %+v", code, env.Error)
	}
	f := h.stats.lastF
	if f.TimeControlBucket == nil || *f.TimeControlBucket != models.BucketRapid || f.Orientation == nil {
		t.Errorf("filter = %+v", f)
	}

	code, env = h.do(t, http.MethodGet, "/api/v1/stats?source=icc", nil)
	wantError(t, code, env, http.StatusBadRequest, "VALIDATION_ERROR")
	if h.stats.calls != 1 {
		t.Errorf("stats calls = %d, want 1", h.stats.calls)
	}
}

func TestTrainingPlans(t *testing.T) {
	h := newHarness(t, 0)

	code, env := h.do(t, http.MethodGet, "/api/v1/training-plans/latest", nil)
	wantError(t, code, env, http.StatusNotFound, "NOT_FOUND")

	code, _ = h.do(t, http.MethodPost, "/api/v1/training-plans", nil)
	if code != http.StatusCreated {
		t.Fatalf("regenerate status = %d", code)
	}

	code, env = h.do(t, http.MethodGet, "/api/v1/training-plans/latest?opening=B90", nil)
	if code != http.StatusOK {
		t.Fatalf("latest status = %d: %+v", code, env.Error)
	}

	code, env = h.do(t, http.MethodPatch, "/api/v1/training-plans/plan-1/items/abcd", map[string]bool{"done": true})
	if code != http.StatusOK || len(h.training.done) != 1 || !h.training.done[0] {
		t.Errorf("patch = %d %v", code, h.training.done)
	}

	code, env = h.do(t, http.MethodPatch, "/api/v1/training-plans/plan-1/items/abcd", map[string]string{})
	wantError(t, code, env, http.StatusBadRequest, "VALIDATION_ERROR")

	code, env = h.do(t, http.MethodPatch, "/api/v1/training-plans/plan-9/items/abcd", map[string]bool{"done": false})
	wantError(t, code, env, http.StatusNotFound, "NOT_FOUND")
}

func TestHealth(t *testing.T) {
	h := newHarness(t, 0)

	if code, _ := h.do(t, http.MethodGet, "/api/v1/health/live", nil); code != http.StatusOK {
		t.Errorf("live = %d", code)
	}
	if code, _ := h.do(t, http.MethodGet, "/api/v1/health/ready", nil); code != http.StatusOK {
		t.Errorf("ready = %d", code)
	}

	h.pinger.err = errBoom
	code, env := h.do(t, http.MethodGet, "/api/v1/health/ready", nil)
	wantError(t, code, env, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")
}

func TestRouter_NotFoundAndMethod(t *testing.T) {
	h := newHarness(t, 0)

	code, env := h.do(t, http.MethodGet, "/api/v1/nope", nil)
	wantError(t, code, env, http.StatusNotFound, "NOT_FOUND")

	code, env = h.do(t, http.MethodGet, "/api/v1/imports", nil)
	wantError(t, code, env, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
}
