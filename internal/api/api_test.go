// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/rookery/internal/apperrors"
	"github.com/tomtom215/rookery/internal/auth"
	"github.com/tomtom215/rookery/internal/config"
	"github.com/tomtom215/rookery/internal/importer"
	"github.com/tomtom215/rookery/internal/models"
	"github.com/tomtom215/rookery/internal/repertoire"
	"github.com/tomtom215/rookery/internal/stats"
)

const testUser = "local-user"

type fakeImporter struct {
	calls  int
	last   importer.Request
	result *importer.Result
	err    error
}

func (f *fakeImporter) Import(_ context.Context, req importer.Request) (*importer.Result, error) {
	f.calls++
	f.last = req
	return f.result, f.err
}

type resetCall struct {
	userID   string
	provider *models.Source
}

type fakeAccounts struct {
	accounts []models.LinkedAccount
	resets   []resetCall
	upserted []string
}

func (f *fakeAccounts) ListAccounts(_ context.Context, userID string) ([]models.LinkedAccount, error) {
	return f.accounts, nil
}

func (f *fakeAccounts) UpsertAccount(_ context.Context, userID string, provider models.Source, username, token string) (*models.LinkedAccount, error) {
	f.upserted = append(f.upserted, username)
	return &models.LinkedAccount{UserID: userID, Provider: provider, Username: username, Token: token, Status: models.StatusIdle}, nil
}

func (f *fakeAccounts) ResetAccounts(_ context.Context, userID string, provider *models.Source) (int64, error) {
	f.resets = append(f.resets, resetCall{userID, provider})
	return 1, nil
}

type fakeGames struct {
	games    map[uuid.UUID]*models.ImportedGame
	calls    int
	lastF    models.GameFilter
	limit    int
	offset   int
	total    int
	deleted  int64
	mappings map[uuid.UUID]models.OpeningMapping
}

func newFakeGames(n int) *fakeGames {
	f := &fakeGames{games: map[uuid.UUID]*models.ImportedGame{}, mappings: map[uuid.UUID]models.OpeningMapping{}, total: n}
	for i := 0; i < n; i++ {
		id := uuid.New()
		f.games[id] = &models.ImportedGame{ID: id, UserID: testUser, Source: models.SourceLichess}
	}
	return f
}

func (f *fakeGames) ids() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(f.games))
	for id := range f.games {
		out = append(out, id)
	}
	return out
}

func (f *fakeGames) ListGames(_ context.Context, userID string, fl models.GameFilter, limit, offset int) ([]models.ImportedGame, error) {
	f.calls++
	f.lastF, f.limit, f.offset = fl, limit, offset
	var out []models.ImportedGame
	for _, g := range f.games {
		out = append(out, *g)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeGames) CountGames(_ context.Context, userID string, fl models.GameFilter) (int, error) {
	f.calls++
	return f.total, nil
}

func (f *fakeGames) GetGame(_ context.Context, userID string, id uuid.UUID) (*models.ImportedGame, error) {
	g, ok := f.games[id]
	if !ok {
		return nil, &apperrors.NotFoundError{Resource: "game", ID: id.String()}
	}
	cp := *g
	if m, ok := f.mappings[id]; ok {
		cp.OpeningMapping = m
	}
	return &cp, nil
}

func (f *fakeGames) DeleteGame(_ context.Context, userID string, id uuid.UUID) error {
	if _, ok := f.games[id]; !ok {
		return &apperrors.NotFoundError{Resource: "game", ID: id.String()}
	}
	delete(f.games, id)
	return nil
}

func (f *fakeGames) DeleteGames(_ context.Context, userID string, fl models.GameFilter) (int64, error) {
	f.calls++
	f.lastF = fl
	return f.deleted, nil
}

func (f *fakeGames) UpdateMapping(_ context.Context, userID string, id uuid.UUID, m models.OpeningMapping) error {
	if _, ok := f.games[id]; !ok {
		return &apperrors.NotFoundError{Resource: "game", ID: id.String()}
	}
	f.mappings[id] = m
	return nil
}

type fakeRepertoires struct{}

func (fakeRepertoires) GetRepertoire(_ context.Context, userID, id string) (*repertoire.Repertoire, error) {
	if id != "rep-1" {
		return nil, &apperrors.NotFoundError{Resource: "repertoire", ID: id}
	}
	return &repertoire.Repertoire{
		ID:   "rep-1",
		Name: "Sicilian",
		Root: &repertoire.MoveNode{Children: []*repertoire.MoveNode{
			{Move: "e4", Children: []*repertoire.MoveNode{
				{Move: "c5", VariantName: "Najdorf"},
			}},
		}},
	}, nil
}

type fakeStats struct {
	calls       int
	lastF       stats.Filters
	invalidated []string
}

func (f *fakeStats) Summary(_ context.Context, userID string, fl stats.Filters) (*stats.Summary, error) {
	f.calls++
	f.lastF = fl
	return &stats.Summary{Totals: stats.Totals{Games: 3}}, nil
}

func (f *fakeStats) Invalidate(userID string) {
	f.invalidated = append(f.invalidated, userID)
}

type fakeTraining struct {
	plan *models.TrainingPlan
	done []bool
}

func (f *fakeTraining) Regenerate(_ context.Context, userID string) (*models.TrainingPlan, error) {
	f.plan = &models.TrainingPlan{ID: "plan-1", UserID: userID, Items: []models.TrainingPlanItem{{LineKey: "abcd"}}}
	return f.plan, nil
}

func (f *fakeTraining) Latest(_ context.Context, userID string, fl stats.Filters) (*models.TrainingPlan, error) {
	if f.plan == nil {
		return nil, &apperrors.NotFoundError{Resource: "training plan"}
	}
	return f.plan, nil
}

func (f *fakeTraining) SetItemDone(_ context.Context, userID, planID, lineKey string, done bool) (*models.TrainingPlan, error) {
	if f.plan == nil || planID != f.plan.ID {
		return nil, &apperrors.NotFoundError{Resource: "training plan", ID: planID}
	}
	f.done = append(f.done, done)
	return f.plan, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type harness struct {
	importer *fakeImporter
	accounts *fakeAccounts
	games    *fakeGames
	stats    *fakeStats
	training *fakeTraining
	pinger   *fakePinger
	handler  http.Handler
}

func newHarness(t *testing.T, games int) *harness {
	t.Helper()
	h := &harness{
		importer: &fakeImporter{result: &importer.Result{ImportedCount: 2, DuplicateCount: 1, ProcessedCount: 3}},
		accounts: &fakeAccounts{},
		games:    newFakeGames(games),
		stats:    &fakeStats{},
		training: &fakeTraining{},
		pinger:   &fakePinger{},
	}
	mw, err := auth.NewMiddleware(&config.SecurityConfig{AuthMode: "none", DefaultUserID: testUser})
	if err != nil {
		t.Fatalf("auth.NewMiddleware() error = %v", err)
	}
	handler := NewHandler(Dependencies{
		Importer:    h.importer,
		Accounts:    h.accounts,
		Games:       h.games,
		Repertoires: fakeRepertoires{},
		Stats:       h.stats,
		Training:    h.training,
		DB:          h.pinger,
	})
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	h.handler = NewRouter(handler, mw, cfg).Setup()
	return h
}

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func (h *harness) do(t *testing.T, method, target string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				t.Fatalf("encode body: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func wantError(t *testing.T, code int, env envelope, wantCode int, wantErr string) {
	t.Helper()
	if code != wantCode {
		t.Errorf("status = %d, want %d", code, wantCode)
	}
	if env.Status != "error" || env.Error == nil || env.Error.Code != wantErr {
		t.Errorf("error envelope = %+v, want code %s", env.Error, wantErr)
	}
}

var errBoom = errors.New("boom")
