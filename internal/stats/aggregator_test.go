// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package stats

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/tomtom215/rookery/internal/cache"
	"github.com/tomtom215/rookery/internal/models"
)

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

type gameOpt func(*models.ImportedGame)

func mappedTo(repID, variant string, confidence float64) gameOpt {
	return func(g *models.ImportedGame) {
		g.OpeningMapping = models.OpeningMapping{
			RepertoireID: repID, RepertoireName: "Rep " + repID, VariantName: variant,
			Confidence: confidence, Strategy: models.StrategyMovePrefix,
			RequiresManualReview: confidence < models.ReviewThreshold,
		}
	}
}

func playedDaysAgo(days int) gameOpt {
	return func(g *models.ImportedGame) {
		t := now.AddDate(0, 0, -days)
		g.PlayedAt = &t
	}
}

func game(line string, side *models.Orientation, result models.GameResult, opts ...gameOpt) models.ImportedGame {
	g := models.ImportedGame{
		Source:            models.SourceLichess,
		Result:            result,
		Orientation:       side,
		TimeControlBucket: models.BucketBlitz,
		OpeningDetection:  models.OpeningDetection{LineKey: line, LineMovesSAN: []string{"e4"}, ECO: "B20"},
		OpeningMapping:    models.Unmapped(),
	}
	for _, o := range opts {
		o(&g)
	}
	return g
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-3 }

func TestAggregate_Totals(t *testing.T) {
	white, black := models.White, models.Black
	games := []models.ImportedGame{
		game("l1", &white, models.ResultWhiteWins),
		game("l1", &black, models.ResultWhiteWins),
		game("l2", nil, models.ResultDraw),
		game("l2", nil, models.ResultBlackWins), // decisive with unknown side: unscored
		game("l3", &white, models.ResultUnknown, mappedTo("r1", "Main", 0.9)),
	}
	games[4].Source = models.SourceManual
	games[4].TimeControlBucket = models.BucketRapid

	sum := Aggregate(games, nil, now)

	if sum.Games != 5 || sum.Wins != 1 || sum.Losses != 1 || sum.Draws != 1 || sum.Unscored != 2 {
		t.Errorf("Totals = %+v", sum.Totals)
	}
	if sum.Mapped != 1 || sum.Unmapped != 4 || sum.NeedsReview != 4 {
		t.Errorf("mapping counts = %d/%d/%d", sum.Mapped, sum.Unmapped, sum.NeedsReview)
	}
	if !near(sum.AvgMappingConfidence, 0.9) {
		t.Errorf("AvgMappingConfidence = %v", sum.AvgMappingConfidence)
	}
	if sum.ByTimeControl[models.BucketBlitz].Games != 4 || sum.ByTimeControl[models.BucketRapid].Games != 1 {
		t.Errorf("ByTimeControl = %+v", sum.ByTimeControl)
	}
	if sum.BySource[models.SourceManual].Unscored != 1 || sum.BySource[models.SourceLichess].Games != 4 {
		t.Errorf("BySource = %+v", sum.BySource)
	}
	if sum.ByStrategy[models.StrategyNone] != 4 || sum.ByStrategy[models.StrategyMovePrefix] != 1 {
		t.Errorf("ByStrategy = %+v", sum.ByStrategy)
	}
}

func TestAggregate_EmptyInput(t *testing.T) {
	sum := Aggregate(nil, nil, now)
	if sum.Games != 0 || sum.Candidates == nil || len(sum.Candidates) != 0 || sum.AvgMappingConfidence != 0 {
		t.Errorf("Aggregate(nil) = %+v", sum)
	}
}

func TestAggregate_CandidateSignals(t *testing.T) {
	white := models.White
	games := []models.ImportedGame{
		game("lost", &white, models.ResultBlackWins, mappedTo("r1", "Najdorf", 0.6), playedDaysAgo(0)),
		game("lost", &white, models.ResultBlackWins, mappedTo("r1", "Najdorf", 0.8), playedDaysAgo(30)),
		game("lost", &white, models.ResultDraw, playedDaysAgo(60)),
		game("lost", &white, models.ResultWhiteWins, mappedTo("r1", "Najdorf", 1), playedDaysAgo(90)),
	}

	sum := Aggregate(games, nil, now)
	if len(sum.Candidates) != 1 {
		t.Fatalf("Candidates = %+v", sum.Candidates)
	}
	c := sum.Candidates[0]

	// scores: 0, 0, 0.5, 1 -> mean 0.375 -> underperformance 0.25
	if !near(c.Underperformance, 0.25) {
		t.Errorf("Underperformance = %v, want 0.25", c.Underperformance)
	}
	if c.Frequency != 1 {
		t.Errorf("Frequency = %v, want 1 for the busiest line", c.Frequency)
	}
	if c.Recency != 1 {
		t.Errorf("Recency = %v, want 1 for a game played today", c.Recency)
	}
	// mapped confidences 0.6, 0.8, 1.0 -> deviation mean(0.4, 0.2, 0) = 0.2
	if !near(c.Deviation, 0.2) || !near(c.AvgConfidence, 0.8) {
		t.Errorf("Deviation = %v, AvgConfidence = %v", c.Deviation, c.AvgConfidence)
	}
	if !near(c.RepertoireGap, 0.25) {
		t.Errorf("RepertoireGap = %v, want 0.25", c.RepertoireGap)
	}
	if c.RepertoireID != "r1" || c.VariantName != "Najdorf" || c.ECO != "B20" {
		t.Errorf("attribution = %+v", c)
	}
	if c.LastPlayedAt == nil || !c.LastPlayedAt.Equal(now) {
		t.Errorf("LastPlayedAt = %v", c.LastPlayedAt)
	}
	want := 0.3*0.25 + 0.25*1 + 0.15*1 + 0.15*0.2 + 0.15*0.25
	if !near(c.Score, want) {
		t.Errorf("Score = %v, want %v", c.Score, want)
	}
}

func TestAggregate_InclusionBar(t *testing.T) {
	white := models.White
	due := now.AddDate(0, 0, 3)
	games := []models.ImportedGame{
		game("single-win", &white, models.ResultWhiteWins, mappedTo("r1", "A", 1)),
		game("single-loss", &white, models.ResultBlackWins, mappedTo("r1", "B", 1)),
		game("single-deviation", &white, models.ResultWhiteWins, mappedTo("r1", "C", 0.3)),
		game("single-trained", &white, models.ResultWhiteWins, mappedTo("r2", "Caro Main", 1)),
		game("pair", &white, models.ResultWhiteWins, mappedTo("r1", "E", 1)),
		game("pair", &white, models.ResultWhiteWins, mappedTo("r1", "E", 1)),
	}
	signals := []models.TrainingSignal{
		{RepertoireID: "r2", VariantName: "  caro main ", Errors: 3, DueAt: &due},
		{RepertoireID: "r1", VariantName: "A", Errors: 0},
	}

	sum := Aggregate(games, signals, now)

	got := make(map[string]LineStudyCandidate)
	for _, c := range sum.Candidates {
		got[c.LineKey] = c
	}
	for _, key := range []string{"single-loss", "single-deviation", "single-trained", "pair"} {
		if _, ok := got[key]; !ok {
			t.Errorf("candidate %s missing", key)
		}
	}
	if _, ok := got["single-win"]; ok {
		t.Error("a single won, in-book game should not be a candidate")
	}
	trained := got["single-trained"]
	if trained.TrainingErrors != 3 || trained.TrainingDueAt == nil || !trained.TrainingDueAt.Equal(due) {
		t.Errorf("training join = %+v", trained)
	}

	for i := 1; i < len(sum.Candidates); i++ {
		if sum.Candidates[i].Score > sum.Candidates[i-1].Score {
			t.Errorf("candidates not sorted by score: %v", sum.Candidates)
		}
	}
}

type fakeStore struct {
	games      []models.ImportedGame
	gameCalls  int
	signalErr  error
	lastFilter models.GameFilter
}

func (f *fakeStore) ListGames(_ context.Context, _ string, flt models.GameFilter, _, _ int) ([]models.ImportedGame, error) {
	f.gameCalls++
	f.lastFilter = flt
	return f.games, nil
}

func (f *fakeStore) ListTrainingSignals(context.Context, string) ([]models.TrainingSignal, error) {
	return nil, f.signalErr
}

func TestService_Caching(t *testing.T) {
	white := models.White
	store := &fakeStore{games: []models.ImportedGame{game("l1", &white, models.ResultWhiteWins)}}
	c := cache.New("stats_test", time.Minute, 100)
	defer c.Stop()
	svc := NewService(store, store, c)

	src := models.SourceLichess
	f := Filters{Source: &src}

	first, err := svc.Summary(context.Background(), "u1", f)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	second, _ := svc.Summary(context.Background(), "u1", f)
	if store.gameCalls != 1 || first != second {
		t.Errorf("second Summary() should be served from cache (calls = %d)", store.gameCalls)
	}
	if store.lastFilter.Source == nil || *store.lastFilter.Source != src {
		t.Errorf("filter not forwarded: %+v", store.lastFilter)
	}

	if _, err := svc.Summary(context.Background(), "u1", Filters{}); err != nil || store.gameCalls != 2 {
		t.Errorf("different filters should miss the cache (calls = %d)", store.gameCalls)
	}

	svc.Invalidate("u1")
	if _, err := svc.Summary(context.Background(), "u1", f); err != nil || store.gameCalls != 3 {
		t.Errorf("Invalidate() should drop cached summaries (calls = %d)", store.gameCalls)
	}
}

func TestService_SignalError(t *testing.T) {
	store := &fakeStore{signalErr: errors.New("boom")}
	svc := NewService(store, store, nil)
	if _, err := svc.Summary(context.Background(), "u1", Filters{}); err == nil {
		t.Error("Summary() should surface signal load errors")
	}
	svc.Invalidate("u1")
}
