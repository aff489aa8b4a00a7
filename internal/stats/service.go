// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/rookery/internal/cache"
	"github.com/tomtom215/rookery/internal/events"
	"github.com/tomtom215/rookery/internal/models"
)

// GameLister loads a user's games. limit 0 returns every match.
type GameLister interface {
	ListGames(ctx context.Context, userID string, f models.GameFilter, limit, offset int) ([]models.ImportedGame, error)
}

// SignalLister loads the training-effort signals of a user.
type SignalLister interface {
	ListTrainingSignals(ctx context.Context, userID string) ([]models.TrainingSignal, error)
}

// Service serves summaries through the per-user stats cache.
type Service struct {
	games   GameLister
	signals SignalLister
	cache   *cache.Cache
	now     func() time.Time
}

// NewService creates a Service. c may be nil to disable caching.
func NewService(games GameLister, signals SignalLister, c *cache.Cache) *Service {
	return &Service{games: games, signals: signals, cache: c, now: time.Now}
}

// Summary aggregates the user's games matching f.
func (s *Service) Summary(ctx context.Context, userID string, f Filters) (*Summary, error) {
	key := cache.UserKey(events.StatsNamespace, userID, f)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if sum, ok := v.(*Summary); ok {
				return sum, nil
			}
		}
	}

	games, err := s.games.ListGames(ctx, userID, f, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("load games: %w", err)
	}
	signals, err := s.signals.ListTrainingSignals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load training signals: %w", err)
	}

	sum := Aggregate(games, signals, s.now().UTC())
	if s.cache != nil {
		s.cache.Set(key, &sum)
	}
	return &sum, nil
}

// Invalidate drops every cached summary of userID.
func (s *Service) Invalidate(userID string) {
	if s.cache != nil {
		s.cache.InvalidateUser(events.StatsNamespace, userID)
	}
}
