// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package training

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/rookery/internal/logging"
	"github.com/tomtom215/rookery/internal/models"
	"github.com/tomtom215/rookery/internal/stats"
)

// PlanStore persists plan snapshots.
type PlanStore interface {
	SavePlan(ctx context.Context, plan *models.TrainingPlan) error
	LatestPlan(ctx context.Context, userID string) (*models.TrainingPlan, error)
	SetPlanItemDone(ctx context.Context, userID, planID, lineKey string, done bool) (*models.TrainingPlan, error)
}

// Summarizer returns live stats for a user.
type Summarizer interface {
	Summary(ctx context.Context, userID string, f stats.Filters) (*stats.Summary, error)
}

// Service generates and reads training plans.
type Service struct {
	plans   PlanStore
	stats   Summarizer
	weights models.PlanWeights
	now     func() time.Time
}

// NewService creates a Service using DefaultWeights.
func NewService(plans PlanStore, summarizer Summarizer) *Service {
	return &Service{plans: plans, stats: summarizer, weights: DefaultWeights(), now: time.Now}
}

// Regenerate builds a new plan from the user's unfiltered stats and stores it.
func (s *Service) Regenerate(ctx context.Context, userID string) (*models.TrainingPlan, error) {
	sum, err := s.stats.Summary(ctx, userID, stats.Filters{})
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}

	plan := BuildPlan(userID, sum.Candidates, s.weights, s.now().UTC())
	if err := s.plans.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	logging.Info().Str("user_id", userID).Str("plan_id", plan.ID).Int("items", len(plan.Items)).
		Msg("Training plan generated")
	return plan, nil
}

// Latest returns the newest plan hydrated against stats filtered by f.
func (s *Service) Latest(ctx context.Context, userID string, f stats.Filters) (*models.TrainingPlan, error) {
	plan, err := s.plans.LatestPlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum, err := s.stats.Summary(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	return Hydrate(plan, sum.Candidates, f.Active()), nil
}

// SetItemDone flips the done flag of one plan item.
func (s *Service) SetItemDone(ctx context.Context, userID, planID, lineKey string, done bool) (*models.TrainingPlan, error) {
	return s.plans.SetPlanItemDone(ctx, userID, planID, lineKey, done)
}
