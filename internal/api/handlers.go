// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/rookery/internal/importer"
	"github.com/tomtom215/rookery/internal/models"
	"github.com/tomtom215/rookery/internal/repertoire"
	"github.com/tomtom215/rookery/internal/stats"
)

// Importer runs imports. *importer.Orchestrator satisfies it.
type Importer interface {
	Import(ctx context.Context, req importer.Request) (*importer.Result, error)
}

// AccountStore manages linked accounts.
type AccountStore interface {
	ListAccounts(ctx context.Context, userID string) ([]models.LinkedAccount, error)
	UpsertAccount(ctx context.Context, userID string, provider models.Source, username, token string) (*models.LinkedAccount, error)
	ResetAccounts(ctx context.Context, userID string, provider *models.Source) (int64, error)
}

// GameStore reads and deletes imported games.
type GameStore interface {
	ListGames(ctx context.Context, userID string, f models.GameFilter, limit, offset int) ([]models.ImportedGame, error)
	CountGames(ctx context.Context, userID string, f models.GameFilter) (int, error)
	GetGame(ctx context.Context, userID string, id uuid.UUID) (*models.ImportedGame, error)
	DeleteGame(ctx context.Context, userID string, id uuid.UUID) error
	DeleteGames(ctx context.Context, userID string, f models.GameFilter) (int64, error)
	UpdateMapping(ctx context.Context, userID string, id uuid.UUID, m models.OpeningMapping) error
}

// RepertoireReader resolves a repertoire for manual mapping.
type RepertoireReader interface {
	GetRepertoire(ctx context.Context, userID, id string) (*repertoire.Repertoire, error)
}

// StatsService serves cached stats. *stats.Service satisfies it.
type StatsService interface {
	Summary(ctx context.Context, userID string, f stats.Filters) (*stats.Summary, error)
	Invalidate(userID string)
}

// TrainingService manages training plans. *training.Service satisfies it.
type TrainingService interface {
	Regenerate(ctx context.Context, userID string) (*models.TrainingPlan, error)
	Latest(ctx context.Context, userID string, f stats.Filters) (*models.TrainingPlan, error)
	SetItemDone(ctx context.Context, userID, planID, lineKey string, done bool) (*models.TrainingPlan, error)
}

// Pinger checks a dependency for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies groups everything the handlers call.
type Dependencies struct {
	Importer    Importer
	Accounts    AccountStore
	Games       GameStore
	Repertoires RepertoireReader
	Stats       StatsService
	Training    TrainingService
	DB          Pinger

	// VariantDepth bounds variant extraction when validating manual mappings.
	VariantDepth int
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_imports.go: POST /imports
//   - handlers_accounts.go: linked accounts
//   - handlers_games.go: game listing, deletion and manual mapping
//   - handlers_stats.go: stats and training plans
//   - handlers_health.go: liveness and readiness
type Handler struct {
	deps      Dependencies
	startTime time.Time
}

// NewHandler creates a new API handler.
func NewHandler(deps Dependencies) *Handler {
	if deps.VariantDepth <= 0 {
		deps.VariantDepth = repertoire.DefaultVariantDepth
	}
	return &Handler{deps: deps, startTime: time.Now()}
}
