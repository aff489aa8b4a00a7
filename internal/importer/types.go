// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package importer

import (
	"context"
	"time"

	"github.com/tomtom215/rookery/internal/database"
	"github.com/tomtom215/rookery/internal/events"
	"github.com/tomtom215/rookery/internal/models"
	"github.com/tomtom215/rookery/internal/provider"
)

// Request is one import call.
type Request struct {
	UserID string
	Source models.Source

	// Username and Token override the stored linked account for this call.
	Username string
	Token    string

	// PGN is the pasted text for manual imports.
	PGN string

	// Max caps the number of fetched games. Zero uses the adapter default.
	Max int

	// Tags are attached to every imported game and feed the tag mapping strategy.
	Tags []string

	// Orientation forces the user's side for every game in the batch.
	Orientation *models.Orientation
}

// Result summarizes an import. Every fetched game is counted exactly once in
// Imported, Duplicate or Failed.
type Result struct {
	ImportedCount  int       `json:"imported_count"`
	DuplicateCount int       `json:"duplicate_count"`
	FailedCount    int       `json:"failed_count"`
	ProcessedCount int       `json:"processed_count"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Feedback converts the result into the snapshot stored on the linked account.
func (r *Result) Feedback() models.SyncFeedback {
	return models.SyncFeedback{
		ImportedCount:  r.ImportedCount,
		DuplicateCount: r.DuplicateCount,
		FailedCount:    r.FailedCount,
		ProcessedCount: r.ProcessedCount,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
	}
}

// GameStore persists imported games.
type GameStore interface {
	LatestPlayedAt(ctx context.Context, userID string, source models.Source) (*time.Time, error)
	FindExistingDedupeKeys(ctx context.Context, userID string, keys []string) (map[string]bool, error)
	BulkInsertGames(ctx context.Context, games []*models.ImportedGame) (*database.BulkInsertResult, error)
}

// AccountStore tracks linked-account sync status.
type AccountStore interface {
	GetAccount(ctx context.Context, userID string, provider models.Source) (*models.LinkedAccount, error)
	UpsertAccount(ctx context.Context, userID string, provider models.Source, username, token string) (*models.LinkedAccount, error)
	MarkSyncStarted(ctx context.Context, userID string, provider models.Source) error
	MarkSyncCompleted(ctx context.Context, userID string, provider models.Source, feedback models.SyncFeedback) error
	MarkSyncFailed(ctx context.Context, userID string, provider models.Source, message string, at time.Time) error
}

// AdapterResolver returns the adapter for a source. *provider.Registry satisfies it.
type AdapterResolver interface {
	Get(source models.Source) (provider.Adapter, error)
}

// EventPublisher announces finished imports. *events.Bus satisfies it.
type EventPublisher interface {
	PublishImportCompleted(ctx context.Context, event *events.ImportCompleted) error
}
