// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

// Package provider fetches raw games from external chess servers or from
// pasted PGN text.
//
// Three adapters implement Adapter:
//
//   - LichessAdapter streams an NDJSON export in one authenticated request.
//   - ChessComAdapter walks monthly archives with retry, backoff and pacing.
//   - ManualAdapter splits pasted PGN without any network access.
//
// All outbound HTTP goes through a BreakerClient so a failing provider trips
// a circuit instead of being hammered by the scheduler.
package provider

import (
	"context"
	"time"

	"github.com/tomtom215/rookery/internal/apperrors"
	"github.com/tomtom215/rookery/internal/models"
	"github.com/tomtom215/rookery/internal/pgn"
)

// ImportOptions are the per-call inputs to an adapter.
type ImportOptions struct {
	Username string
	Token    string

	// Since limits the fetch to games played at or after this instant.
	Since *time.Time

	// Max caps the number of returned games. Zero uses the adapter default.
	Max int

	// PGN is the pasted text for the manual adapter.
	PGN string
}

// FetchedGame is one game returned by an adapter, already parsed.
type FetchedGame struct {
	// ProviderGameID is empty for manual games.
	ProviderGameID string
	PGN            string
	Game           pgn.Game
	PlayedAt       *time.Time
	Rated          *bool
}

// Adapter fetches games from one source.
type Adapter interface {
	Source() models.Source
	ImportGames(ctx context.Context, opts ImportOptions) ([]FetchedGame, error)
}

// Registry resolves the adapter for a source.
type Registry struct {
	adapters map[models.Source]Adapter
}

// NewRegistry indexes adapters by their Source. Later adapters replace
// earlier ones for the same source.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Source]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Source()] = a
	}
	return r
}

// Get returns the adapter for source.
func (r *Registry) Get(source models.Source) (Adapter, error) {
	a, ok := r.adapters[source]
	if !ok {
		return nil, apperrors.NewValidationError("source", "no adapter registered for %q", source)
	}
	return a, nil
}

func boolPtr(b bool) *bool { return &b }

func maxOrDefault(requested, fallback int) int {
	if requested > 0 {
		return requested
	}
	return fallback
}
