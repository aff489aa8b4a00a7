// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package provider

import (
	"context"
	"strings"

	"github.com/tomtom215/rookery/internal/apperrors"
	"github.com/tomtom215/rookery/internal/models"
	"github.com/tomtom215/rookery/internal/pgn"
)

// ManualAdapter turns pasted PGN text into games. It never touches the network.
type ManualAdapter struct{}

// NewManualAdapter creates the adapter.
func NewManualAdapter() *ManualAdapter { return &ManualAdapter{} }

// Source implements Adapter.
func (ManualAdapter) Source() models.Source { return models.SourceManual }

// ImportGames splits opts.PGN into games. Chunks without headers or moves
// are dropped. Max, when set, keeps the first games in paste order.
func (ManualAdapter) ImportGames(ctx context.Context, opts ImportOptions) ([]FetchedGame, error) {
	if strings.TrimSpace(opts.PGN) == "" {
		return nil, apperrors.NewValidationError("pgn", "is required for manual imports")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsed := pgn.Normalize(opts.PGN)
	if opts.Max > 0 && len(parsed) > opts.Max {
		parsed = parsed[:opts.Max]
	}

	games := make([]FetchedGame, 0, len(parsed))
	for _, g := range parsed {
		games = append(games, FetchedGame{
			PGN:      g.Raw,
			Game:     g,
			PlayedAt: g.PlayedAt(),
		})
	}
	return games, nil
}
