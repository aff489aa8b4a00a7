// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomtom215/rookery/internal/apperrors"
	"github.com/tomtom215/rookery/internal/mapping"
	"github.com/tomtom215/rookery/internal/models"
	"github.com/tomtom215/rookery/internal/opening"
	"github.com/tomtom215/rookery/internal/provider"
	"github.com/tomtom215/rookery/internal/repertoire"
)

func dedupeKey(source models.Source, fg *provider.FetchedGame) string {
	return opening.DedupeKey(source, fg.ProviderGameID, fg.PlayedAt,
		fg.Game.Header("White"), fg.Game.Header("Black"), fg.Game.Result(), fg.Game.MovesSAN)
}

// buildGame runs detection and mapping for one fetched game. A panic in
// either is recovered and reported like any other per-game error.
func (o *Orchestrator) buildGame(
	ctx context.Context,
	batch *repertoire.BatchCache,
	req Request,
	username, key string,
	fg *provider.FetchedGame,
) (game *models.ImportedGame, err error) {
	defer func() {
		if r := recover(); r != nil {
			game = nil
			err = &apperrors.PerGameProcessingError{DedupeKey: key, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	white := fg.Game.Header("White")
	black := fg.Game.Header("Black")

	orientation := req.Orientation
	if orientation == nil {
		orientation = opening.DetectOrientation(white, black, username)
	}

	detection := opening.Detect(fg.Game.Headers, fg.Game.MovesSAN, o.cfg.MaxPlies)

	reps, err := batch.Get(ctx, orientation)
	if err != nil {
		return nil, &apperrors.PerGameProcessingError{DedupeKey: key, Err: err}
	}
	tags := normalizeTags(req.Tags)
	m := mapping.Map(mapping.Input{Detection: detection, Orientation: orientation, Tags: tags}, reps)

	timeControl := fg.Game.Header("TimeControl")
	return &models.ImportedGame{
		UserID:            req.UserID,
		Source:            req.Source,
		ProviderGameID:    fg.ProviderGameID,
		DedupeKey:         key,
		White:             white,
		Black:             black,
		WhiteRating:       opening.ParseRating(fg.Game.Header("WhiteElo")),
		BlackRating:       opening.ParseRating(fg.Game.Header("BlackElo")),
		Result:            fg.Game.Result(),
		TimeControl:       timeControl,
		TimeControlBucket: opening.TimeControlBucket(timeControl),
		Rated:             fg.Rated,
		PlayedAt:          fg.PlayedAt,
		PGN:               fg.PGN,
		MovesSAN:          fg.Game.MovesSAN,
		Orientation:       orientation,
		Tags:              tags,
		OpeningDetection:  detection,
		OpeningMapping:    m,
	}, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		k := strings.ToLower(t)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}
