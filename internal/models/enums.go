// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package models

import (
	"strings"

	"github.com/tomtom215/rookery/internal/apperrors"
)

// Source identifies where an imported game came from.
type Source string

const (
	// SourceLichess is the streaming-API provider (NDJSON export).
	SourceLichess Source = "lichess"
	// SourceChessCom is the monthly-archive provider.
	SourceChessCom Source = "chesscom"
	// SourceManual is hand-pasted PGN.
	SourceManual Source = "manual"
)

// Sources lists every valid source in a stable order.
var Sources = []Source{SourceLichess, SourceChessCom, SourceManual}

// Providers lists the sources that can back a linked account.
var Providers = []Source{SourceLichess, SourceChessCom}

// ParseSource decodes s into a Source.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceLichess:
		return SourceLichess, nil
	case SourceChessCom:
		return SourceChessCom, nil
	case SourceManual:
		return SourceManual, nil
	}
	return "", apperrors.NewValidationError("source", "must be one of lichess, chesscom, manual (got %q)", s)
}

// ParseProvider decodes s into a Source that can back a linked account.
func ParseProvider(s string) (Source, error) {
	src, err := ParseSource(s)
	if err != nil {
		return "", apperrors.NewValidationError("provider", "must be one of lichess, chesscom (got %q)", s)
	}
	if !src.IsProvider() {
		return "", apperrors.NewValidationError("provider", "manual imports have no linked account")
	}
	return src, nil
}

// IsProvider reports whether s is backed by an external service.
func (s Source) IsProvider() bool {
	return s == SourceLichess || s == SourceChessCom
}

// GameResult is the PGN result token.
type GameResult string

const (
	ResultWhiteWins GameResult = "1-0"
	ResultBlackWins GameResult = "0-1"
	ResultDraw      GameResult = "1/2-1/2"
	ResultUnknown   GameResult = "*"
)

// TimeControlBucket groups time controls by estimated game duration.
type TimeControlBucket string

const (
	BucketBullet    TimeControlBucket = "bullet"
	BucketBlitz     TimeControlBucket = "blitz"
	BucketRapid     TimeControlBucket = "rapid"
	BucketClassical TimeControlBucket = "classical"
)

// ParseTimeControlBucket decodes s into a TimeControlBucket.
func ParseTimeControlBucket(s string) (TimeControlBucket, error) {
	switch b := TimeControlBucket(strings.ToLower(strings.TrimSpace(s))); b {
	case BucketBullet, BucketBlitz, BucketRapid, BucketClassical:
		return b, nil
	}
	return "", apperrors.NewValidationError("timeControlBucket", "must be one of bullet, blitz, rapid, classical (got %q)", s)
}

// Orientation is the side the user played, or the side a repertoire is built for.
type Orientation string

const (
	White Orientation = "white"
	Black Orientation = "black"
)

// ParseOrientation decodes s into an Orientation.
func ParseOrientation(s string) (Orientation, error) {
	switch o := Orientation(strings.ToLower(strings.TrimSpace(s))); o {
	case White, Black:
		return o, nil
	}
	return "", apperrors.NewValidationError("orientation", "must be white or black (got %q)", s)
}

// MappingStrategy names the heuristic that produced an OpeningMapping.
type MappingStrategy string

const (
	StrategyECO        MappingStrategy = "eco"
	StrategyMovePrefix MappingStrategy = "movePrefix"
	StrategyFuzzyName  MappingStrategy = "fuzzyName"
	StrategyTagOverlap MappingStrategy = "tagOverlap"
	StrategyManual     MappingStrategy = "manual"
	StrategyNone       MappingStrategy = "none"
)

// MappedFilter selects games by mapping state.
type MappedFilter string

const (
	MappedOnly   MappedFilter = "mapped"
	UnmappedOnly MappedFilter = "unmapped"
	MappedAll    MappedFilter = "all"
)

// ParseMappedFilter decodes s; empty means all.
func ParseMappedFilter(s string) (MappedFilter, error) {
	switch m := MappedFilter(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MappedAll, nil
	case MappedOnly, UnmappedOnly, MappedAll:
		return m, nil
	}
	return "", apperrors.NewValidationError("mapped", "must be one of mapped, unmapped, all (got %q)", s)
}

// SyncStatus is the linked-account state machine.
type SyncStatus string

const (
	StatusIdle      SyncStatus = "idle"
	StatusRunning   SyncStatus = "running"
	StatusCompleted SyncStatus = "completed"
	StatusFailed    SyncStatus = "failed"
)

// Effort is the coarse practice cost of a training-plan item.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)
