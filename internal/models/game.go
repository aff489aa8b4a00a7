// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package models

import (
	"time"

	"github.com/google/uuid"
)

// ReviewThreshold is the confidence below which a mapping always needs manual review.
const ReviewThreshold = 0.75

// ImportedGame is one persisted game owned by a single user.
//
// DedupeKey is unique per user. It is "<source>:<providerGameID>" when the
// provider supplies an ID and a content hash otherwise.
type ImportedGame struct {
	ID                uuid.UUID         `json:"id"`
	UserID            string            `json:"user_id"`
	Source            Source            `json:"source"`
	ProviderGameID    string            `json:"provider_game_id,omitempty"`
	DedupeKey         string            `json:"dedupe_key"`
	White             string            `json:"white"`
	Black             string            `json:"black"`
	WhiteRating       *int              `json:"white_rating,omitempty"`
	BlackRating       *int              `json:"black_rating,omitempty"`
	Result            GameResult        `json:"result"`
	TimeControl       string            `json:"time_control"`
	TimeControlBucket TimeControlBucket `json:"time_control_bucket"`
	Rated             *bool             `json:"rated,omitempty"`
	PlayedAt          *time.Time        `json:"played_at,omitempty"`
	PGN               string            `json:"pgn"`
	MovesSAN          []string          `json:"moves_san"`
	Orientation       *Orientation      `json:"orientation,omitempty"`
	Tags              []string          `json:"tags,omitempty"`
	OpeningDetection  OpeningDetection  `json:"opening_detection"`
	OpeningMapping    OpeningMapping    `json:"opening_mapping"`
	ImportedAt        time.Time         `json:"imported_at"`
}

// OpeningDetection is what the game's own headers and moves say about its opening.
type OpeningDetection struct {
	ECO               string   `json:"eco,omitempty"`
	OpeningName       string   `json:"opening_name,omitempty"`
	LineMovesSAN      []string `json:"line_moves_san"`
	LineKey           string   `json:"line_key"`
	Confidence        float64  `json:"confidence"`
	FallbackSignature string   `json:"fallback_signature,omitempty"`
}

// OpeningMapping attributes a game to one of the user's repertoires.
type OpeningMapping struct {
	RepertoireID         string          `json:"repertoire_id,omitempty"`
	RepertoireName       string          `json:"repertoire_name,omitempty"`
	VariantName          string          `json:"variant_name,omitempty"`
	Confidence           float64         `json:"confidence"`
	Strategy             MappingStrategy `json:"strategy"`
	RequiresManualReview bool            `json:"requires_manual_review"`
}

// Unmapped is the mapping result when nothing matched.
func Unmapped() OpeningMapping {
	return OpeningMapping{Confidence: 0, Strategy: StrategyNone, RequiresManualReview: true}
}

// IsMapped reports whether the mapping points at a repertoire.
func (m OpeningMapping) IsMapped() bool {
	return m.RepertoireID != "" && m.Strategy != StrategyNone
}

// Perspective returns the result from the user's point of view: 1 win,
// 0.5 draw, 0 loss. ok is false when the outcome cannot be attributed,
// which is the case for decisive games with unknown orientation and for "*".
func (g *ImportedGame) Perspective() (score float64, ok bool) {
	switch g.Result {
	case ResultDraw:
		return 0.5, true
	case ResultWhiteWins, ResultBlackWins:
		if g.Orientation == nil {
			return 0, false
		}
		whiteWon := g.Result == ResultWhiteWins
		if (*g.Orientation == White) == whiteWon {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
