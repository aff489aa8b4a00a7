// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package models

import "time"

// PlanWeights are the coefficients of the training-plan priority formula.
// They conceptually sum to 1.
type PlanWeights struct {
	Underperformance float64 `json:"underperformance"`
	Frequency        float64 `json:"frequency"`
	Recency          float64 `json:"recency"`
	Deviation        float64 `json:"deviation"`
	Problem          float64 `json:"problem"`
}

// TrainingPlan is a persisted snapshot of prioritized practice lines.
type TrainingPlan struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Weights     PlanWeights        `json:"weights"`
	Items       []TrainingPlanItem `json:"items"`
}

// TrainingPlanItem is one line to practice.
//
// Priority and Done survive re-hydration; the remaining fields are refreshed
// from live stats on every read.
type TrainingPlanItem struct {
	LineKey          string     `json:"line_key"`
	ECO              string     `json:"eco,omitempty"`
	OpeningName      string     `json:"opening_name,omitempty"`
	RepertoireID     string     `json:"repertoire_id,omitempty"`
	RepertoireName   string     `json:"repertoire_name,omitempty"`
	VariantName      string     `json:"variant_name,omitempty"`
	MovesSAN         []string   `json:"moves_san"`
	Games            int        `json:"games"`
	Wins             int        `json:"wins"`
	Draws            int        `json:"draws"`
	Losses           int        `json:"losses"`
	Underperformance float64    `json:"underperformance"`
	Frequency        float64    `json:"frequency"`
	Recency          float64    `json:"recency"`
	Deviation        float64    `json:"deviation"`
	TrainingErrors   int        `json:"training_errors"`
	TrainingDueAt    *time.Time `json:"training_due_at,omitempty"`
	Priority         float64    `json:"priority"`
	Reasons          []string   `json:"reasons"`
	Effort           Effort     `json:"effort"`
	Done             bool       `json:"done"`
}

// TrainingSignal is the read-only training-effort record kept by the
// spaced-repetition collaborator for one repertoire variant.
type TrainingSignal struct {
	RepertoireID   string     `json:"repertoire_id"`
	VariantName    string     `json:"variant_name"`
	Errors         int        `json:"errors"`
	DueAt          *time.Time `json:"due_at,omitempty"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
}
