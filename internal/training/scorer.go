// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

// Package training turns line study candidates into prioritized, explainable
// training plans and re-hydrates stored plans against live stats.
package training

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tomtom215/rookery/internal/models"
	"github.com/tomtom215/rookery/internal/stats"
)

const (
	// problemCap is the number of outstanding mistakes at which the
	// training-effort contribution saturates.
	problemCap = 4.0
	// problemScale damps the training-effort contribution.
	problemScale = 0.6

	effortHigh   = 0.7
	effortMedium = 0.4

	reasonThreshold = 0.5
)

// DefaultWeights returns the standard priority coefficients.
func DefaultWeights() models.PlanWeights {
	return models.PlanWeights{
		Underperformance: 0.35,
		Frequency:        0.2,
		Recency:          0.15,
		Deviation:        0.15,
		Problem:          0.15,
	}
}

// Score is the priority of one candidate with its explanation.
type Score struct {
	Priority float64
	Effort   models.Effort
	Reasons  []string
}

// ScoreCandidate computes
//
//	priority = Σ(w_i · s_i) + w_problem · min(1, errors/4) · 0.6
//
// over underperformance, frequency, recency and deviation.
func ScoreCandidate(c *stats.LineStudyCandidate, w models.PlanWeights) Score {
	problem := math.Min(1, float64(max(c.TrainingErrors, 0))/problemCap)

	priority := w.Underperformance*c.Underperformance +
		w.Frequency*c.Frequency +
		w.Recency*c.Recency +
		w.Deviation*c.Deviation +
		w.Problem*problem*problemScale

	priority = math.Round(priority*10000) / 10000
	return Score{
		Priority: priority,
		Effort:   EffortFor(priority),
		Reasons:  reasons(c),
	}
}

// EffortFor maps a priority onto the coarse effort scale.
func EffortFor(priority float64) models.Effort {
	switch {
	case priority > effortHigh:
		return models.EffortHigh
	case priority > effortMedium:
		return models.EffortMedium
	default:
		return models.EffortLow
	}
}

func reasons(c *stats.LineStudyCandidate) []string {
	out := []string{}
	if c.Underperformance >= reasonThreshold {
		out = append(out, fmt.Sprintf("underperforming: %d of %d games lost", c.Losses, c.Games))
	}
	if c.Frequency >= reasonThreshold {
		out = append(out, fmt.Sprintf("frequently played: %d games", c.Games))
	}
	if c.Recency >= reasonThreshold {
		out = append(out, "played recently")
	}
	if c.Deviation >= reasonThreshold {
		out = append(out, fmt.Sprintf("deviates from repertoire: average confidence %.2f", c.AvgConfidence))
	}
	if c.RepertoireGap >= reasonThreshold {
		out = append(out, "not covered by any repertoire")
	}
	if c.TrainingErrors > 0 {
		out = append(out, fmt.Sprintf("%d outstanding training mistakes", c.TrainingErrors))
	}
	return out
}

// BuildPlan scores every candidate and returns the plan sorted by priority,
// highest first. Ties keep line-key order.
func BuildPlan(userID string, candidates []stats.LineStudyCandidate, w models.PlanWeights, now time.Time) *models.TrainingPlan {
	items := make([]models.TrainingPlanItem, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		s := ScoreCandidate(c, w)
		item := itemFromCandidate(c)
		item.Priority = s.Priority
		item.Effort = s.Effort
		item.Reasons = s.Reasons
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].LineKey < items[j].LineKey
	})

	return &models.TrainingPlan{
		UserID:      userID,
		GeneratedAt: now,
		Weights:     w,
		Items:       items,
	}
}

func itemFromCandidate(c *stats.LineStudyCandidate) models.TrainingPlanItem {
	item := models.TrainingPlanItem{LineKey: c.LineKey}
	refresh(&item, c)
	return item
}

// refresh copies the live fields of c into item.
func refresh(item *models.TrainingPlanItem, c *stats.LineStudyCandidate) {
	item.ECO = c.ECO
	item.OpeningName = c.OpeningName
	item.RepertoireID = c.RepertoireID
	item.RepertoireName = c.RepertoireName
	item.VariantName = c.VariantName
	item.MovesSAN = append([]string{}, c.MovesSAN...)
	item.Games = c.Games
	item.Wins = c.Wins
	item.Draws = c.Draws
	item.Losses = c.Losses
	item.Underperformance = c.Underperformance
	item.Frequency = c.Frequency
	item.Recency = c.Recency
	item.Deviation = c.Deviation
	item.TrainingErrors = c.TrainingErrors
	item.TrainingDueAt = c.TrainingDueAt
}

// Hydrate overwrites the live fields of each stored item with the current
// candidate for its line. Priority and Done always come from the snapshot.
// Items whose line is absent from candidates are hidden when filtersActive
// and returned unchanged otherwise. plan itself is not modified.
func Hydrate(plan *models.TrainingPlan, candidates []stats.LineStudyCandidate, filtersActive bool) *models.TrainingPlan {
	byLine := make(map[string]*stats.LineStudyCandidate, len(candidates))
	for i := range candidates {
		byLine[candidates[i].LineKey] = &candidates[i]
	}

	out := *plan
	out.Items = make([]models.TrainingPlanItem, 0, len(plan.Items))
	for _, stored := range plan.Items {
		item := stored
		item.MovesSAN = append([]string{}, stored.MovesSAN...)
		item.Reasons = append([]string{}, stored.Reasons...)

		c, ok := byLine[item.LineKey]
		if !ok {
			if filtersActive {
				continue
			}
			out.Items = append(out.Items, item)
			continue
		}

		refresh(&item, c)
		item.Reasons = reasons(c)
		out.Items = append(out.Items, item)
	}
	return &out
}
