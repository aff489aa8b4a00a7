// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

// Package stats aggregates a user's imported games into totals and ranked
// line study candidates.
//
// Candidate signals, all in [0, 1]:
//
//	underperformance  (0.5 - mean perspective score) * 2, floored at 0
//	frequency         games on the line / games on the busiest line
//	recency           exp(-days since last game / 30)
//	deviation         mean (1 - confidence) over the line's mapped games
//	repertoireGap     unmapped games / games
//
// Candidates are ranked by 0.3·underperformance + 0.25·frequency +
// 0.15·recency + 0.15·deviation + 0.15·repertoireGap.
package stats

import (
	"math"
	"sort"
	"strings"
	"time"

	mstats "github.com/montanaflynn/stats"

	"github.com/tomtom215/rookery/internal/models"
)

// Filters are the request-time filters applied before aggregation.
type Filters = models.GameFilter

const (
	recencyHalfLifeDays = 30.0

	inclusionMinGames         = 2
	inclusionUnderperformance = 0.5
	inclusionDeviation        = 0.5

	rankUnderperformance = 0.3
	rankFrequency        = 0.25
	rankRecency          = 0.15
	rankDeviation        = 0.15
	rankGap              = 0.15
)

// Totals is a win/draw/loss breakdown from the user's perspective.
// Unscored counts decisive games with unknown orientation and unfinished games.
type Totals struct {
	Games    int `json:"games"`
	Wins     int `json:"wins"`
	Draws    int `json:"draws"`
	Losses   int `json:"losses"`
	Unscored int `json:"unscored"`
}

func (t *Totals) add(g *models.ImportedGame) {
	t.Games++
	score, ok := g.Perspective()
	switch {
	case !ok:
		t.Unscored++
	case score == 1:
		t.Wins++
	case score == 0.5:
		t.Draws++
	default:
		t.Losses++
	}
}

// LineStudyCandidate is one opening line worth studying.
type LineStudyCandidate struct {
	LineKey        string   `json:"line_key"`
	ECO            string   `json:"eco,omitempty"`
	OpeningName    string   `json:"opening_name,omitempty"`
	RepertoireID   string   `json:"repertoire_id,omitempty"`
	RepertoireName string   `json:"repertoire_name,omitempty"`
	VariantName    string   `json:"variant_name,omitempty"`
	MovesSAN       []string `json:"moves_san"`
	Totals         `json:"totals"`
	Mapped         int        `json:"mapped"`
	Unmapped       int        `json:"unmapped"`
	NeedsReview    int        `json:"needs_review"`
	AvgConfidence  float64    `json:"avg_confidence"`
	LastPlayedAt   *time.Time `json:"last_played_at,omitempty"`

	Underperformance float64 `json:"underperformance"`
	Frequency        float64 `json:"frequency"`
	Recency          float64 `json:"recency"`
	Deviation        float64 `json:"deviation"`
	RepertoireGap    float64 `json:"repertoire_gap"`

	TrainingErrors int        `json:"training_errors"`
	TrainingDueAt  *time.Time `json:"training_due_at,omitempty"`

	Score float64 `json:"score"`
}

// Summary is the aggregate view of a set of games.
type Summary struct {
	Totals
	Mapped               int                                 `json:"mapped"`
	Unmapped             int                                 `json:"unmapped"`
	NeedsReview          int                                 `json:"needs_review"`
	AvgMappingConfidence float64                             `json:"avg_mapping_confidence"`
	ByTimeControl        map[models.TimeControlBucket]Totals `json:"by_time_control"`
	BySource             map[models.Source]Totals            `json:"by_source"`
	ByStrategy           map[models.MappingStrategy]int      `json:"by_strategy"`
	Candidates           []LineStudyCandidate                `json:"candidates"`
	GeneratedAt          time.Time                           `json:"generated_at"`
}

type lineAcc struct {
	cand        LineStudyCandidate
	scores      []float64
	confidences []float64
	deviations  []float64
	attribution map[attributionKey]int
}

type attributionKey struct {
	repID, repName, variant string
}

// Aggregate computes the summary of games at now. signals are joined to
// candidates by repertoire ID and case-insensitive variant name.
func Aggregate(games []models.ImportedGame, signals []models.TrainingSignal, now time.Time) Summary {
	sum := Summary{
		ByTimeControl: make(map[models.TimeControlBucket]Totals),
		BySource:      make(map[models.Source]Totals),
		ByStrategy:    make(map[models.MappingStrategy]int),
		Candidates:    []LineStudyCandidate{},
		GeneratedAt:   now,
	}

	lines := make(map[string]*lineAcc)
	order := make([]string, 0)
	var confidences []float64

	for i := range games {
		g := &games[i]
		sum.Totals.add(g)

		tc := sum.ByTimeControl[g.TimeControlBucket]
		tc.add(g)
		sum.ByTimeControl[g.TimeControlBucket] = tc

		src := sum.BySource[g.Source]
		src.add(g)
		sum.BySource[g.Source] = src

		sum.ByStrategy[g.OpeningMapping.Strategy]++

		mapped := g.OpeningMapping.IsMapped()
		if mapped {
			sum.Mapped++
			confidences = append(confidences, g.OpeningMapping.Confidence)
		} else {
			sum.Unmapped++
		}
		if g.OpeningMapping.RequiresManualReview {
			sum.NeedsReview++
		}

		key := g.OpeningDetection.LineKey
		if key == "" {
			continue
		}
		acc, ok := lines[key]
		if !ok {
			acc = &lineAcc{
				cand:        LineStudyCandidate{LineKey: key, MovesSAN: append([]string{}, g.OpeningDetection.LineMovesSAN...)},
				attribution: make(map[attributionKey]int),
			}
			lines[key] = acc
			order = append(order, key)
		}
		acc.observe(g)
	}

	sum.AvgMappingConfidence = mean(confidences)

	maxGames := 0
	for _, acc := range lines {
		if acc.cand.Games > maxGames {
			maxGames = acc.cand.Games
		}
	}

	signalIndex := indexSignals(signals)
	for _, key := range order {
		c := lines[key].finish(maxGames, now)
		if s, ok := signalIndex[signalKey(c.RepertoireID, c.VariantName)]; ok {
			c.TrainingErrors = s.Errors
			c.TrainingDueAt = s.DueAt
		}
		if !included(&c) {
			continue
		}
		sum.Candidates = append(sum.Candidates, c)
	}

	sort.SliceStable(sum.Candidates, func(i, j int) bool {
		a, b := sum.Candidates[i], sum.Candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.LineKey < b.LineKey
	})
	return sum
}

func (a *lineAcc) observe(g *models.ImportedGame) {
	c := &a.cand
	c.Totals.add(g)
	if s, ok := g.Perspective(); ok {
		a.scores = append(a.scores, s)
	}

	if c.ECO == "" {
		c.ECO = g.OpeningDetection.ECO
	}
	if c.OpeningName == "" {
		c.OpeningName = g.OpeningDetection.OpeningName
	}
	if g.PlayedAt != nil && (c.LastPlayedAt == nil || g.PlayedAt.After(*c.LastPlayedAt)) {
		t := *g.PlayedAt
		c.LastPlayedAt = &t
	}

	m := g.OpeningMapping
	if m.RequiresManualReview {
		c.NeedsReview++
	}
	if !m.IsMapped() {
		c.Unmapped++
		return
	}
	c.Mapped++
	a.confidences = append(a.confidences, m.Confidence)
	a.deviations = append(a.deviations, 1-m.Confidence)
	a.attribution[attributionKey{m.RepertoireID, m.RepertoireName, m.VariantName}]++
}

func (a *lineAcc) finish(maxGames int, now time.Time) LineStudyCandidate {
	c := a.cand

	// The line is attributed to its most frequent mapping; ties go to the
	// lowest repertoire ID then variant name.
	var best attributionKey
	bestN := 0
	for k, n := range a.attribution {
		if n > bestN || (n == bestN && (k.repID < best.repID || (k.repID == best.repID && k.variant < best.variant))) {
			best, bestN = k, n
		}
	}
	c.RepertoireID, c.RepertoireName, c.VariantName = best.repID, best.repName, best.variant

	c.AvgConfidence = round4(mean(a.confidences))
	if len(a.scores) > 0 {
		c.Underperformance = round4(math.Max(0, (0.5-mean(a.scores))*2))
	}
	if maxGames > 0 {
		c.Frequency = round4(float64(c.Games) / float64(maxGames))
	}
	if c.LastPlayedAt != nil {
		days := math.Max(0, now.Sub(*c.LastPlayedAt).Hours()/24)
		c.Recency = round4(math.Exp(-days / recencyHalfLifeDays))
	}
	c.Deviation = round4(mean(a.deviations))
	if c.Games > 0 {
		c.RepertoireGap = round4(float64(c.Unmapped) / float64(c.Games))
	}

	c.Score = round4(rankUnderperformance*c.Underperformance +
		rankFrequency*c.Frequency +
		rankRecency*c.Recency +
		rankDeviation*c.Deviation +
		rankGap*c.RepertoireGap)
	return c
}

func included(c *LineStudyCandidate) bool {
	return c.Games >= inclusionMinGames ||
		c.Underperformance >= inclusionUnderperformance ||
		c.Deviation >= inclusionDeviation ||
		c.TrainingErrors > 0
}

func indexSignals(signals []models.TrainingSignal) map[string]models.TrainingSignal {
	idx := make(map[string]models.TrainingSignal, len(signals))
	for _, s := range signals {
		idx[signalKey(s.RepertoireID, s.VariantName)] = s
	}
	return idx
}

func signalKey(repertoireID, variant string) string {
	return repertoireID + "\x00" + strings.ToLower(strings.TrimSpace(variant))
}

// mean returns 0 for empty input.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m, err := mstats.Mean(values)
	if err != nil {
		return 0
	}
	return m
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
