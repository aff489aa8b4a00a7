// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

// Package mapping attributes a detected opening to one of the user's
// repertoires.
//
// Four independent strategies score every repertoire:
//
//	eco         repertoire name contains the detected ECO code   0.92, never gated
//	movePrefix  best variant longest-common-prefix ratio          ratio, gated below 0.75
//	fuzzyName   opening name vs repertoire and variant names      1 / 0.82 / token overlap, gated below 0.75
//	tagOverlap  a caller tag is contained in the repertoire name  0.76, never gated
//
// When the ECO code matches a repertoire, eco is that repertoire's signal.
// Otherwise the repertoire's strongest remaining signal is used. Across
// repertoires only a strictly greater confidence replaces the current best,
// and repertoires are visited in ID order, so ties resolve to the lowest
// repertoire ID. A final confidence below 0.75 always requires manual review.
package mapping

import (
	"math"
	"strings"
	"unicode"

	"github.com/tomtom215/rookery/internal/models"
	"github.com/tomtom215/rookery/internal/repertoire"
)

const (
	ecoConfidence       = 0.92
	containsConfidence  = 0.82
	tagConfidence       = 0.76
	exactNameConfidence = 1.0
)

// Input is everything the mapper needs to know about one game.
type Input struct {
	Detection   models.OpeningDetection
	Orientation *models.Orientation
	Tags        []string
}

type candidate struct {
	strategy   models.MappingStrategy
	confidence float64
	review     bool
	variant    string
}

// Map scores in against every repertoire and returns the best mapping.
// repertoires must already be in the desired tie-break order; the batch
// cache returns them sorted by ID.
func Map(in Input, repertoires []repertoire.Metadata) models.OpeningMapping {
	var (
		best    candidate
		bestRep *repertoire.Metadata
	)

	for i := range repertoires {
		rep := &repertoires[i]
		c, ok := evaluate(in, rep)
		if !ok {
			continue
		}
		if bestRep == nil || c.confidence > best.confidence {
			best = c
			bestRep = rep
		}
	}

	if bestRep == nil {
		return models.Unmapped()
	}

	review := best.review
	if conflictingOrientation(in.Orientation, bestRep.Orientation) {
		review = true
	}
	if best.confidence < models.ReviewThreshold {
		review = true
	}

	return models.OpeningMapping{
		RepertoireID:         bestRep.ID,
		RepertoireName:       bestRep.Name,
		VariantName:          best.variant,
		Confidence:           round4(best.confidence),
		Strategy:             best.strategy,
		RequiresManualReview: review,
	}
}

// Manual builds the mapping recorded when a user attributes a game by hand.
func Manual(rep repertoire.Metadata, variantName string) models.OpeningMapping {
	return models.OpeningMapping{
		RepertoireID:   rep.ID,
		RepertoireName: rep.Name,
		VariantName:    strings.TrimSpace(variantName),
		Confidence:     1,
		Strategy:       models.StrategyManual,
	}
}

func evaluate(in Input, rep *repertoire.Metadata) (candidate, bool) {
	line := in.Detection.LineMovesSAN
	match, hasMatch := repertoire.BestVariantMatch(rep.Variants, line)

	repName := strings.ToLower(rep.Name)
	if eco := strings.ToLower(in.Detection.ECO); eco != "" && strings.Contains(repName, eco) {
		c := candidate{strategy: models.StrategyECO, confidence: ecoConfidence}
		if hasMatch {
			c.variant = match.Variant.Name
		}
		return c, true
	}

	var (
		best  candidate
		found bool
	)
	consider := func(c candidate) {
		if c.confidence <= 0 {
			return
		}
		if !found || c.confidence > best.confidence {
			best = c
			found = true
		}
	}

	if hasMatch {
		consider(candidate{
			strategy:   models.StrategyMovePrefix,
			confidence: match.Ratio,
			review:     match.Ratio < models.ReviewThreshold,
			variant:    match.Variant.Name,
		})
	}

	if name := in.Detection.OpeningName; name != "" {
		fuzzy := candidate{strategy: models.StrategyFuzzyName, confidence: Similarity(name, rep.Name)}
		for _, v := range rep.Variants {
			for _, label := range []string{v.Name, v.FullName} {
				if s := Similarity(name, label); s > fuzzy.confidence {
					fuzzy.confidence = s
					fuzzy.variant = v.Name
				}
			}
		}
		fuzzy.review = fuzzy.confidence < models.ReviewThreshold
		consider(fuzzy)
	}

	for _, tag := range in.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" && strings.Contains(repName, tag) {
			c := candidate{strategy: models.StrategyTagOverlap, confidence: tagConfidence}
			if hasMatch {
				c.variant = match.Variant.Name
			}
			consider(c)
			break
		}
	}

	return best, found
}

func conflictingOrientation(game, rep *models.Orientation) bool {
	return game != nil && rep != nil && *game != *rep
}

// Similarity scores two opening names: 1 when equal after normalization,
// 0.82 when one contains the other, otherwise the share of tokens they have
// in common relative to the longer token list.
func Similarity(a, b string) float64 {
	a, b = normalizeName(a), normalizeName(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return exactNameConfidence
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return containsConfidence
	}

	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	set := make(map[string]bool, len(tb))
	for _, t := range tb {
		set[t] = true
	}
	common := 0
	seen := make(map[string]bool, len(ta))
	for _, t := range ta {
		if set[t] && !seen[t] {
			common++
		}
		seen[t] = true
	}
	longer := len(uniq(ta))
	if n := len(uniq(tb)); n > longer {
		longer = n
	}
	return float64(common) / float64(longer)
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func uniq(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
