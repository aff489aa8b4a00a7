// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package mapping

import (
	"math/rand"
	"testing"

	"github.com/tomtom215/rookery/internal/models"
	"github.com/tomtom215/rookery/internal/opening"
	"github.com/tomtom215/rookery/internal/repertoire"
)

func italianRepertoire(id, name string) repertoire.Metadata {
	return repertoire.Metadata{
		ID:   id,
		Name: name,
		Variants: []repertoire.Variant{
			{FullName: "Italian Game: Giuoco Piano", Name: "Giuoco Piano", MovesSAN: []string{"e4", "e5", "Nf3", "Nc6", "Bc4", "Bc5"}},
			{FullName: "Italian Game: Two Knights", Name: "Two Knights", MovesSAN: []string{"e4", "e5", "Nf3", "Nc6", "Bc4", "Nf6"}},
		},
	}
}

func TestMap_ECOExample(t *testing.T) {
	det := opening.Detect(
		map[string]string{"ECO": "C50", "Opening": "Italian Game"},
		[]string{"e4", "e5", "Nf3", "Nc6", "Bc4"},
		12,
	)
	got := Map(Input{Detection: det}, []repertoire.Metadata{italianRepertoire("r1", "C50 Italian Game")})

	if got.Strategy != models.StrategyECO {
		t.Errorf("Strategy = %q, want eco", got.Strategy)
	}
	if got.Confidence != 0.92 {
		t.Errorf("Confidence = %v, want 0.92", got.Confidence)
	}
	if got.RequiresManualReview {
		t.Error("RequiresManualReview = true, want false")
	}
	if got.RepertoireID != "r1" || got.RepertoireName != "C50 Italian Game" {
		t.Errorf("mapped to %q/%q", got.RepertoireID, got.RepertoireName)
	}
	if got.VariantName != "Giuoco Piano" {
		t.Errorf("VariantName = %q, want first tied variant Giuoco Piano", got.VariantName)
	}
}

func TestMap_NoRepertoires(t *testing.T) {
	det := opening.Detect(map[string]string{"ECO": "B20"}, []string{"e4", "c5"}, 12)
	got := Map(Input{Detection: det}, nil)
	want := models.OpeningMapping{Confidence: 0, Strategy: models.StrategyNone, RequiresManualReview: true}
	if got != want {
		t.Errorf("Map() = %+v, want %+v", got, want)
	}
}

func TestMap_NoMatches(t *testing.T) {
	det := opening.Detect(nil, []string{"d4", "d5", "c4"}, 12)
	got := Map(Input{Detection: det}, []repertoire.Metadata{italianRepertoire("r1", "Italian")})
	if got.Strategy != models.StrategyNone || !got.RequiresManualReview || got.Confidence != 0 {
		t.Errorf("Map() = %+v, want unmapped", got)
	}
}

func TestMap_MovePrefix(t *testing.T) {
	t.Run("full prefix", func(t *testing.T) {
		det := opening.Detect(nil, []string{"e4", "e5", "Nf3", "Nc6", "Bc4", "Nf6", "d3"}, 12)
		got := Map(Input{Detection: det}, []repertoire.Metadata{italianRepertoire("r1", "My e4 repertoire")})
		if got.Strategy != models.StrategyMovePrefix || got.Confidence != 1 || got.RequiresManualReview {
			t.Errorf("Map() = %+v", got)
		}
		if got.VariantName != "Two Knights" {
			t.Errorf("VariantName = %q, want Two Knights", got.VariantName)
		}
	})

	t.Run("partial prefix is gated", func(t *testing.T) {
		det := opening.Detect(nil, []string{"e4", "e5", "Nf3", "d6"}, 12)
		got := Map(Input{Detection: det}, []repertoire.Metadata{italianRepertoire("r1", "My e4 repertoire")})
		if got.Strategy != models.StrategyMovePrefix {
			t.Fatalf("Strategy = %q, want movePrefix", got.Strategy)
		}
		if got.Confidence != 0.75 || got.RequiresManualReview {
			t.Errorf("Map() = %+v, want 0.75 without review", got)
		}
	})

	t.Run("low prefix requires review", func(t *testing.T) {
		det := opening.Detect(nil, []string{"e4", "c5", "Nf3", "d6"}, 12)
		got := Map(Input{Detection: det}, []repertoire.Metadata{italianRepertoire("r1", "My e4 repertoire")})
		if got.Confidence != 0.25 || !got.RequiresManualReview {
			t.Errorf("Map() = %+v, want 0.25 with review", got)
		}
	})
}

func TestMap_FuzzyName(t *testing.T) {
	rep := repertoire.Metadata{ID: "r1", Name: "Sicilian Defense", Variants: []repertoire.Variant{
		{FullName: "Sicilian Defense: Najdorf Variation", Name: "Najdorf Variation", MovesSAN: []string{"d4"}},
	}}

	t.Run("exact variant name", func(t *testing.T) {
		det := models.OpeningDetection{OpeningName: "Najdorf Variation", LineMovesSAN: []string{"e4", "c5"}}
		got := Map(Input{Detection: det}, []repertoire.Metadata{rep})
		if got.Strategy != models.StrategyFuzzyName || got.Confidence != 1 || got.VariantName != "Najdorf Variation" {
			t.Errorf("Map() = %+v", got)
		}
	})

	t.Run("containment", func(t *testing.T) {
		det := models.OpeningDetection{OpeningName: "sicilian", LineMovesSAN: []string{"e4", "c5"}}
		got := Map(Input{Detection: det}, []repertoire.Metadata{rep})
		if got.Confidence != 0.82 || got.RequiresManualReview {
			t.Errorf("Map() = %+v, want 0.82 without review", got)
		}
	})

	t.Run("token overlap gated", func(t *testing.T) {
		det := models.OpeningDetection{OpeningName: "French Defense Winawer", LineMovesSAN: []string{"e4", "e6"}}
		got := Map(Input{Detection: det}, []repertoire.Metadata{rep})
		if got.Strategy != models.StrategyFuzzyName {
			t.Fatalf("Strategy = %q, want fuzzyName", got.Strategy)
		}
		if got.Confidence >= 0.75 || !got.RequiresManualReview {
			t.Errorf("Map() = %+v, want gated", got)
		}
	})
}

func TestMap_TagOverlap(t *testing.T) {
	det := models.OpeningDetection{LineMovesSAN: []string{"Nf3"}}
	got := Map(Input{Detection: det, Tags: []string{" London "}}, []repertoire.Metadata{{ID: "r1", Name: "London System"}})
	if got.Strategy != models.StrategyTagOverlap || got.Confidence != 0.76 || got.RequiresManualReview {
		t.Errorf("Map() = %+v", got)
	}
}

func TestMap_ECOBeatsWeakerFuzzyOnSameRepertoire(t *testing.T) {
	rep := repertoire.Metadata{ID: "r1", Name: "B90 Sicilian Najdorf"}
	det := models.OpeningDetection{ECO: "B90", OpeningName: "Sicilian Defense", LineMovesSAN: []string{"e4", "c5"}}
	got := Map(Input{Detection: det}, []repertoire.Metadata{rep})
	if got.Strategy != models.StrategyECO || got.Confidence != 0.92 {
		t.Errorf("Map() = %+v, want eco 0.92", got)
	}
}

func TestMap_TieBreakFirstWins(t *testing.T) {
	det := models.OpeningDetection{ECO: "C50", LineMovesSAN: []string{"e4"}}
	reps := []repertoire.Metadata{{ID: "a", Name: "C50 one"}, {ID: "b", Name: "C50 two"}}
	if got := Map(Input{Detection: det}, reps); got.RepertoireID != "a" {
		t.Errorf("RepertoireID = %q, want a", got.RepertoireID)
	}
}

func TestMap_StrictlyGreaterReplaces(t *testing.T) {
	det := models.OpeningDetection{ECO: "C50", LineMovesSAN: []string{"e4", "e5", "Nf3", "Nc6", "Bc4", "Bc5"}}
	reps := []repertoire.Metadata{
		{ID: "a", Name: "C50 Italian"},
		italianRepertoire("b", "White e4"),
	}
	got := Map(Input{Detection: det}, reps)
	if got.RepertoireID != "b" || got.Strategy != models.StrategyMovePrefix {
		t.Errorf("Map() = %+v, want movePrefix 1.0 on b", got)
	}
}

func TestMap_OrientationConflictForcesReview(t *testing.T) {
	black := models.Black
	white := models.White
	rep := italianRepertoire("r1", "C50 Italian")
	rep.Orientation = &white
	det := models.OpeningDetection{ECO: "C50", LineMovesSAN: []string{"e4", "e5"}}

	got := Map(Input{Detection: det, Orientation: &black}, []repertoire.Metadata{rep})
	if !got.RequiresManualReview {
		t.Error("RequiresManualReview = false, want true on orientation conflict")
	}
	got = Map(Input{Detection: det, Orientation: &white}, []repertoire.Metadata{rep})
	if got.RequiresManualReview {
		t.Error("RequiresManualReview = true, want false when orientations agree")
	}
}

// Any mapping below the review threshold must require review regardless of strategy.
func TestMap_ReviewInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pool := []string{"e4", "e5", "Nf3", "Nc6", "Bc4", "Bc5", "d4", "c5", "d6", "Nf6"}
	names := []string{"", "Italian Game", "Sicilian", "Queen Pawn", "Italian"}
	ecos := []string{"", "C50", "B20", "D00"}
	reps := []repertoire.Metadata{
		italianRepertoire("r1", "C50 Italian Game"),
		{ID: "r2", Name: "Sicilian Najdorf", Variants: []repertoire.Variant{{Name: "Najdorf", FullName: "Najdorf", MovesSAN: []string{"e4", "c5", "Nf3", "d6"}}}},
		{ID: "r3", Name: "Queen's Gambit"},
	}

	for i := 0; i < 500; i++ {
		line := make([]string, 1+rng.Intn(8))
		for j := range line {
			line[j] = pool[rng.Intn(len(pool))]
		}
		det := models.OpeningDetection{ECO: ecos[rng.Intn(len(ecos))], OpeningName: names[rng.Intn(len(names))], LineMovesSAN: line}
		var tags []string
		if rng.Intn(3) == 0 {
			tags = []string{"gambit"}
		}
		got := Map(Input{Detection: det, Tags: tags}, reps)
		if got.Confidence < models.ReviewThreshold && !got.RequiresManualReview {
			t.Fatalf("invariant violated: %+v for %+v", got, det)
		}
		if got.Confidence < 0 || got.Confidence > 1 {
			t.Fatalf("confidence out of range: %+v", got)
		}
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"Italian Game", "italian  game", 1},
		{"Italian", "Italian Game", 0.82},
		{"French Defense Winawer", "Sicilian Defense", 1.0 / 3.0},
		{"", "x", 0},
		{"Caro-Kann", "Kann Caro", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			if got := Similarity(tt.a, tt.b); got != tt.want {
				t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestManual(t *testing.T) {
	got := Manual(repertoire.Metadata{ID: "r9", Name: "London"}, " Main ")
	if got.Strategy != models.StrategyManual || got.Confidence != 1 || got.RequiresManualReview || got.VariantName != "Main" {
		t.Errorf("Manual() = %+v", got)
	}
}
