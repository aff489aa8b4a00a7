// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package pgn

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/rookery/internal/models"
)

const twoGames = `[Event "Rated Blitz game"]
[Site "https://lichess.org/abcd1234"]
[White "alice"]
[Black "bob"]
[Result "1-0"]
[UTCDate "2024.03.05"]
[UTCTime "18:22:01"]
[ECO "C50"]

1. e4 { [%clk 0:03:00] } e5 2. Nf3 Nc6 (2... d6 3. d4 (3. Bc4)) 3. Bc4 $1 Bc5?! 4. c3 1-0

[Event "Casual game"]
[White "bob"]
[Black "alice"]
[Result "1/2-1/2"]

1.d4 d5 2.c4 ; queen's gambit
2...e6 3.Nc3!! Nf6 1/2-1/2
`

func TestSplit(t *testing.T) {
	t.Run("two games", func(t *testing.T) {
		chunks := Split(twoGames)
		if len(chunks) != 2 {
			t.Fatalf("len(Split()) = %d, want 2", len(chunks))
		}
		if !strings.HasPrefix(chunks[1], `[Event "Casual game"]`) {
			t.Errorf("second chunk starts with %q", chunks[1][:20])
		}
	})

	t.Run("no event header", func(t *testing.T) {
		chunks := Split("[White \"a\"]\n\n1. e4 e5")
		if len(chunks) != 1 {
			t.Fatalf("len(Split()) = %d, want 1", len(chunks))
		}
	})

	t.Run("empty", func(t *testing.T) {
		if chunks := Split("  \n "); chunks != nil {
			t.Errorf("Split(blank) = %v, want nil", chunks)
		}
	})
}

func TestNormalize(t *testing.T) {
	games := Normalize(twoGames)
	if len(games) != 2 {
		t.Fatalf("len(Normalize()) = %d, want 2", len(games))
	}

	first := games[0]
	wantFirst := []string{"e4", "e5", "Nf3", "Nc6", "Bc4", "Bc5", "c3"}
	if !reflect.DeepEqual(first.MovesSAN, wantFirst) {
		t.Errorf("MovesSAN = %v, want %v", first.MovesSAN, wantFirst)
	}
	if first.Header("ECO") != "C50" {
		t.Errorf("Header(ECO) = %q, want C50", first.Header("ECO"))
	}
	if first.Result() != models.ResultWhiteWins {
		t.Errorf("Result() = %q, want 1-0", first.Result())
	}

	second := games[1]
	wantSecond := []string{"d4", "d5", "c4", "e6", "Nc3", "Nf6"}
	if !reflect.DeepEqual(second.MovesSAN, wantSecond) {
		t.Errorf("MovesSAN = %v, want %v", second.MovesSAN, wantSecond)
	}
	if second.Result() != models.ResultDraw {
		t.Errorf("Result() = %q, want 1/2-1/2", second.Result())
	}
}

func TestNormalize_DropsMalformedChunks(t *testing.T) {
	text := `[Event "No moves"]
[White "a"]
[Result "*"]

*

[Event "Good"]
[White "a"]

1. e4 *`
	games := Normalize(text)
	if len(games) != 1 {
		t.Fatalf("len(Normalize()) = %d, want 1", len(games))
	}
	if games[0].Headers["Event"] != "Good" {
		t.Errorf("kept game Event = %q, want Good", games[0].Headers["Event"])
	}

	if got := Normalize("1. e4 e5 2. Nf3"); len(got) != 0 {
		t.Errorf("headerless movetext produced %d games, want 0", len(got))
	}
}

func TestExtractMoves_Nested(t *testing.T) {
	got := ExtractMoves("1. e4 (1. d4 d5 (1... Nf6 2. c4)) 1... c5 $14 2. Nf3 {good} d6 *")
	want := []string{"e4", "c5", "Nf3", "d6"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractMoves() = %v, want %v", got, want)
	}
}

func TestPlayedAt(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    *time.Time
	}{
		{"utc date and time", map[string]string{"UTCDate": "2024.03.05", "UTCTime": "18:22:01"}, ptrTime(time.Date(2024, 3, 5, 18, 22, 1, 0, time.UTC))},
		{"date only", map[string]string{"Date": "2023.12.31"}, ptrTime(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC))},
		{"unknown parts", map[string]string{"Date": "2023.??.??"}, nil},
		{"missing", map[string]string{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Game{Headers: tt.headers}.PlayedAt()
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("PlayedAt() = %v, want nil", got)
			case tt.want != nil && (got == nil || !got.Equal(*tt.want)):
				t.Errorf("PlayedAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInjectHeaders(t *testing.T) {
	in := "[Event \"x\"]\n[ECO \"B20\"]\n\n1. e4 c5 *"
	out := InjectHeaders(in, map[string]string{"ECO": "C00", "Opening": "Sicilian \"Open\""}, []string{"ECO", "Opening"})

	games := Normalize(out)
	if len(games) != 1 {
		t.Fatalf("len(Normalize()) = %d, want 1", len(games))
	}
	if got := games[0].Header("ECO"); got != "B20" {
		t.Errorf("existing ECO overwritten: %q", got)
	}
	if got := games[0].Header("Opening"); got != `Sicilian "Open"` {
		t.Errorf("Header(Opening) = %q", got)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
