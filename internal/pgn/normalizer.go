// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

// Package pgn turns raw PGN text into header maps and SAN move lists.
//
// It does not validate chess legality. It only extracts the information the
// import pipeline needs:
//
//   - Split cuts a multi-game blob at every [Event "..."] header block.
//   - ParseGame reads the [Key "Value"] headers, strips comments,
//     variations, NAGs and annotation glyphs from the movetext, and
//     keeps the SAN tokens in order.
//   - Normalize combines both and drops chunks that have no headers or no
//     moves. Malformed games are excluded silently, not reported as errors.
package pgn

import (
	"regexp"
	"strings"
	"time"

	"github.com/tomtom215/rookery/internal/models"
)

var (
	eventBoundary  = regexp.MustCompile(`(?m)^[ \t]*\[Event[ \t]`)
	headerLine     = regexp.MustCompile(`^\[([A-Za-z0-9_]+)\s+"((?:[^"\\]|\\.)*)"\]$`)
	braceComment   = regexp.MustCompile(`\{[^}]*\}`)
	lineComment    = regexp.MustCompile(`;[^\n]*`)
	innerVariation = regexp.MustCompile(`\([^()]*\)`)
	nagMarker      = regexp.MustCompile(`\$\d+`)
	moveNumber     = regexp.MustCompile(`^\d+\.+`)
	resultToken    = regexp.MustCompile(`^(1-0|0-1|1/2-1/2|½-½|\*)$`)
)

// Game is one parsed PGN game.
type Game struct {
	Headers  map[string]string
	MovesSAN []string
	Raw      string
}

// Split cuts text into per-game chunks. Text that contains no [Event header
// is returned as a single chunk.
func Split(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	starts := eventBoundary.FindAllStringIndex(text, -1)
	if len(starts) == 0 {
		return []string{strings.TrimSpace(text)}
	}

	chunks := make([]string, 0, len(starts)+1)
	if head := strings.TrimSpace(text[:starts[0][0]]); head != "" {
		chunks = append(chunks, head)
	}
	for i, loc := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		if chunk := strings.TrimSpace(text[loc[0]:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// ParseGame parses one chunk. ok is false when the chunk has no headers or
// no moves.
func ParseGame(chunk string) (game Game, ok bool) {
	headers := make(map[string]string)
	var movetext strings.Builder

	for _, line := range strings.Split(chunk, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := headerLine.FindStringSubmatch(trimmed); m != nil {
			headers[m[1]] = unescape(m[2])
			continue
		}
		if strings.HasPrefix(trimmed, "%") {
			continue
		}
		movetext.WriteString(trimmed)
		movetext.WriteByte('\n')
	}

	moves := ExtractMoves(movetext.String())
	if len(headers) == 0 || len(moves) == 0 {
		return Game{}, false
	}
	return Game{Headers: headers, MovesSAN: moves, Raw: chunk}, true
}

// ExtractMoves returns the SAN tokens of a movetext section.
func ExtractMoves(movetext string) []string {
	text := braceComment.ReplaceAllString(movetext, " ")
	text = lineComment.ReplaceAllString(text, " ")
	for {
		stripped := innerVariation.ReplaceAllString(text, " ")
		if stripped == text {
			break
		}
		text = stripped
	}
	// Unbalanced parentheses left after stripping are noise.
	text = strings.NewReplacer("(", " ", ")", " ").Replace(text)
	text = nagMarker.ReplaceAllString(text, " ")

	var moves []string
	for _, tok := range strings.Fields(text) {
		tok = strings.TrimLeft(moveNumber.ReplaceAllString(tok, ""), ".")
		if tok == "" || resultToken.MatchString(tok) {
			continue
		}
		tok = strings.TrimRight(tok, "!?")
		if tok == "" {
			continue
		}
		moves = append(moves, tok)
	}
	return moves
}

// Normalize splits text and parses every chunk, keeping only valid games.
func Normalize(text string) []Game {
	chunks := Split(text)
	games := make([]Game, 0, len(chunks))
	for _, chunk := range chunks {
		if g, ok := ParseGame(chunk); ok {
			games = append(games, g)
		}
	}
	return games
}

func unescape(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	return strings.NewReplacer(`\"`, `"`, `\\`, `\`).Replace(v)
}

// Header returns a trimmed header value, treating "?" and "-" placeholders
// as absent.
func (g Game) Header(name string) string {
	v := strings.TrimSpace(g.Headers[name])
	if v == "?" || v == "-" || strings.Trim(v, "?.") == "" {
		return ""
	}
	return v
}

// Result returns the normalized game result.
func (g Game) Result() models.GameResult {
	return NormalizeResult(g.Headers["Result"])
}

// NormalizeResult maps the textual PGN result to a GameResult.
func NormalizeResult(v string) models.GameResult {
	switch strings.TrimSpace(v) {
	case "1-0":
		return models.ResultWhiteWins
	case "0-1":
		return models.ResultBlackWins
	case "1/2-1/2", "½-½", "1/2":
		return models.ResultDraw
	default:
		return models.ResultUnknown
	}
}

// PlayedAt derives the game start time from UTCDate/UTCTime, falling back to
// Date/Time. Dates with unknown parts ("2024.??.??") yield nil.
func (g Game) PlayedAt() *time.Time {
	date, clock := g.Header("UTCDate"), g.Header("UTCTime")
	if date == "" {
		date, clock = g.Header("Date"), g.Header("Time")
	}
	if date == "" || strings.Contains(date, "?") {
		return nil
	}

	if clock != "" && !strings.Contains(clock, "?") {
		if t, err := time.Parse("2006.01.02 15:04:05", date+" "+clock); err == nil {
			return &t
		}
	}
	if t, err := time.Parse("2006.01.02", date); err == nil {
		return &t
	}
	return nil
}

// InjectHeaders inserts the given headers into pgnText when they are absent,
// placing them after the existing header block.
func InjectHeaders(pgnText string, extra map[string]string, order []string) string {
	if len(extra) == 0 {
		return pgnText
	}

	lines := strings.Split(strings.ReplaceAll(pgnText, "\r\n", "\n"), "\n")
	present := make(map[string]bool)
	insertAt := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := headerLine.FindStringSubmatch(trimmed); m != nil {
			present[m[1]] = true
			insertAt = i + 1
		}
	}

	var added []string
	for _, key := range order {
		v, ok := extra[key]
		if !ok || v == "" || present[key] {
			continue
		}
		escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v)
		added = append(added, "["+key+` "`+escaped+`"]`)
	}
	if len(added) == 0 {
		return pgnText
	}

	out := make([]string, 0, len(lines)+len(added))
	out = append(out, lines[:insertAt]...)
	out = append(out, added...)
	out = append(out, lines[insertAt:]...)
	return strings.Join(out, "\n")
}
