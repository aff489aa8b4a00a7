// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

// Package opening derives opening identity and dedupe keys from parsed games.
//
// Detection confidence reflects how much header evidence a game carries, not
// how well its moves match anything:
//
//	ECO and opening name present   0.95
//	one of them present            0.80
//	neither, line of 6+ plies      0.60
//	neither, shorter line          0.45
package opening

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/tomtom215/rookery/internal/models"
)

// DefaultMaxPlies is the canonical opening-line depth.
const DefaultMaxPlies = 12

// lineKeyLength is the number of hex characters kept from the line hash.
const lineKeyLength = 16

const (
	confidenceBoth     = 0.95
	confidenceOne      = 0.8
	confidenceLongLine = 0.6
	confidenceShort    = 0.45
	longLinePlies      = 6
)

var (
	ecoPattern    = regexp.MustCompile(`^[A-Ea-e][0-9]{2}$`)
	spaceRun      = regexp.MustCompile(`\s+`)
	urlNameSuffix = regexp.MustCompile(`-\d+\.{0,3}.*$`)
)

// Detect builds the OpeningDetection for a game from its headers and SAN
// moves. maxPlies <= 0 uses DefaultMaxPlies.
func Detect(headers map[string]string, movesSAN []string, maxPlies int) models.OpeningDetection {
	if maxPlies <= 0 {
		maxPlies = DefaultMaxPlies
	}

	line := movesSAN
	if len(line) > maxPlies {
		line = line[:maxPlies]
	}
	line = append([]string(nil), line...)

	signature := LineKey(line)
	eco := sanitizeECO(headers["ECO"])
	name := openingName(headers)

	confidence := confidenceShort
	switch {
	case eco != "" && name != "":
		confidence = confidenceBoth
	case eco != "" || name != "":
		confidence = confidenceOne
	case len(line) >= longLinePlies:
		confidence = confidenceLongLine
	}

	return models.OpeningDetection{
		ECO:               eco,
		OpeningName:       name,
		LineMovesSAN:      line,
		LineKey:           signature,
		Confidence:        confidence,
		FallbackSignature: signature,
	}
}

// LineKey hashes the lowercased, space-joined move prefix into a fixed-length key.
func LineKey(line []string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.Join(line, " "))))
	return hex.EncodeToString(sum[:])[:lineKeyLength]
}

func sanitizeECO(v string) string {
	v = strings.TrimSpace(v)
	if !ecoPattern.MatchString(v) {
		return ""
	}
	return strings.ToUpper(v)
}

func sanitizeName(v string) string {
	v = strings.TrimSpace(spaceRun.ReplaceAllString(v, " "))
	if v == "" || v == "?" || v == "-" {
		return ""
	}
	return v
}

// openingName prefers Opening (+ Variation) and falls back to a name parsed
// out of an openings URL such as chess.com's ECOUrl header.
func openingName(headers map[string]string) string {
	name := sanitizeName(headers["Opening"])
	if name != "" {
		if variation := sanitizeName(headers["Variation"]); variation != "" && !strings.Contains(name, variation) {
			name += ": " + variation
		}
		return name
	}
	for _, key := range []string{"ECOUrl", "OpeningUrl", "Link"} {
		if n := nameFromOpeningURL(headers[key]); n != "" {
			return n
		}
	}
	return ""
}

// nameFromOpeningURL turns ".../openings/Italian-Game-Two-Knights-Defense-4.d3"
// into "Italian Game Two Knights Defense".
func nameFromOpeningURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || !strings.Contains(u.Path, "/openings/") {
		return ""
	}
	slug, err := url.PathUnescape(path.Base(u.Path))
	if err != nil {
		return ""
	}
	slug = urlNameSuffix.ReplaceAllString(slug, "")
	return sanitizeName(strings.ReplaceAll(slug, "-", " "))
}

// DedupeKey returns "<source>:<providerGameID>" when the provider supplied
// an ID, and FallbackDedupeKey otherwise.
func DedupeKey(source models.Source, providerGameID string, playedAt *time.Time, white, black string, result models.GameResult, movesSAN []string) string {
	if id := strings.TrimSpace(providerGameID); id != "" {
		return string(source) + ":" + id
	}
	return FallbackDedupeKey(source, playedAt, white, black, result, movesSAN)
}

// FallbackDedupeKey hashes source|playedAt|white|black|result|moves so that
// re-pasting the same game yields the same key.
func FallbackDedupeKey(source models.Source, playedAt *time.Time, white, black string, result models.GameResult, movesSAN []string) string {
	played := ""
	if playedAt != nil {
		played = playedAt.UTC().Format(time.RFC3339)
	}
	parts := []string{
		string(source),
		played,
		strings.ToLower(strings.TrimSpace(white)),
		strings.ToLower(strings.TrimSpace(black)),
		string(result),
		strings.Join(movesSAN, " "),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return string(source) + ":h:" + hex.EncodeToString(sum[:])
}
