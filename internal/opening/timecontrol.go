// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package opening

import (
	"strconv"
	"strings"

	"github.com/tomtom215/rookery/internal/models"
)

// Estimated-duration limits in seconds (initial + 40 * increment).
const (
	bulletLimit = 180
	blitzLimit  = 480
	rapidLimit  = 1500
)

// TimeControlBucket classifies a raw PGN TimeControl value such as "300+3".
// Correspondence ("1/86400"), untimed ("-") and unparsable values are
// classical.
func TimeControlBucket(raw string) models.TimeControlBucket {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "-" || raw == "?" || strings.Contains(raw, "/") {
		return models.BucketClassical
	}

	// Multi-period controls ("40/7200:3600") were handled above; take the
	// first period otherwise.
	if i := strings.IndexByte(raw, ':'); i >= 0 {
		raw = raw[:i]
	}

	base, inc := raw, "0"
	if i := strings.IndexByte(raw, '+'); i >= 0 {
		base, inc = raw[:i], raw[i+1:]
	}
	initial, err := strconv.Atoi(base)
	if err != nil {
		return models.BucketClassical
	}
	increment, err := strconv.Atoi(inc)
	if err != nil {
		increment = 0
	}

	switch estimated := initial + 40*increment; {
	case estimated < bulletLimit:
		return models.BucketBullet
	case estimated < blitzLimit:
		return models.BucketBlitz
	case estimated < rapidLimit:
		return models.BucketRapid
	default:
		return models.BucketClassical
	}
}

// DetectOrientation returns the side played by username, or nil when the
// username is empty or matches neither player.
func DetectOrientation(white, black, username string) *models.Orientation {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil
	}
	var o models.Orientation
	switch {
	case strings.EqualFold(strings.TrimSpace(white), username):
		o = models.White
	case strings.EqualFold(strings.TrimSpace(black), username):
		o = models.Black
	default:
		return nil
	}
	return &o
}

// ParseRating returns nil for empty or non-numeric Elo headers.
func ParseRating(v string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}
