// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package models

import (
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/rookery/internal/apperrors"
)

// GameFilter narrows a user's games for listing, stats and bulk delete.
// Nil pointers and empty strings mean "no restriction".
type GameFilter struct {
	Source            *Source
	TimeControlBucket *TimeControlBucket
	Orientation       *Orientation
	Mapped            MappedFilter
	From              *time.Time
	To                *time.Time
	Opening           string
}

// Active reports whether any restriction is set.
func (f GameFilter) Active() bool {
	return f.Source != nil || f.TimeControlBucket != nil || !f.onlyResettable()
}

// onlyResettable reports whether every restriction besides Source and
// TimeControlBucket is unset.
func (f GameFilter) onlyResettable() bool {
	return f.Orientation == nil &&
		(f.Mapped == "" || f.Mapped == MappedAll) &&
		f.From == nil && f.To == nil &&
		strings.TrimSpace(f.Opening) == ""
}

// ResetsSyncCursor reports whether deleting the games matched by f should
// put the affected linked accounts back to idle. That is only the case when
// no restriction other than source and time-control bucket is active.
func (f GameFilter) ResetsSyncCursor() bool {
	return f.onlyResettable()
}

// ParseGameFilter decodes query parameters into a GameFilter, rejecting
// malformed values before any I/O.
func ParseGameFilter(q url.Values) (GameFilter, error) {
	var f GameFilter

	if v := q.Get("source"); v != "" {
		s, err := ParseSource(v)
		if err != nil {
			return f, err
		}
		f.Source = &s
	}
	if v := q.Get("timeControlBucket"); v != "" {
		b, err := ParseTimeControlBucket(v)
		if err != nil {
			return f, err
		}
		f.TimeControlBucket = &b
	}
	if v := q.Get("orientation"); v != "" {
		o, err := ParseOrientation(v)
		if err != nil {
			return f, err
		}
		f.Orientation = &o
	}

	m, err := ParseMappedFilter(q.Get("mapped"))
	if err != nil {
		return f, err
	}
	f.Mapped = m

	if f.From, err = parseDateParam(q.Get("from"), "from"); err != nil {
		return f, err
	}
	if f.To, err = parseDateParam(q.Get("to"), "to"); err != nil {
		return f, err
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return f, apperrors.NewValidationError("from", "must not be after to")
	}

	f.Opening = strings.TrimSpace(q.Get("opening"))
	return f, nil
}

// parseDateParam accepts RFC3339 timestamps or YYYY-MM-DD dates.
func parseDateParam(v, field string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t, nil
	}
	return nil, apperrors.NewValidationError(field, "must be an RFC3339 timestamp or YYYY-MM-DD date (got %q)", v)
}

// Matches reports whether g passes the filter. Used for in-memory filtering
// of already-loaded games; the database applies the same rules in SQL.
func (f GameFilter) Matches(g *ImportedGame) bool {
	if f.Source != nil && g.Source != *f.Source {
		return false
	}
	if f.TimeControlBucket != nil && g.TimeControlBucket != *f.TimeControlBucket {
		return false
	}
	if f.Orientation != nil && (g.Orientation == nil || *g.Orientation != *f.Orientation) {
		return false
	}
	switch f.Mapped {
	case MappedOnly:
		if !g.OpeningMapping.IsMapped() {
			return false
		}
	case UnmappedOnly:
		if g.OpeningMapping.IsMapped() {
			return false
		}
	}
	if f.From != nil && (g.PlayedAt == nil || g.PlayedAt.Before(*f.From)) {
		return false
	}
	if f.To != nil && (g.PlayedAt == nil || g.PlayedAt.After(*f.To)) {
		return false
	}
	if f.Opening != "" {
		needle := strings.ToLower(f.Opening)
		d := g.OpeningDetection
		if !strings.Contains(strings.ToLower(d.OpeningName), needle) &&
			!strings.EqualFold(d.ECO, f.Opening) &&
			!strings.Contains(strings.ToLower(g.OpeningMapping.RepertoireName), needle) {
			return false
		}
	}
	return true
}
