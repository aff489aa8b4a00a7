// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package database

import (
	"strings"

	"github.com/tomtom215/rookery/internal/models"
)

// buildInClause creates a parameterized IN clause for SQL queries.
//
//	placeholders, args := buildInClause([]string{"a", "b", "c"})
//	// placeholders = "?,?,?"
func buildInClause(items []string) (string, []interface{}) {
	placeholders := make([]string, len(items))
	args := make([]interface{}, len(items))
	for i, item := range items {
		placeholders[i] = "?"
		args[i] = item
	}
	return strings.Join(placeholders, ","), args
}

// mappedCondition is the SQL form of OpeningMapping.IsMapped.
const mappedCondition = "(repertoire_id <> '' AND mapping_strategy <> 'none')"

// buildGameWhere builds the WHERE clause (including the keyword) restricting
// imported_games to userID and the filter. It applies the same rules as
// models.GameFilter.Matches.
func buildGameWhere(userID string, f models.GameFilter) (string, []interface{}) {
	conditions := []string{"user_id = ?"}
	args := []interface{}{userID}

	if f.Source != nil {
		conditions = append(conditions, "source = ?")
		args = append(args, string(*f.Source))
	}
	if f.TimeControlBucket != nil {
		conditions = append(conditions, "time_control_bucket = ?")
		args = append(args, string(*f.TimeControlBucket))
	}
	if f.Orientation != nil {
		conditions = append(conditions, "orientation = ?")
		args = append(args, string(*f.Orientation))
	}
	switch f.Mapped {
	case models.MappedOnly:
		conditions = append(conditions, mappedCondition)
	case models.UnmappedOnly:
		conditions = append(conditions, "NOT "+mappedCondition)
	}
	if f.From != nil {
		conditions = append(conditions, "played_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		conditions = append(conditions, "played_at <= ?")
		args = append(args, f.To.UTC())
	}
	if opening := strings.TrimSpace(f.Opening); opening != "" {
		needle := strings.ToLower(opening)
		conditions = append(conditions,
			"(contains(lower(opening_name), ?) OR lower(eco) = ? OR contains(lower(repertoire_name), ?))")
		args = append(args, needle, needle, needle)
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

// normalizePage clamps list pagination. limit 0 means no limit.
func normalizePage(limit, offset int) (string, []interface{}) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		if offset == 0 {
			return "", nil
		}
		return " OFFSET ?", []interface{}{offset}
	}
	return " LIMIT ? OFFSET ?", []interface{}{limit, offset}
}
