// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/rookery/internal/apperrors"
	"github.com/tomtom215/rookery/internal/logging"
	"github.com/tomtom215/rookery/internal/metrics"
	"github.com/tomtom215/rookery/internal/models"
)

// dedupeKeyChunk bounds the IN list size of a single existence query.
const dedupeKeyChunk = 500

// maxConflictRetries is how often a single-row write is retried after a
// DuckDB optimistic concurrency conflict.
const maxConflictRetries = 3

const gameColumns = `id, user_id, source, provider_game_id, dedupe_key, white, black,
	white_rating, black_rating, result, time_control, time_control_bucket, rated, played_at,
	pgn, moves_san, orientation, tags, opening_detection,
	repertoire_id, repertoire_name, variant_name, mapping_confidence, mapping_strategy,
	requires_manual_review, imported_at`

// Denormalized detection fields used by filters and stats queries.
const gameInsertColumns = gameColumns + `, eco, opening_name, line_key`

// BulkInsertResult reports the outcome of an unordered bulk insert.
// Every game is either counted in Inserted or has exactly one entry in Errors.
type BulkInsertResult struct {
	Inserted int
	Errors   []*apperrors.PersistenceWriteError
}

// Duplicates counts the errors that are duplicate-key outcomes.
func (r *BulkInsertResult) Duplicates() int {
	n := 0
	for _, e := range r.Errors {
		if e.Duplicate {
			n++
		}
	}
	return n
}

// Failures counts the errors that are not duplicate-key outcomes.
func (r *BulkInsertResult) Failures() int {
	return len(r.Errors) - r.Duplicates()
}

// BulkInsertGames writes games independently of each other: one row failing
// does not prevent the others from being written. A row whose (user,
// dedupe key) already exists is reported as a duplicate. The returned error
// is non-nil only when the batch could not be attempted at all.
func (db *DB) BulkInsertGames(ctx context.Context, games []*models.ImportedGame) (*BulkInsertResult, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result := &BulkInsertResult{}
	if len(games) == 0 {
		return result, nil
	}

	start := time.Now()
	stmt, err := db.conn.PrepareContext(ctx, `INSERT INTO imported_games (`+gameInsertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`)
	if err != nil {
		metrics.RecordDBQuery("bulk_insert", "imported_games", time.Since(start), err)
		return nil, fmt.Errorf("failed to prepare game insert: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	for _, g := range games {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("bulk insert interrupted: %w", err)
		}
		if werr := db.insertGame(ctx, stmt, g); werr != nil {
			result.Errors = append(result.Errors, werr)
			continue
		}
		result.Inserted++
	}

	metrics.RecordDBQuery("bulk_insert", "imported_games", time.Since(start), nil)
	return result, nil
}

func (db *DB) insertGame(ctx context.Context, stmt *sql.Stmt, g *models.ImportedGame) *apperrors.PersistenceWriteError {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.ImportedAt.IsZero() {
		g.ImportedAt = time.Now().UTC()
	}

	args, err := gameArgs(g)
	if err != nil {
		return &apperrors.PersistenceWriteError{DedupeKey: g.DedupeKey, Err: err}
	}

	var res sql.Result
	for attempt := 0; ; attempt++ {
		res, err = stmt.ExecContext(ctx, args...)
		if err == nil || !isTransactionConflict(err) || attempt+1 >= maxConflictRetries {
			break
		}
		logging.Debug().Str("dedupe_key", g.DedupeKey).Int("attempt", attempt+1).Msg("Retrying game insert after transaction conflict")
	}
	if err != nil {
		return &apperrors.PersistenceWriteError{
			DedupeKey: g.DedupeKey,
			Duplicate: isUniqueConstraintError(err),
			Err:       err,
		}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return &apperrors.PersistenceWriteError{DedupeKey: g.DedupeKey, Err: err}
	}
	if n == 0 {
		return &apperrors.PersistenceWriteError{DedupeKey: g.DedupeKey, Duplicate: true}
	}
	return nil
}

func gameArgs(g *models.ImportedGame) ([]interface{}, error) {
	moves, err := json.Marshal(nonNil(g.MovesSAN))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal moves: %w", err)
	}
	tags, err := json.Marshal(nonNil(g.Tags))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	detection, err := json.Marshal(g.OpeningDetection)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal opening detection: %w", err)
	}

	var orientation interface{}
	if g.Orientation != nil {
		orientation = string(*g.Orientation)
	}
	var playedAt interface{}
	if g.PlayedAt != nil {
		playedAt = g.PlayedAt.UTC()
	}

	m := g.OpeningMapping
	return []interface{}{
		g.ID, g.UserID, string(g.Source), nullString(g.ProviderGameID), g.DedupeKey, g.White, g.Black,
		intPtrArg(g.WhiteRating), intPtrArg(g.BlackRating), string(g.Result), g.TimeControl,
		string(g.TimeControlBucket), boolPtrArg(g.Rated), playedAt,
		g.PGN, string(moves), orientation, string(tags), string(detection),
		m.RepertoireID, m.RepertoireName, m.VariantName, m.Confidence, string(m.Strategy),
		m.RequiresManualReview, g.ImportedAt.UTC(),
		g.OpeningDetection.ECO, g.OpeningDetection.OpeningName, g.OpeningDetection.LineKey,
	}, nil
}

// FindExistingDedupeKeys returns which of keys already exist for userID.
func (db *DB) FindExistingDedupeKeys(ctx context.Context, userID string, keys []string) (map[string]bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	existing := make(map[string]bool)
	start := time.Now()
	for lo := 0; lo < len(keys); lo += dedupeKeyChunk {
		hi := lo + dedupeKeyChunk
		if hi > len(keys) {
			hi = len(keys)
		}
		placeholders, inArgs := buildInClause(keys[lo:hi])
		args := append([]interface{}{userID}, inArgs...)

		rows, err := db.conn.QueryContext(ctx,
			`SELECT dedupe_key FROM imported_games WHERE user_id = ? AND dedupe_key IN (`+placeholders+`)`, args...)
		if err != nil {
			metrics.RecordDBQuery("find_dedupe_keys", "imported_games", time.Since(start), err)
			return nil, fmt.Errorf("failed to query dedupe keys: %w", err)
		}
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				closeQuietly(rows)
				return nil, fmt.Errorf("failed to scan dedupe key: %w", err)
			}
			existing[k] = true
		}
		err = rows.Err()
		closeWithLog(rows, "rows")
		if err != nil {
			return nil, fmt.Errorf("error iterating dedupe keys: %w", err)
		}
	}
	metrics.RecordDBQuery("find_dedupe_keys", "imported_games", time.Since(start), nil)
	return existing, nil
}

// LatestPlayedAt returns the most recent PlayedAt among userID's games from
// source, or nil when there are none (or none carry a timestamp).
func (db *DB) LatestPlayedAt(ctx context.Context, userID string, source models.Source) (*time.Time, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var latest sql.NullTime
	start := time.Now()
	err := db.conn.QueryRowContext(ctx,
		`SELECT MAX(played_at) FROM imported_games WHERE user_id = ? AND source = ?`,
		userID, string(source)).Scan(&latest)
	metrics.RecordDBQuery("latest_played_at", "imported_games", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest played_at: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	t := latest.Time.UTC()
	return &t, nil
}

// CountGames returns how many of userID's games match the filter.
func (db *DB) CountGames(ctx context.Context, userID string, f models.GameFilter) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := buildGameWhere(userID, f)
	var n int
	start := time.Now()
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM imported_games`+where, args...).Scan(&n)
	metrics.RecordDBQuery("count", "imported_games", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}
	return n, nil
}

// ListGames returns userID's games matching the filter, most recently
// played first. limit 0 returns every match.
func (db *DB) ListGames(ctx context.Context, userID string, f models.GameFilter, limit, offset int) ([]models.ImportedGame, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := buildGameWhere(userID, f)
	page, pageArgs := normalizePage(limit, offset)
	args = append(args, pageArgs...)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM imported_games`+where+
			` ORDER BY played_at DESC NULLS LAST, imported_at DESC, id`+page, args...)
	if err != nil {
		metrics.RecordDBQuery("list", "imported_games", time.Since(start), err)
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer closeWithLog(rows, "rows")

	games := []models.ImportedGame{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, *g)
	}
	err = rows.Err()
	metrics.RecordDBQuery("list", "imported_games", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}
	return games, nil
}

// GetGame returns one of userID's games.
func (db *DB) GetGame(ctx context.Context, userID string, id uuid.UUID) (*models.ImportedGame, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM imported_games WHERE user_id = ? AND id = ?`, userID, id)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("get", "imported_games", time.Since(start), nil)
		return nil, &apperrors.NotFoundError{Resource: "game", ID: id.String()}
	}
	metrics.RecordDBQuery("get", "imported_games", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return g, nil
}

// DeleteGame removes one of userID's games.
func (db *DB) DeleteGame(ctx context.Context, userID string, id uuid.UUID) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `DELETE FROM imported_games WHERE user_id = ? AND id = ?`, userID, id)
	metrics.RecordDBQuery("delete", "imported_games", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete count: %w", err)
	}
	if n == 0 {
		return &apperrors.NotFoundError{Resource: "game", ID: id.String()}
	}
	return nil
}

// DeleteGames removes every game of userID matching the filter and returns
// how many were deleted.
func (db *DB) DeleteGames(ctx context.Context, userID string, f models.GameFilter) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := buildGameWhere(userID, f)
	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `DELETE FROM imported_games`+where, args...)
	metrics.RecordDBQuery("delete_many", "imported_games", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete games: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete count: %w", err)
	}
	return n, nil
}

// UpdateMapping replaces the opening mapping of one of userID's games.
func (db *DB) UpdateMapping(ctx context.Context, userID string, id uuid.UUID, m models.OpeningMapping) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `UPDATE imported_games SET
		repertoire_id = ?, repertoire_name = ?, variant_name = ?, mapping_confidence = ?,
		mapping_strategy = ?, requires_manual_review = ?
		WHERE user_id = ? AND id = ?`,
		m.RepertoireID, m.RepertoireName, m.VariantName, m.Confidence,
		string(m.Strategy), m.RequiresManualReview, userID, id)
	metrics.RecordDBQuery("update_mapping", "imported_games", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to update mapping: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update count: %w", err)
	}
	if n == 0 {
		return &apperrors.NotFoundError{Resource: "game", ID: id.String()}
	}
	return nil
}

func scanGame(row rowScanner) (*models.ImportedGame, error) {
	var (
		g              models.ImportedGame
		source         string
		providerGameID sql.NullString
		whiteRating    sql.NullInt64
		blackRating    sql.NullInt64
		result         string
		bucket         string
		rated          sql.NullBool
		playedAt       sql.NullTime
		movesJSON      string
		orientation    sql.NullString
		tagsJSON       string
		detectionJSON  string
		strategy       string
	)
	m := &g.OpeningMapping
	if err := row.Scan(
		&g.ID, &g.UserID, &source, &providerGameID, &g.DedupeKey, &g.White, &g.Black,
		&whiteRating, &blackRating, &result, &g.TimeControl, &bucket, &rated, &playedAt,
		&g.PGN, &movesJSON, &orientation, &tagsJSON, &detectionJSON,
		&m.RepertoireID, &m.RepertoireName, &m.VariantName, &m.Confidence, &strategy,
		&m.RequiresManualReview, &g.ImportedAt,
	); err != nil {
		return nil, err
	}

	g.Source = models.Source(source)
	g.ProviderGameID = providerGameID.String
	g.Result = models.GameResult(result)
	g.TimeControlBucket = models.TimeControlBucket(bucket)
	m.Strategy = models.MappingStrategy(strategy)
	g.ImportedAt = g.ImportedAt.UTC()

	if whiteRating.Valid {
		v := int(whiteRating.Int64)
		g.WhiteRating = &v
	}
	if blackRating.Valid {
		v := int(blackRating.Int64)
		g.BlackRating = &v
	}
	if rated.Valid {
		v := rated.Bool
		g.Rated = &v
	}
	if playedAt.Valid {
		t := playedAt.Time.UTC()
		g.PlayedAt = &t
	}
	if orientation.Valid && orientation.String != "" {
		o := models.Orientation(orientation.String)
		g.Orientation = &o
	}

	if err := json.Unmarshal([]byte(movesJSON), &g.MovesSAN); err != nil {
		return nil, fmt.Errorf("failed to unmarshal moves: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &g.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	if err := json.Unmarshal([]byte(detectionJSON), &g.OpeningDetection); err != nil {
		return nil, fmt.Errorf("failed to unmarshal opening detection: %w", err)
	}
	return &g, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func intPtrArg(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func boolPtrArg(v *bool) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
