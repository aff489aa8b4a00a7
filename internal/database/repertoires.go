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

	"github.com/tomtom215/rookery/internal/apperrors"
	"github.com/tomtom215/rookery/internal/metrics"
	"github.com/tomtom215/rookery/internal/models"
	"github.com/tomtom215/rookery/internal/repertoire"
)

// ListRepertoires returns userID's repertoires ordered by ID. orientation
// nil returns all of them; otherwise repertoires built for that side plus
// those saved without an orientation.
func (db *DB) ListRepertoires(ctx context.Context, userID string, orientation *models.Orientation) ([]repertoire.Repertoire, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, user_id, name, orientation, tree FROM repertoires WHERE user_id = ?`
	args := []interface{}{userID}
	if orientation != nil {
		query += ` AND (orientation = ? OR orientation IS NULL)`
		args = append(args, string(*orientation))
	}
	query += ` ORDER BY id`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.RecordDBQuery("list", "repertoires", time.Since(start), err)
		return nil, fmt.Errorf("failed to list repertoires: %w", err)
	}
	defer closeWithLog(rows, "rows")

	reps := []repertoire.Repertoire{}
	for rows.Next() {
		rep, err := scanRepertoire(rows)
		if err != nil {
			return nil, err
		}
		reps = append(reps, *rep)
	}
	err = rows.Err()
	metrics.RecordDBQuery("list", "repertoires", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("error iterating repertoires: %w", err)
	}
	return reps, nil
}

// GetRepertoire returns one of userID's repertoires.
func (db *DB) GetRepertoire(ctx context.Context, userID, id string) (*repertoire.Repertoire, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name, orientation, tree FROM repertoires WHERE user_id = ? AND id = ?`, userID, id)
	rep, err := scanRepertoire(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperrors.NotFoundError{Resource: "repertoire", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// UpsertRepertoire stores a repertoire document. Repertoires are owned by
// the study tooling; this exists for seeding and tests.
func (db *DB) UpsertRepertoire(ctx context.Context, rep *repertoire.Repertoire) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tree, err := json.Marshal(rep.Root)
	if err != nil {
		return fmt.Errorf("failed to marshal repertoire tree: %w", err)
	}
	var orientation interface{}
	if rep.Orientation != nil {
		orientation = string(*rep.Orientation)
	}

	_, err = db.conn.ExecContext(ctx, `INSERT INTO repertoires (id, user_id, name, orientation, tree, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			orientation = excluded.orientation,
			tree = excluded.tree,
			updated_at = excluded.updated_at`,
		rep.ID, rep.UserID, rep.Name, orientation, string(tree), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert repertoire: %w", err)
	}
	return nil
}

func scanRepertoire(row rowScanner) (*repertoire.Repertoire, error) {
	var (
		rep         repertoire.Repertoire
		orientation sql.NullString
		tree        string
	)
	if err := row.Scan(&rep.ID, &rep.UserID, &rep.Name, &orientation, &tree); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan repertoire: %w", err)
	}
	if orientation.Valid && orientation.String != "" {
		o := models.Orientation(orientation.String)
		rep.Orientation = &o
	}
	if tree != "" && tree != "null" {
		rep.Root = &repertoire.MoveNode{}
		if err := json.Unmarshal([]byte(tree), rep.Root); err != nil {
			return nil, fmt.Errorf("failed to unmarshal repertoire %s tree: %w", rep.ID, err)
		}
	}
	return &rep, nil
}

// ListTrainingSignals returns the spaced-repetition effort records of userID.
func (db *DB) ListTrainingSignals(ctx context.Context, userID string) ([]models.TrainingSignal, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `SELECT repertoire_id, variant_name, errors, due_at, last_reviewed_at
		FROM training_signals WHERE user_id = ? ORDER BY repertoire_id, variant_name`, userID)
	if err != nil {
		metrics.RecordDBQuery("list", "training_signals", time.Since(start), err)
		return nil, fmt.Errorf("failed to list training signals: %w", err)
	}
	defer closeWithLog(rows, "rows")

	signals := []models.TrainingSignal{}
	for rows.Next() {
		var (
			s        models.TrainingSignal
			dueAt    sql.NullTime
			reviewed sql.NullTime
		)
		if err := rows.Scan(&s.RepertoireID, &s.VariantName, &s.Errors, &dueAt, &reviewed); err != nil {
			return nil, fmt.Errorf("failed to scan training signal: %w", err)
		}
		s.DueAt = nullTimePtr(dueAt)
		s.LastReviewedAt = nullTimePtr(reviewed)
		signals = append(signals, s)
	}
	err = rows.Err()
	metrics.RecordDBQuery("list", "training_signals", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("error iterating training signals: %w", err)
	}
	return signals, nil
}

// UpsertTrainingSignal stores one effort record. Like repertoires, signals
// are written by the study tooling; this exists for seeding and tests.
func (db *DB) UpsertTrainingSignal(ctx context.Context, userID string, s models.TrainingSignal) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `INSERT INTO training_signals
		(user_id, repertoire_id, variant_name, errors, due_at, last_reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, repertoire_id, variant_name) DO UPDATE SET
			errors = excluded.errors,
			due_at = excluded.due_at,
			last_reviewed_at = excluded.last_reviewed_at`,
		userID, s.RepertoireID, s.VariantName, s.Errors, timePtrArg(s.DueAt), timePtrArg(s.LastReviewedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert training signal: %w", err)
	}
	return nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func timePtrArg(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
