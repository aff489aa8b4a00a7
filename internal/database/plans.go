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
	"github.com/tomtom215/rookery/internal/metrics"
	"github.com/tomtom215/rookery/internal/models"
)

// SavePlan persists a generated training plan. An empty ID is filled in.
func (db *DB) SavePlan(ctx context.Context, plan *models.TrainingPlan) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	if plan.GeneratedAt.IsZero() {
		plan.GeneratedAt = time.Now().UTC()
	}
	if plan.Items == nil {
		plan.Items = []models.TrainingPlanItem{}
	}

	weights, err := json.Marshal(plan.Weights)
	if err != nil {
		return fmt.Errorf("failed to marshal plan weights: %w", err)
	}
	items, err := json.Marshal(plan.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal plan items: %w", err)
	}

	start := time.Now()
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO training_plans (id, user_id, generated_at, weights, items) VALUES (?, ?, ?, ?, ?)`,
		plan.ID, plan.UserID, plan.GeneratedAt.UTC(), string(weights), string(items))
	metrics.RecordDBQuery("insert", "training_plans", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert training plan: %w", err)
	}
	return nil
}

// LatestPlan returns the most recently generated plan of userID.
func (db *DB) LatestPlan(ctx context.Context, userID string) (*models.TrainingPlan, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `SELECT id, user_id, generated_at, weights, items
		FROM training_plans WHERE user_id = ? ORDER BY generated_at DESC, id DESC LIMIT 1`, userID)
	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("latest", "training_plans", time.Since(start), nil)
		return nil, &apperrors.NotFoundError{Resource: "training plan"}
	}
	metrics.RecordDBQuery("latest", "training_plans", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// SetPlanItemDone flips the done flag of one item of one of userID's plans
// and returns the updated plan.
func (db *DB) SetPlanItemDone(ctx context.Context, userID, planID, lineKey string, done bool) (*models.TrainingPlan, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT id, user_id, generated_at, weights, items FROM training_plans WHERE user_id = ? AND id = ?`,
		userID, planID)
	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperrors.NotFoundError{Resource: "training plan", ID: planID}
	}
	if err != nil {
		return nil, err
	}

	found := false
	for i := range plan.Items {
		if plan.Items[i].LineKey == lineKey {
			plan.Items[i].Done = done
			found = true
		}
	}
	if !found {
		return nil, &apperrors.NotFoundError{Resource: "training plan item", ID: lineKey}
	}

	items, err := json.Marshal(plan.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE training_plans SET items = ? WHERE id = ?`, string(items), planID); err != nil {
		return nil, fmt.Errorf("failed to update training plan: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit training plan update: %w", err)
	}
	return plan, nil
}

func scanPlan(row rowScanner) (*models.TrainingPlan, error) {
	var (
		plan    models.TrainingPlan
		weights string
		items   string
	)
	if err := row.Scan(&plan.ID, &plan.UserID, &plan.GeneratedAt, &weights, &items); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan training plan: %w", err)
	}
	plan.GeneratedAt = plan.GeneratedAt.UTC()
	if err := json.Unmarshal([]byte(weights), &plan.Weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan weights: %w", err)
	}
	if err := json.Unmarshal([]byte(items), &plan.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan items: %w", err)
	}
	if plan.Items == nil {
		plan.Items = []models.TrainingPlanItem{}
	}
	return &plan, nil
}
