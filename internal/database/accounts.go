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
)

const accountColumns = `user_id, provider, username, token, status, last_sync_at,
	last_sync_feedback, last_error, created_at, updated_at`

// GetAccount returns the linked account of userID on provider.
func (db *DB) GetAccount(ctx context.Context, userID string, provider models.Source) (*models.LinkedAccount, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM linked_game_accounts WHERE user_id = ? AND provider = ?`,
		userID, string(provider))
	acct, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("get", "linked_game_accounts", time.Since(start), nil)
		return nil, &apperrors.NotFoundError{Resource: "linked account", ID: string(provider)}
	}
	metrics.RecordDBQuery("get", "linked_game_accounts", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to get linked account: %w", err)
	}
	return acct, nil
}

// ListAccounts returns every linked account of userID ordered by provider.
func (db *DB) ListAccounts(ctx context.Context, userID string) ([]models.LinkedAccount, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.queryAccounts(ctx, "list",
		`SELECT `+accountColumns+` FROM linked_game_accounts WHERE user_id = ? ORDER BY provider`, userID)
}

// ListDueAccounts returns up to limit accounts that are not running and
// whose last sync is at or before dueBefore. Accounts that never synced come
// first, then the stalest.
func (db *DB) ListDueAccounts(ctx context.Context, dueBefore time.Time, limit int) ([]models.LinkedAccount, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 25
	}
	return db.queryAccounts(ctx, "list_due",
		`SELECT `+accountColumns+` FROM linked_game_accounts
		WHERE status <> ? AND (last_sync_at IS NULL OR last_sync_at <= ?)
		ORDER BY last_sync_at ASC NULLS FIRST, user_id, provider
		LIMIT ?`,
		string(models.StatusRunning), dueBefore.UTC(), limit)
}

func (db *DB) queryAccounts(ctx context.Context, op, query string, args ...interface{}) ([]models.LinkedAccount, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.RecordDBQuery(op, "linked_game_accounts", time.Since(start), err)
		return nil, fmt.Errorf("failed to query linked accounts: %w", err)
	}
	defer closeWithLog(rows, "rows")

	accounts := []models.LinkedAccount{}
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan linked account: %w", err)
		}
		accounts = append(accounts, *acct)
	}
	err = rows.Err()
	metrics.RecordDBQuery(op, "linked_game_accounts", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("error iterating linked accounts: %w", err)
	}
	return accounts, nil
}

// UpsertAccount links (or relinks) a provider account. Status and sync
// history of an existing link are preserved; an empty token keeps the
// stored one.
func (db *DB) UpsertAccount(ctx context.Context, userID string, provider models.Source, username, token string) (*models.LinkedAccount, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := time.Now().UTC()
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO linked_game_accounts
		(user_id, provider, username, token, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			username = excluded.username,
			token = COALESCE(excluded.token, token),
			updated_at = excluded.updated_at`,
		userID, string(provider), username, nullString(token), string(models.StatusIdle), now, now)
	metrics.RecordDBQuery("upsert", "linked_game_accounts", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert linked account: %w", err)
	}
	return db.GetAccount(ctx, userID, provider)
}

// MarkSyncStarted moves the account to running and clears the last error.
func (db *DB) MarkSyncStarted(ctx context.Context, userID string, provider models.Source) error {
	return db.updateAccount(ctx, "mark_running",
		`UPDATE linked_game_accounts SET status = ?, last_error = NULL, updated_at = ?
		WHERE user_id = ? AND provider = ?`,
		string(models.StatusRunning), time.Now().UTC(), userID, string(provider))
}

// MarkSyncCompleted records a successful sync and its counts.
func (db *DB) MarkSyncCompleted(ctx context.Context, userID string, provider models.Source, feedback models.SyncFeedback) error {
	fb, err := json.Marshal(feedback)
	if err != nil {
		return fmt.Errorf("failed to marshal sync feedback: %w", err)
	}
	return db.updateAccount(ctx, "mark_completed",
		`UPDATE linked_game_accounts SET status = ?, last_sync_at = ?, last_sync_feedback = ?,
			last_error = NULL, updated_at = ?
		WHERE user_id = ? AND provider = ?`,
		string(models.StatusCompleted), feedback.FinishedAt.UTC(), string(fb), time.Now().UTC(),
		userID, string(provider))
}

// MarkSyncFailed records a failed sync. last_sync_at is advanced to the
// attempt time so the auto-sync scheduler backs off instead of retrying the
// account every cycle.
func (db *DB) MarkSyncFailed(ctx context.Context, userID string, provider models.Source, message string, at time.Time) error {
	return db.updateAccount(ctx, "mark_failed",
		`UPDATE linked_game_accounts SET status = ?, last_sync_at = ?, last_error = ?, updated_at = ?
		WHERE user_id = ? AND provider = ?`,
		string(models.StatusFailed), at.UTC(), message, time.Now().UTC(), userID, string(provider))
}

// ResetAccounts returns the user's accounts to idle and forgets their sync
// history. provider nil resets every provider. It returns the number of
// accounts reset.
func (db *DB) ResetAccounts(ctx context.Context, userID string, provider *models.Source) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `UPDATE linked_game_accounts SET status = ?, last_sync_at = NULL,
		last_sync_feedback = NULL, last_error = NULL, updated_at = ?
		WHERE user_id = ?`
	args := []interface{}{string(models.StatusIdle), time.Now().UTC(), userID}
	if provider != nil {
		query += ` AND provider = ?`
		args = append(args, string(*provider))
	}

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, query, args...)
	metrics.RecordDBQuery("reset", "linked_game_accounts", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to reset linked accounts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read reset count: %w", err)
	}
	return n, nil
}

// FailInterruptedSyncs marks every account left running by a previous
// process as failed. Called once at startup.
func (db *DB) FailInterruptedSyncs(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := time.Now().UTC()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE linked_game_accounts SET status = ?, last_error = ?, updated_at = ? WHERE status = ?`,
		string(models.StatusFailed), "sync interrupted by shutdown", now, string(models.StatusRunning))
	if err != nil {
		return 0, fmt.Errorf("failed to fail interrupted syncs: %w", err)
	}
	return res.RowsAffected()
}

func (db *DB) updateAccount(ctx context.Context, op, query string, args ...interface{}) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, query, args...)
	metrics.RecordDBQuery(op, "linked_game_accounts", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to update linked account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update count: %w", err)
	}
	if n == 0 {
		return &apperrors.NotFoundError{Resource: "linked account"}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*models.LinkedAccount, error) {
	var (
		acct       models.LinkedAccount
		provider   string
		status     string
		token      sql.NullString
		lastSyncAt sql.NullTime
		feedback   sql.NullString
		lastError  sql.NullString
	)
	if err := row.Scan(&acct.UserID, &provider, &acct.Username, &token, &status, &lastSyncAt,
		&feedback, &lastError, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
		return nil, err
	}

	acct.Provider = models.Source(provider)
	acct.Status = models.SyncStatus(status)
	acct.Token = token.String
	acct.LastError = lastError.String
	if lastSyncAt.Valid {
		t := lastSyncAt.Time.UTC()
		acct.LastSyncAt = &t
	}
	if feedback.Valid && feedback.String != "" {
		var fb models.SyncFeedback
		if err := json.Unmarshal([]byte(feedback.String), &fb); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sync feedback: %w", err)
		}
		acct.LastSyncFeedback = &fb
	}
	acct.CreatedAt = acct.CreatedAt.UTC()
	acct.UpdatedAt = acct.UpdatedAt.UTC()
	return &acct, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
