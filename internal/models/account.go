// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package models

import "time"

// LinkedAccount is a user's account on one provider.
//
// State machine: idle -> running (sync start) -> completed | failed
// (sync end). Returning to idle only happens through an explicit reset,
// for example when the user bulk-deletes the games from that provider.
type LinkedAccount struct {
	UserID           string        `json:"user_id"`
	Provider         Source        `json:"provider"`
	Username         string        `json:"username"`
	Token            string        `json:"-"`
	Status           SyncStatus    `json:"status"`
	LastSyncAt       *time.Time    `json:"last_sync_at,omitempty"`
	LastSyncFeedback *SyncFeedback `json:"last_sync_feedback,omitempty"`
	LastError        string        `json:"last_error,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// SyncFeedback is the counts snapshot stored after each import.
type SyncFeedback struct {
	ImportedCount  int       `json:"imported_count"`
	DuplicateCount int       `json:"duplicate_count"`
	FailedCount    int       `json:"failed_count"`
	ProcessedCount int       `json:"processed_count"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// IsDue reports whether the account should be synced at now given the
// due threshold. Accounts that never synced are always due.
func (a *LinkedAccount) IsDue(now time.Time, dueAfter time.Duration) bool {
	if a.LastSyncAt == nil {
		return true
	}
	return !a.LastSyncAt.After(now.Add(-dueAfter))
}
