// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

// Package events carries in-process domain events over a Watermill GoChannel
// pub/sub. The importer publishes import.completed after every successful
// import; consumers registered on the Router react to it (the stats cache
// drops the user's cached summaries).
package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/rookery/internal/models"
)

// TopicImportCompleted is published once per successful import.
const TopicImportCompleted = "import.completed"

// ImportCompleted describes a finished import run.
type ImportCompleted struct {
	EventID    string        `json:"event_id"`
	UserID     string        `json:"user_id"`
	Source     models.Source `json:"source"`
	Imported   int           `json:"imported"`
	Duplicates int           `json:"duplicates"`
	Failed     int           `json:"failed"`
	Processed  int           `json:"processed"`
	FinishedAt time.Time     `json:"finished_at"`
}

// NewImportCompleted builds an event with a fresh ID.
func NewImportCompleted(userID string, source models.Source, fb models.SyncFeedback) *ImportCompleted {
	return &ImportCompleted{
		EventID:    uuid.New().String(),
		UserID:     userID,
		Source:     source,
		Imported:   fb.ImportedCount,
		Duplicates: fb.DuplicateCount,
		Failed:     fb.FailedCount,
		Processed:  fb.ProcessedCount,
		FinishedAt: fb.FinishedAt,
	}
}

// Validate checks required fields.
func (e *ImportCompleted) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if e.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if _, err := models.ParseSource(string(e.Source)); err != nil {
		return err
	}
	return nil
}

// Marshal validates and encodes the event.
func (e *ImportCompleted) Marshal() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// UnmarshalImportCompleted decodes a payload produced by Marshal.
func UnmarshalImportCompleted(data []byte) (*ImportCompleted, error) {
	var e ImportCompleted
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}
	return &e, nil
}
