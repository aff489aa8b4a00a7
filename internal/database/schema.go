// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package database

import (
	"context"
	"fmt"
)

// Timestamps are stored as UTC TIMESTAMP values. JSON documents live in
// VARCHAR columns so the schema does not depend on the json extension.
var schemaTables = []struct {
	name string
	ddl  string
}{
	{"linked_game_accounts", `CREATE TABLE IF NOT EXISTS linked_game_accounts (
		user_id VARCHAR NOT NULL,
		provider VARCHAR NOT NULL,
		username VARCHAR NOT NULL,
		token VARCHAR,
		status VARCHAR NOT NULL DEFAULT 'idle',
		last_sync_at TIMESTAMP,
		last_sync_feedback VARCHAR,
		last_error VARCHAR,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, provider)
	)`},
	{"imported_games", `CREATE TABLE IF NOT EXISTS imported_games (
		id UUID PRIMARY KEY,
		user_id VARCHAR NOT NULL,
		source VARCHAR NOT NULL,
		provider_game_id VARCHAR,
		dedupe_key VARCHAR NOT NULL,
		white VARCHAR NOT NULL DEFAULT '',
		black VARCHAR NOT NULL DEFAULT '',
		white_rating INTEGER,
		black_rating INTEGER,
		result VARCHAR NOT NULL DEFAULT '*',
		time_control VARCHAR NOT NULL DEFAULT '',
		time_control_bucket VARCHAR NOT NULL,
		rated BOOLEAN,
		played_at TIMESTAMP,
		pgn VARCHAR NOT NULL,
		moves_san VARCHAR NOT NULL,
		orientation VARCHAR,
		tags VARCHAR NOT NULL DEFAULT '[]',
		eco VARCHAR NOT NULL DEFAULT '',
		opening_name VARCHAR NOT NULL DEFAULT '',
		line_key VARCHAR NOT NULL,
		opening_detection VARCHAR NOT NULL,
		repertoire_id VARCHAR NOT NULL DEFAULT '',
		repertoire_name VARCHAR NOT NULL DEFAULT '',
		variant_name VARCHAR NOT NULL DEFAULT '',
		mapping_confidence DOUBLE NOT NULL DEFAULT 0,
		mapping_strategy VARCHAR NOT NULL DEFAULT 'none',
		requires_manual_review BOOLEAN NOT NULL DEFAULT TRUE,
		imported_at TIMESTAMP NOT NULL,
		UNIQUE (user_id, dedupe_key)
	)`},
	{"training_plans", `CREATE TABLE IF NOT EXISTS training_plans (
		id VARCHAR PRIMARY KEY,
		user_id VARCHAR NOT NULL,
		generated_at TIMESTAMP NOT NULL,
		weights VARCHAR NOT NULL,
		items VARCHAR NOT NULL
	)`},
	{"repertoires", `CREATE TABLE IF NOT EXISTS repertoires (
		id VARCHAR PRIMARY KEY,
		user_id VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		orientation VARCHAR,
		tree VARCHAR NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`},
	{"training_signals", `CREATE TABLE IF NOT EXISTS training_signals (
		user_id VARCHAR NOT NULL,
		repertoire_id VARCHAR NOT NULL,
		variant_name VARCHAR NOT NULL,
		errors INTEGER NOT NULL DEFAULT 0,
		due_at TIMESTAMP,
		last_reviewed_at TIMESTAMP,
		PRIMARY KEY (user_id, repertoire_id, variant_name)
	)`},
}

var schemaIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_games_user_source_played ON imported_games(user_id, source, played_at)`,
	`CREATE INDEX IF NOT EXISTS idx_games_user_line ON imported_games(user_id, line_key)`,
	`CREATE INDEX IF NOT EXISTS idx_plans_user_generated ON training_plans(user_id, generated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_repertoires_user ON repertoires(user_id)`,
}

func (db *DB) createTables(ctx context.Context) error {
	for _, t := range schemaTables {
		if _, err := db.conn.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.name, err)
		}
	}
	return nil
}

func (db *DB) createIndexes(ctx context.Context) error {
	for _, ddl := range schemaIndexes {
		if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
