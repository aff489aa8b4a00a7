// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

/*
Package models defines the data shared by every rookery package.

Persisted records:

  - ImportedGame: one normalized game with its OpeningDetection and
    OpeningMapping. DedupeKey is unique per user.
  - LinkedAccount: a user's Lichess or Chess.com account and its sync state
    machine (idle, running, completed, failed) with the last SyncFeedback.
  - TrainingPlan: ranked TrainingPlanItems keyed by LineKey.
  - TrainingSignal: per-variant effort counters owned by the trainer.

Closed enums (Source, TimeControlBucket, Orientation, MappingStrategy,
MappedFilter, SyncStatus, Effort) each have a Parse function that accepts
any case and returns an *apperrors.ValidationError for anything else.

GameFilter is parsed from query parameters by ParseGameFilter. The same
filter drives SQL in the database package and Matches for in-memory
aggregation, so both must agree.

API envelopes (APIResponse, Metadata, APIError, PaginationInfo) are the
JSON shapes written by the api package.
*/
package models
