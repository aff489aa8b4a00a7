// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

// Package importer coordinates one import: fetch, dedupe, detect, map and
// persist, with linked-account status bookkeeping around it.
package importer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/rookery/internal/apperrors"
	"github.com/tomtom215/rookery/internal/config"
	"github.com/tomtom215/rookery/internal/events"
	"github.com/tomtom215/rookery/internal/logging"
	"github.com/tomtom215/rookery/internal/metrics"
	"github.com/tomtom215/rookery/internal/models"
	"github.com/tomtom215/rookery/internal/provider"
	"github.com/tomtom215/rookery/internal/repertoire"
)

// Orchestrator runs imports. It is safe for concurrent use; two imports for
// the same linked account never overlap.
type Orchestrator struct {
	cfg         config.ImportConfig
	adapters    AdapterResolver
	games       GameStore
	accounts    AccountStore
	repertoires repertoire.Source
	publisher   EventPublisher

	mu      sync.Mutex
	running map[string]struct{}

	now func() time.Time
}

// New creates an Orchestrator. publisher may be nil.
func New(
	cfg *config.ImportConfig,
	adapters AdapterResolver,
	games GameStore,
	accounts AccountStore,
	repertoires repertoire.Source,
	publisher EventPublisher,
) *Orchestrator {
	o := &Orchestrator{
		adapters:    adapters,
		games:       games,
		accounts:    accounts,
		repertoires: repertoires,
		publisher:   publisher,
		running:     make(map[string]struct{}),
		now:         time.Now,
	}
	if cfg != nil {
		o.cfg = *cfg
	}
	return o
}

// Import runs one import for req.UserID from req.Source.
//
// Per-game problems never fail the call; they are counted in the result.
// An adapter error marks the linked account failed and is returned as is.
// Manual imports skip all linked-account bookkeeping.
func (o *Orchestrator) Import(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, apperrors.NewValidationError("user_id", "is required")
	}
	adapter, err := o.adapters.Get(req.Source)
	if err != nil {
		return nil, err
	}

	tracked := req.Source.IsProvider()
	if tracked {
		release, err := o.acquire(req.UserID, req.Source)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	started := o.now().UTC()
	result, err := o.run(ctx, adapter, req, tracked, started)
	elapsed := o.now().Sub(started)

	if err != nil {
		metrics.RecordImport(string(req.Source), elapsed, 0, 0, 0, err)
		return nil, err
	}
	metrics.RecordImport(string(req.Source), elapsed, result.ImportedCount, result.DuplicateCount, result.FailedCount, nil)

	logging.Info().
		Str("user_id", req.UserID).
		Str("source", string(req.Source)).
		Int("imported", result.ImportedCount).
		Int("duplicates", result.DuplicateCount).
		Int("failed", result.FailedCount).
		Int("processed", result.ProcessedCount).
		Dur("duration", elapsed).
		Msg("Import completed")

	o.publish(ctx, req, result)
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, adapter provider.Adapter, req Request, tracked bool, started time.Time) (*Result, error) {
	opts := provider.ImportOptions{
		Username: strings.TrimSpace(req.Username),
		Token:    req.Token,
		Max:      req.Max,
		PGN:      req.PGN,
	}

	if tracked {
		synced, err := o.resolveAccount(ctx, req, &opts)
		if err != nil {
			return nil, err
		}

		// The cursor only holds once a sync has completed since the account
		// was linked or last reset; otherwise the full history is refetched.
		if synced {
			since, err := o.games.LatestPlayedAt(ctx, req.UserID, req.Source)
			if err != nil {
				return nil, fmt.Errorf("load sync cursor: %w", err)
			}
			opts.Since = since
		}

		if err := o.accounts.MarkSyncStarted(ctx, req.UserID, req.Source); err != nil {
			return nil, fmt.Errorf("mark sync started: %w", err)
		}
	}

	result, err := o.fetchAndStore(ctx, adapter, req, opts, started)
	if err != nil {
		if tracked {
			o.markFailed(ctx, req, err)
		}
		return nil, err
	}

	if tracked {
		if err := o.accounts.MarkSyncCompleted(context.WithoutCancel(ctx), req.UserID, req.Source, result.Feedback()); err != nil {
			logging.Error().Err(err).Str("user_id", req.UserID).Str("provider", string(req.Source)).
				Msg("Failed to record sync completion")
		}
	}
	return result, nil
}

// resolveAccount fills username and token from the linked account. Explicit
// request values win. An unlinked account is linked on first import. It
// reports whether the account has completed a sync since it was linked or
// reset.
func (o *Orchestrator) resolveAccount(ctx context.Context, req Request, opts *provider.ImportOptions) (bool, error) {
	acct, err := o.accounts.GetAccount(ctx, req.UserID, req.Source)
	if err != nil && !apperrors.IsNotFound(err) {
		return false, fmt.Errorf("load linked account: %w", err)
	}

	if acct != nil {
		if opts.Username == "" {
			opts.Username = acct.Username
		}
		if opts.Token == "" {
			opts.Token = acct.Token
		}
	}
	if opts.Username == "" {
		return false, apperrors.NewValidationError("username", "is required when no %s account is linked", req.Source)
	}

	if acct == nil {
		if _, err := o.accounts.UpsertAccount(ctx, req.UserID, req.Source, opts.Username, req.Token); err != nil {
			return false, fmt.Errorf("link account: %w", err)
		}
		return false, nil
	}
	return acct.LastSyncFeedback != nil, nil
}

func (o *Orchestrator) markFailed(ctx context.Context, req Request, cause error) {
	if err := o.accounts.MarkSyncFailed(context.WithoutCancel(ctx), req.UserID, req.Source, cause.Error(), o.now().UTC()); err != nil {
		logging.Error().Err(err).Str("user_id", req.UserID).Str("provider", string(req.Source)).
			Msg("Failed to record sync failure")
	}
	logging.Warn().Err(cause).Str("user_id", req.UserID).Str("provider", string(req.Source)).Msg("Import failed")
}

func (o *Orchestrator) fetchAndStore(ctx context.Context, adapter provider.Adapter, req Request, opts provider.ImportOptions, started time.Time) (*Result, error) {
	fetched, err := adapter.ImportGames(ctx, opts)
	if err != nil {
		return nil, err
	}

	result := &Result{ProcessedCount: len(fetched), StartedAt: started}

	keys := make([]string, len(fetched))
	for i := range fetched {
		keys[i] = dedupeKey(req.Source, &fetched[i])
	}
	existing, err := o.games.FindExistingDedupeKeys(ctx, req.UserID, uniqueKeys(keys))
	if err != nil {
		return nil, fmt.Errorf("load existing games: %w", err)
	}

	batch := repertoire.NewBatchCache(o.repertoires, req.UserID, o.cfg.VariantDepth)
	seen := make(map[string]struct{}, len(fetched))
	toInsert := make([]*models.ImportedGame, 0, len(fetched))

	for i := range fetched {
		key := keys[i]
		if existing[key] {
			result.DuplicateCount++
			continue
		}
		if _, dup := seen[key]; dup {
			result.DuplicateCount++
			continue
		}
		seen[key] = struct{}{}

		game, perr := o.buildGame(ctx, batch, req, opts.Username, key, &fetched[i])
		if perr != nil {
			result.FailedCount++
			logging.Warn().Err(perr).Str("user_id", req.UserID).Msg("Skipping game")
			continue
		}
		toInsert = append(toInsert, game)
	}

	written, err := o.games.BulkInsertGames(ctx, toInsert)
	if err != nil {
		return nil, fmt.Errorf("store games: %w", err)
	}
	result.ImportedCount = written.Inserted
	result.DuplicateCount += written.Duplicates()
	result.FailedCount += written.Failures()

	rejected := make(map[string]struct{}, len(written.Errors))
	for _, werr := range written.Errors {
		rejected[werr.DedupeKey] = struct{}{}
		if !werr.Duplicate {
			logging.Warn().Err(werr).Str("user_id", req.UserID).Msg("Game write failed")
		}
	}
	for _, g := range toInsert {
		if _, bad := rejected[g.DedupeKey]; !bad {
			metrics.MappingStrategies.WithLabelValues(string(g.OpeningMapping.Strategy)).Inc()
		}
	}

	result.FinishedAt = o.now().UTC()
	return result, nil
}

func (o *Orchestrator) publish(ctx context.Context, req Request, result *Result) {
	if o.publisher == nil {
		return
	}
	event := events.NewImportCompleted(req.UserID, req.Source, result.Feedback())
	if err := o.publisher.PublishImportCompleted(ctx, event); err != nil {
		logging.Warn().Err(err).Str("user_id", req.UserID).Msg("Failed to publish import.completed")
	}
}

// acquire claims the linked account for one import.
func (o *Orchestrator) acquire(userID string, source models.Source) (func(), error) {
	key := userID + "\x00" + string(source)

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.running[key]; busy {
		return nil, apperrors.ErrAlreadyRunning
	}
	o.running[key] = struct{}{}

	return func() {
		o.mu.Lock()
		delete(o.running, key)
		o.mu.Unlock()
	}, nil
}

// IsRunning reports whether an import for the account is in flight.
func (o *Orchestrator) IsRunning(userID string, source models.Source) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, busy := o.running[userID+"\x00"+string(source)]
	return busy
}

func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
