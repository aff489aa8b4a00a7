// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

// Package scheduler runs the auto-sync loop.
//
// scheduler.go - Auto-Sync Scheduler
//
// On every tick (and once at start) the scheduler:
//   - Lists linked accounts whose last sync is older than DueAfter
//   - Imports each one in turn through the orchestrator
//   - Records the cycle outcome in metrics
//
// At most one cycle is in flight; a tick that fires while a cycle is still
// running is a no-op. Stopping never cancels the in-flight cycle: it waits
// up to ShutdownTimeout and reports whether the cycle finished in time.
//
// A process must hold at most one Scheduler. Running several schedulers
// against the same database can import a due account twice; the last
// write to last_sync_at wins.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/rookery/internal/apperrors"
	"github.com/tomtom215/rookery/internal/config"
	"github.com/tomtom215/rookery/internal/importer"
	"github.com/tomtom215/rookery/internal/logging"
	"github.com/tomtom215/rookery/internal/metrics"
	"github.com/tomtom215/rookery/internal/models"
)

// Syncer imports games for one linked account. *importer.Orchestrator satisfies it.
type Syncer interface {
	Import(ctx context.Context, req importer.Request) (*importer.Result, error)
}

// AccountLister finds accounts due for a sync.
type AccountLister interface {
	ListDueAccounts(ctx context.Context, dueBefore time.Time, limit int) ([]models.LinkedAccount, error)
}

// CycleResult reports one RunCycle call.
type CycleResult struct {
	Skipped bool
	Due     int
	Synced  int
	Failed  int
}

// Scheduler periodically syncs due linked accounts.
type Scheduler struct {
	config   config.AutoSyncConfig
	syncer   Syncer
	accounts AccountLister
	logger   zerolog.Logger
	now      func() time.Time

	// Runtime state
	mu       sync.Mutex
	running  bool
	stopped  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	inflight chan struct{}
	stopDone chan struct{}
	result   bool
}

// New creates a scheduler. Zero config values fall back to a 24h interval,
// a 24h due threshold, batches of 25 and a 30s shutdown timeout.
func New(cfg config.AutoSyncConfig, syncer Syncer, accounts AccountLister) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.DueAfter <= 0 {
		cfg.DueAfter = 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	return &Scheduler{
		config:   cfg,
		syncer:   syncer,
		accounts: accounts,
		logger:   logging.WithComponent("autosync"),
		now:      time.Now,
	}
}

// Start begins the scheduler loop. A disabled scheduler starts as a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopped = false
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	if !s.config.Enabled {
		s.logger.Info().Msg("Auto-sync disabled")
		close(s.doneCh)
		return nil
	}

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Dur("due_after", s.config.DueAfter).
		Int("batch_size", s.config.BatchSize).
		Msg("Starting auto-sync scheduler")

	go s.run(ctx)
	return nil
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Cycles outlive shutdown of the loop; Stop waits for them separately.
	cycleCtx := context.WithoutCancel(ctx)

	s.trigger(cycleCtx)
	for {
		select {
		case <-ticker.C:
			s.trigger(cycleCtx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// trigger starts a cycle in the background unless one is in flight.
func (s *Scheduler) trigger(ctx context.Context) {
	done, ok := s.begin()
	if !ok {
		metrics.RecordAutoSyncCycle(true, 0, 0)
		s.logger.Debug().Msg("Previous auto-sync cycle still running, skipping tick")
		return
	}
	go func() {
		defer s.end(done)
		s.cycle(ctx)
	}()
}

// RunCycle runs one cycle synchronously. It returns a skipped result
// without doing anything when another cycle is in flight.
func (s *Scheduler) RunCycle(ctx context.Context) CycleResult {
	done, ok := s.begin()
	if !ok {
		metrics.RecordAutoSyncCycle(true, 0, 0)
		return CycleResult{Skipped: true}
	}
	defer s.end(done)
	return s.cycle(ctx)
}

func (s *Scheduler) begin() (chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight != nil {
		return nil, false
	}
	done := make(chan struct{})
	s.inflight = done
	return done, true
}

func (s *Scheduler) end(done chan struct{}) {
	s.mu.Lock()
	if s.inflight == done {
		s.inflight = nil
	}
	s.mu.Unlock()
	close(done)
}

func (s *Scheduler) cycle(ctx context.Context) CycleResult {
	start := s.now()
	var res CycleResult

	due, err := s.accounts.ListDueAccounts(ctx, start.Add(-s.config.DueAfter).UTC(), s.config.BatchSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list due accounts")
		metrics.RecordAutoSyncCycle(false, 0, 0)
		return res
	}
	res.Due = len(due)

	for i := range due {
		acct := &due[i]
		if acct.Status == models.StatusRunning {
			continue
		}
		_, err := s.syncer.Import(ctx, importer.Request{UserID: acct.UserID, Source: acct.Provider})
		switch {
		case err == nil:
			res.Synced++
		case errors.Is(err, apperrors.ErrAlreadyRunning):
			s.logger.Debug().Str("user_id", acct.UserID).Str("provider", string(acct.Provider)).
				Msg("Account already syncing, skipped")
		default:
			res.Failed++
			s.logger.Warn().Err(err).Str("user_id", acct.UserID).Str("provider", string(acct.Provider)).
				Msg("Auto-sync failed for account")
		}
	}

	metrics.RecordAutoSyncCycle(false, res.Synced, res.Failed)
	s.logger.Info().
		Int("due", res.Due).
		Int("synced", res.Synced).
		Int("failed", res.Failed).
		Dur("duration", s.now().Sub(start)).
		Msg("Auto-sync cycle finished")
	return res
}

// Stop stops the loop and waits for the in-flight cycle. It is idempotent.
func (s *Scheduler) Stop() error {
	if !s.StopWithResult() {
		s.logger.Warn().Dur("timeout", s.config.ShutdownTimeout).
			Msg("Auto-sync cycle still running after shutdown timeout")
	}
	return nil
}

// StopWithResult stops the loop and reports whether the in-flight cycle,
// if any, finished within the shutdown timeout. The cycle is never
// cancelled; on timeout it keeps running in the background. Later calls
// return the first call's result. A scheduler that was never started
// reports true.
func (s *Scheduler) StopWithResult() bool {
	s.mu.Lock()
	if s.stopped {
		stopDone := s.stopDone
		s.mu.Unlock()
		<-stopDone
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.result
	}
	if !s.running {
		s.mu.Unlock()
		return true
	}
	s.stopped = true
	s.stopDone = make(chan struct{})
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh

	s.mu.Lock()
	inflight := s.inflight
	s.mu.Unlock()

	finished := true
	if inflight != nil {
		timer := time.NewTimer(s.config.ShutdownTimeout)
		defer timer.Stop()
		select {
		case <-inflight:
		case <-timer.C:
			finished = false
		}
	}

	s.mu.Lock()
	s.running = false
	s.result = finished
	close(s.stopDone)
	s.mu.Unlock()

	s.logger.Info().Bool("cycle_finished", finished).Msg("Auto-sync scheduler stopped")
	return finished
}

// IsRunning reports whether the loop has been started and not stopped.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && !s.stopped
}
