// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package services

import (
	"context"
	"fmt"
)

// StartStopper is the lifecycle of *scheduler.Scheduler.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService adapts the auto-sync scheduler's Start/Stop lifecycle to
// suture. Stop waits for the in-flight cycle up to the scheduler's own
// shutdown timeout.
type SchedulerService struct {
	scheduler StartStopper
	name      string
}

// NewSchedulerService wraps s.
func NewSchedulerService(s StartStopper) *SchedulerService {
	return &SchedulerService{scheduler: s, name: "auto-sync"}
}

// Serve implements suture.Service. A failed Start is returned so the
// supervisor backs off and retries.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("auto-sync start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.scheduler.Stop(); err != nil {
		return fmt.Errorf("auto-sync stop failed: %w", err)
	}
	return ctx.Err()
}

func (s *SchedulerService) String() string {
	return s.name
}
