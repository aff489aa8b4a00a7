// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/rookery/internal/logging"
)

// EventRouter is the lifecycle of *events.Router.
type EventRouter interface {
	Run(ctx context.Context) error
	Close() error
}

// EventRouterService runs the Watermill router that consumes
// import-completed events.
type EventRouterService struct {
	router       EventRouter
	closeTimeout time.Duration
	name         string
}

// NewEventRouterService wraps router. closeTimeout bounds how long Serve
// waits for Close after cancellation; zero means 10s.
func NewEventRouterService(router EventRouter, closeTimeout time.Duration) *EventRouterService {
	if closeTimeout <= 0 {
		closeTimeout = 10 * time.Second
	}
	return &EventRouterService{router: router, closeTimeout: closeTimeout, name: "event-router"}
}

// Serve implements suture.Service. Run returning before cancellation is a
// failure so the supervisor restarts the service.
func (s *EventRouterService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.router.Run(ctx)
	}()

	select {
	case err := <-errCh:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return fmt.Errorf("event router stopped unexpectedly")
		}
		return fmt.Errorf("event router failed: %w", err)

	case <-ctx.Done():
		if err := s.router.Close(); err != nil {
			logging.Warn().Err(err).Str("service", s.name).Msg("Event router close failed")
		}
		select {
		case <-errCh:
		case <-time.After(s.closeTimeout):
			logging.Warn().Dur("timeout", s.closeTimeout).Str("service", s.name).Msg("Event router did not stop in time")
		}
		return ctx.Err()
	}
}

func (s *EventRouterService) String() string {
	return s.name
}
