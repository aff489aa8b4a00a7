// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeScheduler struct {
	startErr error
	starts   atomic.Int32
	stops    atomic.Int32
}

func (f *fakeScheduler) Start(context.Context) error {
	f.starts.Add(1)
	return f.startErr
}

func (f *fakeScheduler) Stop() error {
	f.stops.Add(1)
	return nil
}

func TestSchedulerService_Lifecycle(t *testing.T) {
	sched := &fakeScheduler{}
	svc := NewSchedulerService(sched)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(time.Second)
	for sched.starts.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sched.stops.Load() != 0 {
		t.Fatal("Stop called before cancellation")
	}
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v", err)
	}
	if sched.stops.Load() != 1 {
		t.Errorf("Stop called %d times, want 1", sched.stops.Load())
	}
	if svc.String() != "auto-sync" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestSchedulerService_StartFailure(t *testing.T) {
	sched := &fakeScheduler{startErr: errors.New("scheduler already running")}

	err := NewSchedulerService(sched).Serve(context.Background())
	if !errors.Is(err, sched.startErr) {
		t.Errorf("Serve() error = %v, want wrapped start error", err)
	}
	if sched.stops.Load() != 0 {
		t.Error("Stop should not be called after a failed Start")
	}
}

type fakeRouter struct {
	runErr  error
	closed  atomic.Bool
	release chan struct{}
}

func (f *fakeRouter) Run(ctx context.Context) error {
	if f.runErr != nil {
		return f.runErr
	}
	select {
	case <-ctx.Done():
	case <-f.release:
	}
	return nil
}

func (f *fakeRouter) Close() error {
	f.closed.Store(true)
	return nil
}

func TestEventRouterService_StopsOnCancel(t *testing.T) {
	router := &fakeRouter{release: make(chan struct{})}
	svc := NewEventRouterService(router, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestEventRouterService_UnexpectedExit(t *testing.T) {
	router := &fakeRouter{release: make(chan struct{})}
	close(router.release)

	if err := NewEventRouterService(router, 0).Serve(context.Background()); err == nil {
		t.Error("Serve() should fail when the router exits on its own")
	}

	failing := &fakeRouter{runErr: errors.New("subscribe failed")}
	if err := NewEventRouterService(failing, 0).Serve(context.Background()); !errors.Is(err, failing.runErr) {
		t.Errorf("Serve() error = %v, want wrapped run error", err)
	}
}
