// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

/*
Package supervisor runs the rookery server's long-lived services under a
suture v4 supervisor tree.

# Layout

	RootSupervisor ("rookery")
	├── EventsSupervisor ("events-layer")
	│   └── EventRouterService   import.completed consumer (stats invalidation)
	├── SyncSupervisor ("sync-layer")
	│   └── SchedulerService     auto-sync of linked accounts
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Each layer counts failures on its own, so a scheduler that keeps failing
backs off without taking the HTTP server with it.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddEventService(services.NewEventRouterService(router, 10*time.Second))
	tree.AddSyncService(services.NewSchedulerService(sched))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)
	<-ctx.Done()
	<-errCh

	if report, _ := tree.UnstoppedServiceReport(); len(report) > 0 {
	    // services that ignored cancellation
	}

# Failure handling

suture keeps a decaying failure counter per supervisor. When it exceeds
FailureThreshold, restarts wait FailureBackoff. The counter halves every
FailureDecay seconds.

Service return values:
  - ctx.Err() after cancellation: clean shutdown
  - any other error, or nil before cancellation: restarted

# Not supervised

DuckDB and Badger are embedded libraries owned by main; they are opened
before the tree starts and closed after it stops.

Supervisor events are logged through sutureslog into the zerolog stream.
*/
package supervisor
