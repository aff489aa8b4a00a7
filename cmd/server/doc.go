// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

/*
Package main is the entry point for the rookery server.

Rookery imports a player's games from Lichess, Chess.com or pasted PGN,
detects the opening of every game, attributes it to one of the player's
repertoires and turns the result into statistics and a training plan.

# Startup

 1. Configuration: koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog, bridged to slog for the supervisor and to Watermill
 3. Database: DuckDB; accounts left "running" by a crash are marked failed
 4. Providers: Lichess and Chess.com adapters behind circuit breakers, with
    Chess.com archives cached in Badger when ARCHIVE_CACHE_ENABLED is set
 5. Events: in-process Watermill bus; import.completed invalidates stats
 6. Services: import orchestrator, stats, training plans, auto-sync
 7. HTTP: chi router under /api/v1 plus /metrics

# Supervision

	RootSupervisor ("rookery")
	├── events-layer  EventRouterService
	├── sync-layer    SchedulerService
	└── api-layer     HTTPServerService

# Signals

SIGINT and SIGTERM cancel the tree. The HTTP server drains for up to 10s,
the scheduler waits for its in-flight cycle up to AUTOSYNC_SHUTDOWN_TIMEOUT,
and services that ignore cancellation are reported before exit. DuckDB is
checkpointed and closed last.

# Example

	export AUTH_MODE=none
	export DEFAULT_USER_ID=me
	export AUTOSYNC_ENABLED=true
	./rookery
*/
package main
