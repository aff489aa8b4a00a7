// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

/*
Package services adapts rookery components to suture.Service.

Each wrapper translates a component lifecycle into Serve(ctx) error:

	HTTPServerService   ListenAndServe / Shutdown   (api layer)
	SchedulerService    Start / Stop                (sync layer)
	EventRouterService  Run / Close                 (events layer)

Wrappers return ctx.Err() on graceful shutdown and a wrapped error when
the component fails on its own, which makes suture restart it with
backoff. Every wrapper implements fmt.Stringer so supervisor events name
the service.
*/
package services
