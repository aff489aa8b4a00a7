// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

/*
Package api provides the HTTP interface of the import service using the chi router.

# Routes

All data routes live under /api/v1, require authentication and are rate
limited per client IP:

	POST   /api/v1/imports                                 run one import
	GET    /api/v1/accounts                                list linked accounts
	PUT    /api/v1/accounts/{provider}                     link or relink an account
	POST   /api/v1/accounts/{provider}/reset               reset sync cursor and status
	GET    /api/v1/games                                   list games (filters, limit, offset)
	DELETE /api/v1/games                                   bulk delete by filters
	DELETE /api/v1/games/{id}                              delete one game
	PUT    /api/v1/games/{id}/mapping                      set or clear the repertoire mapping
	GET    /api/v1/stats                                   aggregated stats (filters)
	POST   /api/v1/training-plans                          regenerate the training plan
	GET    /api/v1/training-plans/latest                   latest plan hydrated with live stats
	PATCH  /api/v1/training-plans/{planID}/items/{lineKey} mark an item done or not done

Unauthenticated operational routes:

	GET /api/v1/health/live   liveness
	GET /api/v1/health/ready  readiness (database ping)
	GET /metrics              Prometheus

# Filters

Game, stats and training-plan reads accept the same query parameters:
source, timeControlBucket, orientation, mapped (mapped|unmapped|all),
from and to (RFC3339 or YYYY-MM-DD) and opening (name or ECO). Malformed
values are rejected with 400 VALIDATION_ERROR before any I/O.

# Responses

Every response uses the models.APIResponse envelope. Errors are mapped
from the apperrors taxonomy: validation 400, not found 404, sync already
running 409, provider fetch 502, anything else 500.
*/
package api
