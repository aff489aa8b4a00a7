// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

// Package auth resolves the user every API request acts as.
//
// Two modes are supported:
//
//   - jwt: the request must carry "Authorization: Bearer <token>" signed
//     with the configured HS256 secret. The token's "sub" claim is the
//     user ID. Expired, unsigned or differently-signed tokens are rejected
//     with 401.
//   - none: every request acts as the configured default user. Intended
//     for single-user and local deployments.
//
// Handlers read the resolved user with UserID(ctx). Session management,
// login flows and role checks are not part of this package.
package auth
