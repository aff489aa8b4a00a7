// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package models

import (
	"time"
)

// APIResponse is the envelope returned by every HTTP endpoint.
//
// Example successful import response:
//
//	{
//	  "status": "success",
//	  "data": {"imported_count": 12, "duplicate_count": 3, "failed_count": 0, "processed_count": 15},
//	  "metadata": {"timestamp": "2026-01-15T12:00:00Z", "query_time_ms": 812}
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {"code": "VALIDATION_ERROR", "message": "source: must be one of lichess, chesscom, manual"},
//	  "metadata": {"timestamp": "2026-01-15T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries timing and cache information for a response.
type Metadata struct {
	Timestamp   time.Time       `json:"timestamp"`
	QueryTimeMS int64           `json:"query_time_ms,omitempty"`
	Cached      bool            `json:"cached,omitempty"`
	Pagination  *PaginationInfo `json:"pagination,omitempty"`
}

// APIError is a machine-readable error code plus a human message.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// PaginationInfo describes an offset-paginated list response.
type PaginationInfo struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Count   int  `json:"count"`
	HasMore bool `json:"has_more"`
}
