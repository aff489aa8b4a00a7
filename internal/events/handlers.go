// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package events

import (
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/rookery/internal/logging"
)

// UserInvalidator drops everything cached for a user.
// *cache.Cache satisfies it through InvalidateUser.
type UserInvalidator interface {
	InvalidateUser(namespace, userID string) int
}

// StatsNamespace is the cache namespace for per-user stats responses.
const StatsNamespace = "stats"

// NewStatsInvalidationHandler returns a consumer for import.completed that
// drops the user's cached stats summaries. Malformed payloads are logged and
// acked so they are not retried.
func NewStatsInvalidationHandler(inv UserInvalidator) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		event, err := UnmarshalImportCompleted(msg.Payload)
		if err != nil {
			logging.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping malformed import.completed event")
			return nil
		}

		removed := inv.InvalidateUser(StatsNamespace, event.UserID)
		logging.Debug().
			Str("user_id", event.UserID).
			Str("source", string(event.Source)).
			Int("removed", removed).
			Msg("Invalidated stats cache")
		return nil
	}
}

// RegisterHandlers wires the consumers for every topic this package defines.
func RegisterHandlers(r *Router, bus *Bus, inv UserInvalidator) {
	r.AddConsumerHandler(
		"stats_cache_invalidation",
		TopicImportCompleted,
		bus.Subscriber(),
		NewStatsInvalidationHandler(inv),
	)
}
