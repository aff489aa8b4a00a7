// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package repertoire

import (
	"context"
	"fmt"
	"sort"

	"github.com/tomtom215/rookery/internal/models"
)

// Source loads a user's repertoires. orientation nil means all of them.
type Source interface {
	ListRepertoires(ctx context.Context, userID string, orientation *models.Orientation) ([]Repertoire, error)
}

const allOrientations = "all"

// BatchCache memoizes repertoire metadata for a single import call.
//
// A new cache must be created for every import invocation: repertoires may
// change between calls, so entries are never shared across batches. The
// cache is not safe for concurrent use; one import processes its games
// sequentially.
type BatchCache struct {
	source   Source
	userID   string
	maxPlies int
	entries  map[string][]Metadata
	loads    int
}

// NewBatchCache creates an empty cache for one user's import batch.
func NewBatchCache(source Source, userID string, maxPlies int) *BatchCache {
	if maxPlies <= 0 {
		maxPlies = DefaultVariantDepth
	}
	return &BatchCache{
		source:   source,
		userID:   userID,
		maxPlies: maxPlies,
		entries:  make(map[string][]Metadata),
	}
}

// Get returns the metadata of every repertoire matching orientation (or all
// repertoires when orientation is nil), loading it on first use. The result
// is sorted by repertoire ID so that mapping tie-breaks are deterministic.
func (c *BatchCache) Get(ctx context.Context, orientation *models.Orientation) ([]Metadata, error) {
	key := allOrientations
	if orientation != nil {
		key = string(*orientation)
	}
	if md, ok := c.entries[key]; ok {
		return md, nil
	}

	reps, err := c.source.ListRepertoires(ctx, c.userID, orientation)
	if err != nil {
		return nil, fmt.Errorf("load repertoires (%s): %w", key, err)
	}
	c.loads++

	md := make([]Metadata, 0, len(reps))
	for i := range reps {
		md = append(md, BuildMetadata(&reps[i], c.maxPlies))
	}
	sort.SliceStable(md, func(i, j int) bool { return md[i].ID < md[j].ID })

	c.entries[key] = md
	return md, nil
}

// Loads returns how many times the underlying source was queried.
func (c *BatchCache) Loads() int {
	return c.loads
}
