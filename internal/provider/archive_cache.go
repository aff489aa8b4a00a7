// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

const archiveKeyPrefix = "archive:chesscom:"

// ArchiveCache stores monthly archive bodies that can no longer change.
// Only archives of past months may be stored.
type ArchiveCache interface {
	Get(ctx context.Context, archiveURL string) ([]byte, bool, error)
	Put(ctx context.Context, archiveURL string, body []byte) error
}

// BadgerArchiveCache persists archives in BadgerDB so restarts do not
// re-download history.
type BadgerArchiveCache struct {
	db *badger.DB
}

// NewBadgerArchiveCache uses an already opened BadgerDB. The caller owns db.
func NewBadgerArchiveCache(db *badger.DB) *BadgerArchiveCache {
	return &BadgerArchiveCache{db: db}
}

// OpenBadgerArchiveCache opens (or creates) a BadgerDB at path.
func OpenBadgerArchiveCache(path string) (*BadgerArchiveCache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open archive cache %s: %w", path, err)
	}
	return &BadgerArchiveCache{db: db}, nil
}

// Get returns the cached body for archiveURL.
func (c *BadgerArchiveCache) Get(_ context.Context, archiveURL string) ([]byte, bool, error) {
	var body []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(archiveKeyPrefix + archiveURL))
		if err != nil {
			return err
		}
		body, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read archive cache: %w", err)
	}
	return body, true, nil
}

// Put stores body for archiveURL.
func (c *BadgerArchiveCache) Put(_ context.Context, archiveURL string, body []byte) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(archiveKeyPrefix+archiveURL), body)
	})
}

// Close closes the underlying database.
func (c *BadgerArchiveCache) Close() error {
	return c.db.Close()
}

// InMemoryArchiveCache keeps archives for the life of the process.
type InMemoryArchiveCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewInMemoryArchiveCache creates an empty cache.
func NewInMemoryArchiveCache() *InMemoryArchiveCache {
	return &InMemoryArchiveCache{entries: make(map[string][]byte)}
}

// Get returns a copy of the cached body.
func (c *InMemoryArchiveCache) Get(_ context.Context, archiveURL string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	body, ok := c.entries[archiveURL]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), body...), true, nil
}

// Put stores a copy of body.
func (c *InMemoryArchiveCache) Put(_ context.Context, archiveURL string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[archiveURL] = append([]byte(nil), body...)
	return nil
}

// Len returns the number of cached archives.
func (c *InMemoryArchiveCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
