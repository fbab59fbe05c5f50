// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerTokenStore is a durable TokenStore. Expiry uses Badger's per-entry
// TTL, so expired keys are invisible to reads and reclaimed on compaction.
type BadgerTokenStore struct {
	db     *badger.DB
	ownsDB bool
}

// OpenBadgerTokenStore opens a BadgerDB at path, or an in-memory instance
// when inMemory is set.
func OpenBadgerTokenStore(path string, inMemory bool) (*BadgerTokenStore, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for tokens: %w", err)
	}
	return &BadgerTokenStore{db: db, ownsDB: true}, nil
}

// NewBadgerTokenStore wraps an existing BadgerDB. Close does not close db.
func NewBadgerTokenStore(db *badger.DB) *BadgerTokenStore {
	return &BadgerTokenStore{db: db}
}

// Get implements TokenStore.
func (s *BadgerTokenStore) Get(_ context.Context, key string) (string, bool, error) {
	var token string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			token = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get token: %w", err)
	}
	return token, true, nil
}

// Set implements TokenStore. A non-positive ttl removes the key.
func (s *BadgerTokenStore) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Delete(ctx, key)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), []byte(token)).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("set token: %w", err)
	}
	return nil
}

// Delete implements TokenStore.
func (s *BadgerTokenStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// Close implements TokenStore.
func (s *BadgerTokenStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
