// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/mediacatalog/internal/config"
)

// TokenStore holds bearer tokens until they expire.
//
// Get returns ("", false, nil) for a missing or expired key. Errors are
// reserved for backend failures; callers treat them as a miss.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// StoreType selects a TokenStore backend.
type StoreType string

const (
	// StoreMemory keeps tokens in process memory (default).
	StoreMemory StoreType = "memory"

	// StoreBadger keeps tokens in BadgerDB with native TTL.
	StoreBadger StoreType = "badger"
)

// TokenKey derives a store key from a credential scope such as
// (service, baseURL, apiKey). Parts are length-prefixed before hashing so
// ("ab", "c") and ("a", "bc") never collide.
func TokenKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s|", len(p), p)
	}
	return "token:" + hex.EncodeToString(h.Sum(nil))
}

// NewTokenStore creates the backend selected by cfg.
func NewTokenStore(cfg config.TokenStoreConfig) (TokenStore, error) {
	switch StoreType(strings.ToLower(cfg.Backend)) {
	case StoreBadger:
		return OpenBadgerTokenStore(cfg.Path, cfg.InMemory)
	case StoreMemory, "":
		return NewMemoryTokenStore(cfg.CleanupInterval), nil
	default:
		return nil, fmt.Errorf("unknown token store backend %q", cfg.Backend)
	}
}

// Verify interface implementations at compile time
var (
	_ TokenStore = (*MemoryTokenStore)(nil)
	_ TokenStore = (*BadgerTokenStore)(nil)
)
