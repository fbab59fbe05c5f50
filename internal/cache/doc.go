// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

/*
Package cache provides TTL key-value storage for short-lived credentials.

Media servers such as Kavita and RomM exchange a long-lived API key or
password for a short-lived bearer token. Adapters keep those tokens in an
injected TokenStore instead of package-level state so that:
  - tests can substitute a store with a controlled clock
  - tokens survive restarts when the Badger backend is configured
  - two adapters for the same server share one token

# Backends

	memory  process map swept on an interval, lost on restart (default)
	badger  BadgerDB with native per-entry TTL, durable

# Keys

TokenKey derives a compact key from the credential scope:

	key := cache.TokenKey("kavita", baseURL, apiKey)

The raw API key never appears in the key or in logs.

# Thread Safety

All types in this package are safe for concurrent use.
*/
package cache
