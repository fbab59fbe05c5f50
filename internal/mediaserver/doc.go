// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

/*
Package mediaserver talks to the remote media servers the catalog mirrors.

Every supported service (Plex, Jellyfin, Emby, Kavita, AudioBookshelf, Komga
and RomM) is reached through an adapter that implements Service and returns
records in the canonical shapes from the models package. Content browsing is
optional and discovered at runtime:

	svc, err := factory.New(server)
	if browser, ok := mediaserver.AsContentBrowser(svc); ok {
		page, err := browser.GetLibraryContent(ctx, libraryID, mediaserver.ContentQuery{Page: 1, PerPage: 50})
	}

# Canonical Records

Adapters normalize units before returning: durations are seconds, timestamps
are UTC and missing numbers are nil rather than zero. Libraries and users that
lack an id or a name are dropped and counted in the
adapter_contract_violations_total metric.

# Errors

HTTP failures surface as *StatusError, which unwraps to ErrUnauthorized or
ErrNotFound. Operations a service cannot perform return ErrUnsupported.

# Resilience

Factory keeps one golang.org/x/time/rate limiter and one sony/gobreaker
circuit breaker per server. ErrUnsupported and ErrNotFound do not count as
breaker failures.

# Authentication

Kavita and RomM exchange credentials for bearer tokens. Tokens live in a
cache.TokenStore, are refreshed on expiry and are re-acquired once when a
request comes back 401.
*/
package mediaserver
