// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

// Package api exposes the catalog engine, sync manager and access
// normalizer over HTTP using the chi router.
//
// Every endpoint answers with models.APIResponse. Storage faults map to
// 500 DATABASE_ERROR, unknown ids to 404 NOT_FOUND, and malformed input to
// 400 VALIDATION_ERROR. Remote media server failures never fail a request;
// they are reported inside the result body.
//
// Routes:
//
//	GET    /api/v1/health
//	POST   /api/v1/libraries/reconcile
//	POST   /api/v1/servers/{id}/libraries/reconcile
//	POST   /api/v1/servers/{id}/access/normalize
//	POST   /api/v1/libraries/{id}/sync
//	GET    /api/v1/libraries/{id}/content
//	GET    /api/v1/shows/{id}/episodes
//	POST   /api/v1/shows/{id}/episodes/sync
//	DELETE /api/v1/shows/{id}/episodes
//	GET    /metrics
package api
