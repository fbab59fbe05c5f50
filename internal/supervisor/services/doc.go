// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

// Package services adapts long-running media catalog components to
// suture.Service so the supervisor tree can restart them on failure.
//
//   - HTTPServerService runs the API server with graceful shutdown.
//   - ReconcileService reconciles every server's libraries on a schedule.
//   - EventLogService consumes catalog change events and logs them.
//
// Every service returns ctx.Err() on cancellation so suture treats the
// stop as intentional.
package services
