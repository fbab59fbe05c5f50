// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

// Package supervisor runs the media catalog's long-lived components under a
// suture v4 supervisor tree.
//
// The root supervisor has three children:
//
//	mediacatalog
//	├── sync-layer       (services.ReconcileService)
//	├── messaging-layer  (services.EventLogService)
//	└── api-layer        (services.HTTPServerService)
//
// A service that returns an error or panics is restarted with backoff
// governed by TreeConfig. Supervisor events are logged through sutureslog
// into the slog bridge of internal/logging.
//
// Usage:
//
//	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
//	tree.AddSyncService(services.NewReconcileService(manager, cfg.Sync.ReconcileInterval, cfg.Sync.ReconcileOnStart))
//	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
//	err = tree.Serve(ctx)
package supervisor
