// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

// Package middleware provides net/http middleware shared by the API router:
// request id propagation into the logging context and Prometheus request
// instrumentation keyed by chi route pattern.
package middleware
