// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/mediacatalog/internal/metrics"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// healthCheckTimeout bounds the database ping of a health check.
const healthCheckTimeout = 2 * time.Second

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Health reports process and database health. An unreachable database
// yields 503 with the same body shape.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := HealthStatus{
		Status:        "healthy",
		Version:       h.version,
		Database:      "connected",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}
	metrics.AppUptime.Set(status.UptimeSeconds)

	if err := h.store.Ping(ctx); err != nil {
		status.Status = "degraded"
		status.Database = "unavailable"
		respondJSON(w, http.StatusServiceUnavailable, envelope(models.StatusError, status, start))
		return
	}

	respondSuccess(w, status, start)
}
