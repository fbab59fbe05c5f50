// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// EventPublisher publishes catalog change events. Implementations live in
// the eventprocessor package so sync needs no broker dependency.
type EventPublisher interface {
	// PublishCatalogEvent publishes one event. Errors are logged by the
	// caller and never fail a sync.
	PublishCatalogEvent(ctx context.Context, event *models.CatalogEvent) error
}

// SetEventPublisher sets the optional event publisher. nil disables publishing.
func (m *Manager) SetEventPublisher(publisher EventPublisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publisher = publisher
}

// publish sends event when a publisher is configured.
func (m *Manager) publish(ctx context.Context, event *models.CatalogEvent) {
	m.mu.RLock()
	publisher := m.publisher
	m.mu.RUnlock()
	if publisher == nil {
		return
	}

	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = m.now().UTC()
	}

	// Publishing is bounded so a stalled broker cannot hold a sync result.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := publisher.PublishCatalogEvent(pubCtx, event); err != nil {
		logging.Warn().Err(err).
			Str("event_type", event.Type).
			Str("event_id", event.EventID).
			Msg("Failed to publish catalog event")
	}
}
