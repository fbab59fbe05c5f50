// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package eventprocessor

import (
	"fmt"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/mediacatalog/internal/models"
)

// Message metadata keys set on every catalog event.
const (
	MetadataEventType = "event_type"
	MetadataServerID  = "server_id"
	MetadataLibraryID = "library_id"
)

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "catalog"

// Topic returns the topic for an event type, e.g. "catalog.library.synced".
func Topic(prefix, eventType string) string {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return prefix + "." + eventType
}

// NewMessage serializes event into a Watermill message keyed by its event id.
func NewMessage(event *models.CatalogEvent) (*message.Message, error) {
	if event.EventID == "" {
		return nil, fmt.Errorf("event %s has no id", event.Type)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("serialize event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set(MetadataEventType, event.Type)
	if event.ServerID != "" {
		msg.Metadata.Set(MetadataServerID, event.ServerID)
	}
	if event.LibraryID != "" {
		msg.Metadata.Set(MetadataLibraryID, event.LibraryID)
	}
	return msg, nil
}

// DecodeMessage parses a catalog event from a message payload.
func DecodeMessage(msg *message.Message) (*models.CatalogEvent, error) {
	var event models.CatalogEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("deserialize event %s: %w", msg.UUID, err)
	}
	return &event, nil
}
