// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package services

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/mediacatalog/internal/eventprocessor"
	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// EventSubscriber subscribes to catalog events. *eventprocessor.Bus satisfies it.
type EventSubscriber interface {
	Subscribe(ctx context.Context, eventType string) (<-chan *message.Message, error)
}

// CatalogEventTypes lists the event types EventLogService consumes by default.
var CatalogEventTypes = []string{
	models.EventLibrariesReconciled,
	models.EventLibrarySynced,
	models.EventEpisodesSynced,
	models.EventEpisodesPurged,
}

// EventLogService consumes catalog change events and writes an audit log
// line for each. Undecodable messages are logged and acked so they are not
// redelivered forever.
type EventLogService struct {
	subscriber EventSubscriber
	eventTypes []string
	log        zerolog.Logger
	handled    func(*models.CatalogEvent)
}

// NewEventLogService creates the service for eventTypes, or for every
// catalog event type when none are given.
func NewEventLogService(subscriber EventSubscriber, eventTypes ...string) *EventLogService {
	if len(eventTypes) == 0 {
		eventTypes = CatalogEventTypes
	}
	return &EventLogService{
		subscriber: subscriber,
		eventTypes: eventTypes,
		log:        logging.WithComponent("catalog-events"),
	}
}

// Serve implements suture.Service.
func (s *EventLogService) Serve(ctx context.Context) error {
	merged := make(chan *message.Message)
	for _, eventType := range s.eventTypes {
		messages, err := s.subscriber.Subscribe(ctx, eventType)
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", eventType, err)
		}
		go forward(ctx, messages, merged)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-merged:
			s.handle(msg)
		}
	}
}

func forward(ctx context.Context, in <-chan *message.Message, out chan<- *message.Message) {
	for msg := range in {
		select {
		case out <- msg:
		case <-ctx.Done():
			msg.Nack()
			return
		}
	}
}

func (s *EventLogService) handle(msg *message.Message) {
	defer msg.Ack()

	event, err := eventprocessor.DecodeMessage(msg)
	if err != nil {
		s.log.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable catalog event")
		return
	}

	s.log.Info().
		Str("event_id", event.EventID).
		Str("type", event.Type).
		Str("server_id", event.ServerID).
		Str("library_id", event.LibraryID).
		Str("item_id", event.ItemID).
		Int("added", event.Added).
		Int("updated", event.Updated).
		Int("removed", event.Removed).
		Msg("Catalog changed")

	if s.handled != nil {
		s.handled(event)
	}
}

// String implements fmt.Stringer.
func (s *EventLogService) String() string {
	return "catalog-event-log"
}
