// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package eventprocessor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/metrics"
	"github.com/tomtom215/mediacatalog/internal/models"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	bus, err := New(config.EventsConfig{Enabled: true, Backend: BackendGoChannel, TopicPrefix: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestTopic(t *testing.T) {
	tests := []struct {
		prefix, eventType, want string
	}{
		{"catalog", models.EventLibrarySynced, "catalog.library.synced"},
		{"catalog.", models.EventEpisodesPurged, "catalog.episodes.purged"},
		{"", models.EventLibrariesReconciled, "catalog.libraries.reconciled"},
	}
	for _, tt := range tests {
		if got := Topic(tt.prefix, tt.eventType); got != tt.want {
			t.Errorf("Topic(%q, %q) = %q, want %q", tt.prefix, tt.eventType, got, tt.want)
		}
	}
}

func TestPublishAndSubscribe(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs, err := bus.Subscribe(ctx, models.EventLibrarySynced)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	topic := bus.Topic(models.EventLibrarySynced)
	before := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(topic, "success"))

	event := &models.CatalogEvent{
		EventID:    "evt-1",
		Type:       models.EventLibrarySynced,
		ServerID:   "srv",
		LibraryID:  "lib",
		Title:      "Movies",
		Added:      2,
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := bus.PublishCatalogEvent(ctx, event); err != nil {
		t.Fatalf("PublishCatalogEvent: %v", err)
	}

	select {
	case msg := <-msgs:
		got, err := DecodeMessage(msg)
		if err != nil {
			t.Fatalf("DecodeMessage: %v", err)
		}
		msg.Ack()
		if msg.UUID != "evt-1" {
			t.Errorf("message uuid = %q, want evt-1", msg.UUID)
		}
		if msg.Metadata.Get(MetadataLibraryID) != "lib" {
			t.Errorf("library metadata = %q", msg.Metadata.Get(MetadataLibraryID))
		}
		if got.Title != "Movies" || got.Added != 2 {
			t.Errorf("decoded event = %+v", got)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}

	after := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(topic, "success"))
	if after-before != 1 {
		t.Errorf("published metric delta = %v, want 1", after-before)
	}
}

func TestPublishWithoutSubscriber(t *testing.T) {
	bus := newTestBus(t)
	err := bus.PublishCatalogEvent(context.Background(), &models.CatalogEvent{EventID: "e", Type: models.EventEpisodesSynced})
	if err != nil {
		t.Fatalf("publish with no subscriber: %v", err)
	}
}

func TestPublishRequiresEventID(t *testing.T) {
	bus := newTestBus(t)
	if err := bus.PublishCatalogEvent(context.Background(), &models.CatalogEvent{Type: models.EventEpisodesSynced}); err == nil {
		t.Fatal("expected an error for an event without id")
	}
}

func TestClosedBus(t *testing.T) {
	bus := newTestBus(t)
	if err := bus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	err := bus.PublishCatalogEvent(context.Background(), &models.CatalogEvent{EventID: "e", Type: models.EventLibrarySynced})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("publish after close = %v, want ErrClosed", err)
	}
	if _, err := bus.Subscribe(context.Background(), models.EventLibrarySynced); !errors.Is(err, ErrClosed) {
		t.Errorf("subscribe after close = %v, want ErrClosed", err)
	}
}

func TestUnknownBackend(t *testing.T) {
	if _, err := New(config.EventsConfig{Backend: "kafka"}); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}
