// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/metrics"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// Supported backends
const (
	BackendGoChannel = "gochannel"
	BackendNATS      = "nats"
)

// ErrClosed is returned by operations on a closed Bus.
var ErrClosed = errors.New("event bus is closed")

// Bus publishes catalog change events and lets consumers subscribe to them.
// It satisfies sync.EventPublisher.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	prefix     string
	breaker    *gobreaker.CircuitBreaker[interface{}]

	mu     sync.RWMutex
	closed bool
}

// New creates a Bus for the configured backend.
func New(cfg config.EventsConfig) (*Bus, error) {
	logger := NewLoggerAdapter()

	switch cfg.Backend {
	case "", BackendGoChannel:
		ch := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.PublishBuffer,
		}, logger)
		return newBus(ch, ch, cfg.TopicPrefix), nil
	case BackendNATS:
		pub, sub, err := newNATS(cfg, logger)
		if err != nil {
			return nil, err
		}
		return newBus(pub, sub, cfg.TopicPrefix), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

func newBus(pub message.Publisher, sub message.Subscriber, prefix string) *Bus {
	return &Bus{
		publisher:  pub,
		subscriber: sub,
		prefix:     prefix,
		breaker:    newPublishBreaker(),
	}
}

// newPublishBreaker opens after 5 consecutive publish failures and probes
// again after 30 seconds.
func newPublishBreaker() *gobreaker.CircuitBreaker[interface{}] {
	return gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "event-publisher",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Event publisher breaker state changed")
		},
	})
}

// Topic returns the full topic for an event type on this bus.
func (b *Bus) Topic(eventType string) string {
	return Topic(b.prefix, eventType)
}

// PublishCatalogEvent publishes event on the topic for its type.
func (b *Bus) PublishCatalogEvent(ctx context.Context, event *models.CatalogEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	topic := b.Topic(event.Type)
	msg, err := NewMessage(event)
	if err != nil {
		metrics.RecordEventPublish(topic, err)
		return err
	}
	msg.SetContext(ctx)

	_, err = b.breaker.Execute(func() (interface{}, error) {
		return nil, b.publisher.Publish(topic, msg)
	})
	metrics.RecordEventPublish(topic, err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe returns the messages published for an event type. The channel
// closes when ctx is canceled or the bus is closed. Consumers must Ack or
// Nack every message.
func (b *Bus) Subscribe(ctx context.Context, eventType string) (<-chan *message.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}
	return b.subscriber.Subscribe(ctx, b.Topic(eventType))
}

// Close shuts down the publisher and subscriber.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	err := b.publisher.Close()
	// GoChannel is both ends of the bus.
	if any(b.subscriber) != any(b.publisher) {
		err = errors.Join(err, b.subscriber.Close())
	}
	return err
}
