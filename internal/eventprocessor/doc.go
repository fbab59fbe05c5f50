// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

/*
Package eventprocessor publishes catalog change events over Watermill.

Every reconciliation, content sync, episode sync and purge emits one
models.CatalogEvent on the topic "{prefix}.{type}", for example
"catalog.library.synced". Payloads are JSON and the message UUID is the
event id.

Two backends are available:

  - gochannel: in-process fan-out. Messages published with no subscriber
    are dropped. This is the default.
  - nats: NATS JetStream via watermill-nats, compiled only with -tags=nats.

Publishing goes through a circuit breaker so that a dead broker does not slow
down sync passes. Publish failures never fail the sync that produced the
event; the sync manager logs them and moves on.

# Usage

	bus, err := eventprocessor.New(cfg.Events)
	if err != nil {
		return err
	}
	defer bus.Close()
	manager.SetEventPublisher(bus)

	msgs, _ := bus.Subscribe(ctx, models.EventLibrarySynced)
	for msg := range msgs {
		event, err := eventprocessor.DecodeMessage(msg)
		...
		msg.Ack()
	}
*/
package eventprocessor
