// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

//go:build !nats

package eventprocessor

import (
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/mediacatalog/internal/config"
)

// ErrNATSUnavailable is returned when the nats backend is selected in a build
// without the nats tag.
var ErrNATSUnavailable = errors.New("NATS event backend not available: build with -tags=nats")

func newNATS(config.EventsConfig, watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	return nil, nil, ErrNATSUnavailable
}
