// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package config

import (
	"strings"

	"github.com/tomtom215/mediacatalog/internal/models"
)

// ServerInputs converts the configured media server entries into inputs for
// the database seeding step. Entries are assumed validated.
func (c *Config) ServerInputs() []models.MediaServerInput {
	inputs := make([]models.MediaServerInput, 0, len(c.Servers))
	for _, entry := range c.Servers {
		st, err := models.ParseServiceType(entry.ServiceType)
		if err != nil {
			continue
		}
		inputs = append(inputs, models.MediaServerInput{
			ServiceType: st,
			Nickname:    strings.TrimSpace(entry.Nickname),
			URL:         strings.TrimSuffix(entry.URL, "/"),
			APIKey:      entry.APIKey,
			Username:    entry.Username,
			Password:    entry.Password,
			IsActive:    entry.Active,
		})
	}
	return inputs
}
