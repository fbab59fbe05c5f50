// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package mediaserver

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/mediacatalog/internal/metrics"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// ValidateLibrary checks that a library record carries the fields every
// consumer relies on.
func ValidateLibrary(l *models.Library) error {
	if l == nil {
		return errors.New("library is nil")
	}
	if strings.TrimSpace(l.Key()) == "" {
		return errors.New("library has no id or external_id")
	}
	if strings.TrimSpace(l.Name) == "" {
		return errors.New("library name is empty")
	}
	return nil
}

// ValidateUser checks that a user record has an id and a username.
func ValidateUser(u *models.User) error {
	if u == nil {
		return errors.New("user is nil")
	}
	if strings.TrimSpace(u.ID) == "" {
		return errors.New("user id is empty")
	}
	if strings.TrimSpace(u.Username) == "" {
		return errors.New("username is empty")
	}
	return nil
}

// ValidateMediaRecord checks that a media record can be keyed.
func ValidateMediaRecord(r *models.MediaRecord) error {
	if r == nil {
		return errors.New("media record is nil")
	}
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("media record id is empty")
	}
	return nil
}

// filterLibraries drops and counts records that fail ValidateLibrary.
func filterLibraries(log zerolog.Logger, st models.ServiceType, libs []models.Library) []models.Library {
	out := make([]models.Library, 0, len(libs))
	for i := range libs {
		if err := ValidateLibrary(&libs[i]); err != nil {
			log.Warn().Err(err).Str("name", libs[i].Name).Msg("Dropping library that violates the adapter contract")
			metrics.RecordContractViolation(string(st), "library")
			continue
		}
		out = append(out, libs[i])
	}
	return out
}

// filterUsers drops and counts records that fail ValidateUser.
func filterUsers(log zerolog.Logger, st models.ServiceType, users []models.User) []models.User {
	out := make([]models.User, 0, len(users))
	for i := range users {
		if err := ValidateUser(&users[i]); err != nil {
			log.Warn().Err(err).Str("user_id", users[i].ID).Msg("Dropping user that violates the adapter contract")
			metrics.RecordContractViolation(string(st), "user")
			continue
		}
		if users[i].LibraryIDs == nil {
			users[i].LibraryIDs = []string{}
		}
		out = append(out, users[i])
	}
	return out
}

// filterRecords drops and counts records that fail ValidateMediaRecord.
func filterRecords(log zerolog.Logger, st models.ServiceType, recs []models.MediaRecord) []models.MediaRecord {
	out := make([]models.MediaRecord, 0, len(recs))
	for i := range recs {
		if err := ValidateMediaRecord(&recs[i]); err != nil {
			log.Warn().Err(err).Str("title", recs[i].Title).Msg("Dropping media record that violates the adapter contract")
			metrics.RecordContractViolation(string(st), "media")
			continue
		}
		out = append(out, recs[i])
	}
	return out
}
