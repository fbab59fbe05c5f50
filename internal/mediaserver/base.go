// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package mediaserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/mediacatalog/internal/cache"
	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// Options carries the dependencies an adapter needs besides the server row.
type Options struct {
	// HTTPClient is used for all outbound calls. When nil a client with a
	// 30 second timeout is created.
	HTTPClient *http.Client

	// Limiter throttles outbound calls to this server. Nil disables throttling.
	Limiter *rate.Limiter

	// Tokens caches bearer tokens for services with a token exchange
	// (Kavita, RomM). When nil an in-memory store is created per adapter.
	Tokens cache.TokenStore

	// KavitaPluginName identifies this application to Kavita's plugin
	// authentication endpoint.
	KavitaPluginName string

	// Now overrides the clock used for token lifetimes. Tests only.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// featureSets lists what each service supports beyond the capability
// interfaces.
var featureSets = map[models.ServiceType][]string{
	models.ServicePlex:           {FeatureUserManagement, FeatureLibraryAccess, FeatureActiveSessions, FeatureSessionTerminate, FeatureDownloads, FeatureTranscoding, FeatureSharing},
	models.ServiceJellyfin:       {FeatureUserManagement, FeatureLibraryAccess, FeatureActiveSessions, FeatureSessionTerminate, FeatureDownloads, FeatureTranscoding},
	models.ServiceEmby:           {FeatureUserManagement, FeatureLibraryAccess, FeatureActiveSessions, FeatureSessionTerminate, FeatureDownloads, FeatureTranscoding},
	models.ServiceKavita:         {FeatureUserManagement, FeatureLibraryAccess, FeatureDownloads},
	models.ServiceAudiobookshelf: {FeatureUserManagement, FeatureLibraryAccess, FeatureActiveSessions, FeatureSessionTerminate, FeatureDownloads},
	models.ServiceKomga:          {FeatureUserManagement, FeatureLibraryAccess, FeatureDownloads},
	models.ServiceRomM:           {FeatureUserManagement, FeatureDownloads},
}

// base holds what every adapter shares: the server row, the request helper
// and a scoped logger.
type base struct {
	server *models.MediaServer
	client *apiClient
	log    zerolog.Logger
}

func newBase(server *models.MediaServer, opts Options, authorize func(*http.Request)) base {
	return base{
		server: server,
		client: newAPIClient(server.ServiceType, server.URL, opts, authorize),
		log:    logging.WithServer("mediaserver", server.ID, server.ServiceType.String()).With().Str("server", server.Nickname).Logger(),
	}
}

// ServiceType returns the adapter's service type.
func (b *base) ServiceType() models.ServiceType {
	return b.server.ServiceType
}

// SupportsFeature reports whether the service supports feature.
func (b *base) SupportsFeature(feature string) bool {
	for _, f := range featureSets[b.server.ServiceType] {
		if f == feature {
			return true
		}
	}
	return false
}

func (b *base) formatSessions(sessions []models.Session) []models.FormattedSession {
	out := make([]models.FormattedSession, 0, len(sessions))
	for i := range sessions {
		out = append(out, models.FormatSession(sessions[i], b.server.Nickname, b.server.ServiceType))
	}
	return out
}

func (b *base) libraries(libs []models.Library) []models.Library {
	return filterLibraries(b.log, b.server.ServiceType, libs)
}

func (b *base) users(users []models.User) []models.User {
	return filterUsers(b.log, b.server.ServiceType, users)
}

func (b *base) records(recs []models.MediaRecord) []models.MediaRecord {
	return filterRecords(b.log, b.server.ServiceType, recs)
}

// usernameTaken compares case-insensitively, like every supported service.
func usernameTaken(users []models.User, username string) bool {
	for i := range users {
		if strings.EqualFold(users[i].Username, username) {
			return true
		}
	}
	return false
}

// wantsAllLibraries reports whether an access list means "all libraries".
func wantsAllLibraries(ids []string) bool {
	return len(ids) == 0 || models.IsWildcard(ids)
}
