// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package mediaserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/metrics"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// BreakerService wraps a Service with a circuit breaker so that an
// unreachable media server fails fast instead of stalling every sync.
//
// The breaker uses real time (via sony/gobreaker) for its interval and
// timeout. Tests that need deterministic behavior should exercise the
// wrapped adapter directly.
type BreakerService struct {
	svc  Service
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

// newCircuitBreaker creates a breaker with these settings:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
func newCircuitBreaker(name string) *gobreaker.CircuitBreaker[interface{}] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Str("breaker", name).Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		// Capability gaps and missing records are answers, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrUnsupported) ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})
}

// breakerName is the breaker and metric label for a server.
func breakerName(server *models.MediaServer) string {
	return server.ServiceType.String() + ":" + server.Nickname
}

// WithBreaker wraps svc in cb. The returned Service implements exactly the
// optional capabilities svc implements.
func WithBreaker(svc Service, cb *gobreaker.CircuitBreaker[interface{}]) Service {
	b := &BreakerService{svc: svc, cb: cb, name: cb.Name()}

	_, content := svc.(ContentBrowser)
	_, episodes := svc.(EpisodeBrowser)
	switch {
	case content && episodes:
		return fullBreaker{b}
	case content:
		return contentBreaker{b}
	case episodes:
		return episodeBreaker{b}
	default:
		return b
	}
}

// Unwrap returns the wrapped adapter.
func (b *BreakerService) Unwrap() Service {
	return b.svc
}

// State returns the breaker state name.
func (b *BreakerService) State() string {
	return stateToString(b.cb.State())
}

// execute wraps an adapter call with circuit breaker protection.
func (b *BreakerService) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)

	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			logging.Warn().Err(err).Str("breaker", b.name).Msg("[CIRCUIT BREAKER] Request rejected")
			return nil, fmt.Errorf("%s: %w", b.name, err)
		case errors.Is(err, ErrUnsupported) || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled):
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		default:
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
			counts := b.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
	return result, nil
}

// call runs fn through the breaker and restores its static result type.
func call[T any](b *BreakerService, fn func() (T, error)) (T, error) {
	var zero T
	result, err := b.execute(func() (interface{}, error) {
		v, err := fn()
		return v, err
	})
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// callErr runs an error-only fn through the breaker.
func callErr(b *BreakerService, fn func() error) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// ServiceType returns the wrapped adapter's service type.
func (b *BreakerService) ServiceType() models.ServiceType {
	return b.svc.ServiceType()
}

// SupportsFeature delegates to the wrapped adapter.
func (b *BreakerService) SupportsFeature(feature string) bool {
	return b.svc.SupportsFeature(feature)
}

// TestConnection runs through the breaker.
func (b *BreakerService) TestConnection(ctx context.Context) (string, error) {
	return call(b, func() (string, error) { return b.svc.TestConnection(ctx) })
}

// GetLibraries runs through the breaker.
func (b *BreakerService) GetLibraries(ctx context.Context) ([]models.Library, error) {
	return call(b, func() ([]models.Library, error) { return b.svc.GetLibraries(ctx) })
}

// GetUsers runs through the breaker.
func (b *BreakerService) GetUsers(ctx context.Context) ([]models.User, error) {
	return call(b, func() ([]models.User, error) { return b.svc.GetUsers(ctx) })
}

// CreateUser runs through the breaker.
func (b *BreakerService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.CreatedUser, error) {
	return call(b, func() (*models.CreatedUser, error) { return b.svc.CreateUser(ctx, req) })
}

// UpdateUserAccess runs through the breaker.
func (b *BreakerService) UpdateUserAccess(ctx context.Context, userID string, libraryIDs []string) error {
	return callErr(b, func() error { return b.svc.UpdateUserAccess(ctx, userID, libraryIDs) })
}

// DeleteUser runs through the breaker.
func (b *BreakerService) DeleteUser(ctx context.Context, userID string) error {
	return callErr(b, func() error { return b.svc.DeleteUser(ctx, userID) })
}

// GetActiveSessions runs through the breaker.
func (b *BreakerService) GetActiveSessions(ctx context.Context) ([]models.Session, error) {
	return call(b, func() ([]models.Session, error) { return b.svc.GetActiveSessions(ctx) })
}

// TerminateSession runs through the breaker.
func (b *BreakerService) TerminateSession(ctx context.Context, sessionID, reason string) error {
	return callErr(b, func() error { return b.svc.TerminateSession(ctx, sessionID, reason) })
}

// GetFormattedSessions runs through the breaker.
func (b *BreakerService) GetFormattedSessions(ctx context.Context) ([]models.FormattedSession, error) {
	return call(b, func() ([]models.FormattedSession, error) { return b.svc.GetFormattedSessions(ctx) })
}

// CheckUsernameExists runs through the breaker.
func (b *BreakerService) CheckUsernameExists(ctx context.Context, username string) (bool, error) {
	return call(b, func() (bool, error) { return b.svc.CheckUsernameExists(ctx, username) })
}

func (b *BreakerService) getLibraryContent(ctx context.Context, libraryID string, q ContentQuery) (*models.ContentPage, error) {
	browser := b.svc.(ContentBrowser)
	return call(b, func() (*models.ContentPage, error) { return browser.GetLibraryContent(ctx, libraryID, q) })
}

func (b *BreakerService) getShowEpisodes(ctx context.Context, showID string, q EpisodeQuery) (*models.ContentPage, error) {
	browser := b.svc.(EpisodeBrowser)
	return call(b, func() (*models.ContentPage, error) { return browser.GetShowEpisodes(ctx, showID, q) })
}

// Capability-preserving wrappers. Each embeds the breaker and adds only the
// optional interfaces the wrapped adapter has.

type contentBreaker struct{ *BreakerService }

func (c contentBreaker) GetLibraryContent(ctx context.Context, libraryID string, q ContentQuery) (*models.ContentPage, error) {
	return c.getLibraryContent(ctx, libraryID, q)
}

type episodeBreaker struct{ *BreakerService }

func (e episodeBreaker) GetShowEpisodes(ctx context.Context, showID string, q EpisodeQuery) (*models.ContentPage, error) {
	return e.getShowEpisodes(ctx, showID, q)
}

type fullBreaker struct{ *BreakerService }

func (f fullBreaker) GetLibraryContent(ctx context.Context, libraryID string, q ContentQuery) (*models.ContentPage, error) {
	return f.getLibraryContent(ctx, libraryID, q)
}

func (f fullBreaker) GetShowEpisodes(ctx context.Context, showID string, q EpisodeQuery) (*models.ContentPage, error) {
	return f.getShowEpisodes(ctx, showID, q)
}

var (
	_ Service        = (*BreakerService)(nil)
	_ ContentBrowser = contentBreaker{}
	_ EpisodeBrowser = episodeBreaker{}
	_ ContentBrowser = fullBreaker{}
	_ EpisodeBrowser = fullBreaker{}
)

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging and metrics
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
