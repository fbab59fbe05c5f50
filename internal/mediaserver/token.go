// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package mediaserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/mediacatalog/internal/cache"
	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/metrics"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// TokenExpiryMargin is subtracted from a token's declared lifetime before
// it is cached, so a cached token is never presented right at expiry.
const TokenExpiryMargin = 30 * time.Second

// exchangeFunc performs the service-specific credential exchange and returns
// the bearer token and its declared lifetime (zero when unknown).
type exchangeFunc func(ctx context.Context) (token string, lifetime time.Duration, err error)

// tokenSource hands out bearer tokens backed by a shared TokenStore.
// Exchanges for one source are serialized so a cold cache triggers a single
// exchange.
type tokenSource struct {
	store           cache.TokenStore
	key             string
	serviceType     models.ServiceType
	defaultLifetime time.Duration
	exchange        exchangeFunc
	now             func() time.Time

	mu sync.Mutex
}

// Token returns a cached token or performs an exchange on miss.
func (s *tokenSource) Token(ctx context.Context) (string, error) {
	if tok, ok := s.cached(ctx); ok {
		return tok, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have refreshed while we waited.
	if tok, ok := s.cached(ctx); ok {
		return tok, nil
	}
	metrics.RecordTokenCache(string(s.serviceType), false)

	tok, lifetime, err := s.exchange(ctx)
	if err != nil {
		return "", fmt.Errorf("%s token exchange: %w", s.serviceType, err)
	}
	if tok == "" {
		return "", fmt.Errorf("%s token exchange returned an empty token", s.serviceType)
	}

	if lifetime <= 0 {
		lifetime = jwtLifetime(tok, s.now())
	}
	if lifetime <= 0 {
		lifetime = s.defaultLifetime
	}
	if ttl := lifetime - TokenExpiryMargin; ttl > 0 {
		if err := s.store.Set(ctx, s.key, tok, ttl); err != nil {
			logging.Warn().Err(err).Str("service_type", string(s.serviceType)).Msg("Failed to cache bearer token")
		}
	}
	return tok, nil
}

// Invalidate drops the cached token so the next call re-authenticates.
func (s *tokenSource) Invalidate(ctx context.Context) {
	if err := s.store.Delete(ctx, s.key); err != nil {
		logging.Warn().Err(err).Str("service_type", string(s.serviceType)).Msg("Failed to drop cached bearer token")
	}
}

func (s *tokenSource) cached(ctx context.Context) (string, bool) {
	tok, ok, err := s.store.Get(ctx, s.key)
	if err != nil {
		logging.Warn().Err(err).Str("service_type", string(s.serviceType)).Msg("Token store lookup failed")
		return "", false
	}
	if ok {
		metrics.RecordTokenCache(string(s.serviceType), true)
	}
	return tok, ok
}

// jwtLifetime reads the exp claim of a JWT without verifying it. The token
// is opaque to us; the claim is only used to size the cache TTL.
func jwtLifetime(token string, now time.Time) time.Duration {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return 0
	}
	if claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Sub(now)
}
