// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package mediaserver

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/mediacatalog/internal/cache"
	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// Constructor builds an adapter for one server.
type Constructor func(server *models.MediaServer, opts Options) Service

// constructors maps each service type to its adapter.
var constructors = map[models.ServiceType]Constructor{
	models.ServicePlex:           func(s *models.MediaServer, o Options) Service { return NewPlexAdapter(s, o) },
	models.ServiceJellyfin:       func(s *models.MediaServer, o Options) Service { return NewJellyfinAdapter(s, o) },
	models.ServiceEmby:           func(s *models.MediaServer, o Options) Service { return NewEmbyAdapter(s, o) },
	models.ServiceKavita:         func(s *models.MediaServer, o Options) Service { return NewKavitaAdapter(s, o) },
	models.ServiceAudiobookshelf: func(s *models.MediaServer, o Options) Service { return NewAudiobookshelfAdapter(s, o) },
	models.ServiceKomga:          func(s *models.MediaServer, o Options) Service { return NewKomgaAdapter(s, o) },
	models.ServiceRomM:           func(s *models.MediaServer, o Options) Service { return NewRommAdapter(s, o) },
}

// Factory builds adapters from server rows. One rate limiter and one circuit
// breaker are kept per server id so that state survives across the short
// lived adapters built for each operation.
type Factory struct {
	cfg        config.MediaServersConfig
	httpClient *http.Client
	tokens     cache.TokenStore

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	breakers map[string]*gobreaker.CircuitBreaker[interface{}]
}

// NewFactory creates a Factory. tokens may be nil, in which case the token
// exchanging adapters fall back to a private in-memory store.
func NewFactory(cfg config.MediaServersConfig, tokens cache.TokenStore) *Factory {
	if tokens == nil {
		tokens = cache.NewMemoryTokenStore(time.Minute)
	}
	return &Factory{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		limiters:   make(map[string]*rate.Limiter),
		breakers:   make(map[string]*gobreaker.CircuitBreaker[interface{}]),
	}
}

// WithHTTPClient replaces the outbound HTTP client. Tests only.
func (f *Factory) WithHTTPClient(c *http.Client) *Factory {
	f.httpClient = c
	return f
}

// New builds the adapter for server, wrapped in its circuit breaker when
// enabled.
func (f *Factory) New(server *models.MediaServer) (Service, error) {
	if server == nil {
		return nil, fmt.Errorf("media server is nil")
	}
	ctor, ok := constructors[server.ServiceType]
	if !ok {
		return nil, fmt.Errorf("unsupported service type %q", server.ServiceType)
	}
	if server.URL == "" {
		return nil, fmt.Errorf("media server %s has no url", server.Nickname)
	}

	svc := ctor(server, Options{
		HTTPClient:       f.httpClient,
		Limiter:          f.limiter(server.ID),
		Tokens:           f.tokens,
		KavitaPluginName: f.cfg.KavitaPluginName,
	})
	if !f.cfg.CircuitBreaker {
		return svc, nil
	}
	return WithBreaker(svc, f.breaker(server)), nil
}

func (f *Factory) limiter(serverID string) *rate.Limiter {
	if f.cfg.RateLimitRPS <= 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.limiters[serverID]; ok {
		return l
	}
	burst := f.cfg.RateLimitBurst
	if burst < 1 {
		burst = 1
	}
	l := rate.NewLimiter(rate.Limit(f.cfg.RateLimitRPS), burst)
	f.limiters[serverID] = l
	return l
}

func (f *Factory) breaker(server *models.MediaServer) *gobreaker.CircuitBreaker[interface{}] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := f.breakers[server.ID]; ok {
		return cb
	}
	cb := newCircuitBreaker(breakerName(server))
	f.breakers[server.ID] = cb
	return cb
}

// Forget drops the cached limiter and breaker of a deleted server.
func (f *Factory) Forget(serverID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.limiters, serverID)
	delete(f.breakers, serverID)
}

// BreakerStates reports the breaker state of every server seen so far.
func (f *Factory) BreakerStates() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.breakers))
	for id, cb := range f.breakers {
		out[id] = stateToString(cb.State())
	}
	return out
}
