// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package mediaserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/mediacatalog/internal/metrics"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// maxErrorBody caps how much of a failed response body is kept in errors.
const maxErrorBody = 512

// StatusError is returned when a media server answers with an unexpected
// HTTP status. It unwraps to ErrUnauthorized or ErrNotFound where applicable.
type StatusError struct {
	Service    models.ServiceType
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Service, e.Op, e.StatusCode, e.Body)
}

// Unwrap maps auth and not-found statuses onto the package sentinels.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// requestConfig holds configuration for building HTTP requests
type requestConfig struct {
	op     string // short operation name used in error messages
	method string
	path   string
	query  url.Values
	body   interface{} // JSON-encoded when non-nil
	form   url.Values  // form-encoded when non-nil, takes precedence over body
	header http.Header
	accept []int // accepted status codes, defaults to 200
}

// apiClient executes requests against one media server. It is shared by all
// adapters so that throttling, headers, status handling and metrics behave
// the same everywhere.
type apiClient struct {
	baseURL     string
	serviceType models.ServiceType
	httpClient  *http.Client
	limiter     *rate.Limiter
	authorize   func(req *http.Request)
}

func newAPIClient(st models.ServiceType, baseURL string, opts Options, authorize func(*http.Request)) *apiClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &apiClient{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		serviceType: st,
		httpClient:  httpClient,
		limiter:     opts.Limiter,
		authorize:   authorize,
	}
}

// do executes cfg and decodes a JSON response into result when result is
// non-nil and the response has a body.
func (c *apiClient) do(ctx context.Context, cfg requestConfig, result interface{}) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAdapterRequest(string(c.serviceType), 0, time.Since(start))
		return fmt.Errorf("%s %s request failed: %w", c.serviceType, cfg.op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RecordAdapterRequest(string(c.serviceType), resp.StatusCode, time.Since(start))

	if !statusAccepted(resp.StatusCode, cfg.accept) {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if readErr != nil {
			body = []byte("(failed to read body)")
		}
		return &StatusError{
			Service:    c.serviceType,
			Op:         cfg.op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to decode %s %s: %w", c.serviceType, cfg.op, err)
	}
	return nil
}

func (c *apiClient) newRequest(ctx context.Context, cfg requestConfig) (*http.Request, error) {
	method := cfg.method
	if method == "" {
		method = http.MethodGet
	}

	fullURL := c.baseURL + cfg.path
	if len(cfg.query) > 0 {
		fullURL += "?" + cfg.query.Encode()
	}

	var body io.Reader = http.NoBody
	contentType := "application/json"
	switch {
	case cfg.form != nil:
		body = strings.NewReader(cfg.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case cfg.body != nil:
		payload, err := json.Marshal(cfg.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s %s body: %w", c.serviceType, cfg.op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", contentType)
	if c.authorize != nil {
		c.authorize(req)
	}
	for k, vs := range cfg.header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

// wait blocks on the per-server limiter. A nil limiter never blocks.
func (c *apiClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if c.limiter.Tokens() < 1 {
		metrics.AdapterRateLimitWaits.WithLabelValues(string(c.serviceType)).Inc()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limiter: %w", c.serviceType, err)
	}
	return nil
}

func statusAccepted(code int, accept []int) bool {
	if len(accept) == 0 {
		return code == http.StatusOK
	}
	for _, a := range accept {
		if code == a {
			return true
		}
	}
	return false
}

// acceptNoContent accepts the usual success statuses of mutating calls.
var acceptNoContent = []int{http.StatusOK, http.StatusCreated, http.StatusNoContent}
