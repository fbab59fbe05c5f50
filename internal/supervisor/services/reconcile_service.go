// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// Reconciler reconciles every active server. *sync.Manager satisfies it.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (*models.ReconcileResult, error)
}

// ReconcileService runs library reconciliation on a fixed interval.
//
// A failed pass is logged and retried on the next tick rather than returned,
// since a restart would only repeat the same pass immediately.
type ReconcileService struct {
	reconciler Reconciler
	interval   time.Duration
	onStart    bool
	log        zerolog.Logger
	name       string
}

// NewReconcileService creates the service. With onStart a pass runs as soon
// as the service starts. A non-positive interval runs only that first pass.
func NewReconcileService(reconciler Reconciler, interval time.Duration, onStart bool) *ReconcileService {
	return &ReconcileService{
		reconciler: reconciler,
		interval:   interval,
		onStart:    onStart,
		log:        logging.WithComponent("reconcile-scheduler"),
		name:       "library-reconciler",
	}
}

// Serve implements suture.Service.
func (s *ReconcileService) Serve(ctx context.Context) error {
	if s.onStart {
		s.runOnce(ctx)
	}
	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *ReconcileService) runOnce(ctx context.Context) {
	start := time.Now()
	result, err := s.reconciler.ReconcileAll(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Scheduled library reconciliation failed")
		return
	}
	s.log.Info().
		Int("servers", result.ServersSynced).
		Int("errors", result.Errors).
		Dur("duration", time.Since(start)).
		Msg("Scheduled library reconciliation finished")
}

// String implements fmt.Stringer.
func (s *ReconcileService) String() string {
	return s.name
}
