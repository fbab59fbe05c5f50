// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/mediacatalog/internal/api"
	"github.com/tomtom215/mediacatalog/internal/cache"
	"github.com/tomtom215/mediacatalog/internal/catalog"
	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/eventprocessor"
	"github.com/tomtom215/mediacatalog/internal/identity"
	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/mediaserver"
	"github.com/tomtom215/mediacatalog/internal/metrics"
	"github.com/tomtom215/mediacatalog/internal/supervisor"
	"github.com/tomtom215/mediacatalog/internal/supervisor/services"
	catalogsync "github.com/tomtom215/mediacatalog/internal/sync"
	"github.com/tomtom215/mediacatalog/internal/validation"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Media catalog stopped with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	logging.Info().Str("version", version).Msg("Starting media catalog")
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close database")
		}
	}()

	if err := seedServers(ctx, db, cfg); err != nil {
		return err
	}

	tokens, err := cache.NewTokenStore(cfg.TokenStore)
	if err != nil {
		return fmt.Errorf("open token store: %w", err)
	}
	defer func() {
		if err := tokens.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close token store")
		}
	}()

	factory := mediaserver.NewFactory(cfg.MediaServers, tokens)
	manager := catalogsync.NewManager(db, factory, cfg.Sync)
	engine := catalog.NewEngine(db, manager, factory, catalog.Options{
		DefaultPerPage:    cfg.API.DefaultPerPage,
		MaxPerPage:        cfg.API.MaxPerPage,
		AutoSync:          cfg.Sync.AutoSyncOnEmpty,
		EpisodeStaleAfter: cfg.Sync.EpisodeStaleAfter,
		LivePageSize:      cfg.Sync.LibraryPageSize,
		LiveMaxPages:      cfg.Sync.LibraryMaxPages,
	})
	normalizer := identity.NewNormalizer(db)

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	if cfg.Events.Enabled {
		bus, err := eventprocessor.New(cfg.Events)
		if err != nil {
			return fmt.Errorf("create event bus: %w", err)
		}
		defer func() {
			if err := bus.Close(); err != nil {
				logging.Error().Err(err).Msg("Failed to close event bus")
			}
		}()
		manager.SetEventPublisher(bus)
		tree.AddMessagingService(services.NewEventLogService(bus))
		logging.Info().Str("backend", cfg.Events.Backend).Msg("Catalog events enabled")
	}

	handler := api.NewHandler(db, manager, engine, normalizer, version)
	router := api.NewRouter(handler, api.MiddlewareConfigFrom(cfg.API))
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	tree.AddSyncService(services.NewReconcileService(manager, cfg.Sync.ReconcileInterval, cfg.Sync.ReconcileOnStart))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
	err = tree.Serve(ctx)

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within the shutdown timeout")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	logging.Info().Msg("Media catalog stopped")
	return nil
}

// seedServers upserts the media servers declared in the config file.
func seedServers(ctx context.Context, db *database.DB, cfg *config.Config) error {
	inputs := cfg.ServerInputs()
	for i := range inputs {
		def := validation.MediaServerDefinition{
			ServiceType: string(inputs[i].ServiceType),
			Nickname:    inputs[i].Nickname,
			URL:         inputs[i].URL,
		}
		if verr := validation.ValidateStruct(&def); verr != nil {
			return fmt.Errorf("server %q: %w", inputs[i].Nickname, verr)
		}

		server, err := db.EnsureMediaServer(ctx, inputs[i])
		if err != nil {
			return fmt.Errorf("seed server %q: %w", inputs[i].Nickname, err)
		}
		logging.Info().
			Str("server_id", server.ID).
			Str("service_type", string(server.ServiceType)).
			Str("nickname", server.Nickname).
			Msg("Media server registered")
	}
	return nil
}
