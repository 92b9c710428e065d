// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

// Package main is the entry point for the MangaPulse server.
//
// MangaPulse is a manga catalogue with realtime reading notifications.
// Readers follow titles and receive chapter and status events over a
// WebSocket connection scoped to per-manga rooms; manga admins publish
// chapters for the titles they author.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered settings from defaults, config.yaml and
//     environment variables (Koanf v2)
//  2. Database: SQLite catalogue with WAL journaling
//  3. WebSocket hub: connection registry and room membership
//  4. Event transport: in-process bus, or NATS JetStream with -tags nats
//  5. HTTP server: REST API, room bootstrap and WebSocket upgrade
//  6. Supervision: suture tree restarting crashed components
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file, built-in defaults.
// JWT_SECRET (32+ characters) is required. See config.yaml.example.
//
// # Build Tags
//
//	go build ./cmd/server              # in-process event bus
//	go build -tags nats ./cmd/server   # NATS JetStream transport
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, closes WebSocket clients, drains in-flight
// requests and closes the transport and database.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mangapulse/mangapulse/internal/api"
	"github.com/mangapulse/mangapulse/internal/auth"
	"github.com/mangapulse/mangapulse/internal/config"
	"github.com/mangapulse/mangapulse/internal/database"
	"github.com/mangapulse/mangapulse/internal/logging"
	"github.com/mangapulse/mangapulse/internal/notify"
	"github.com/mangapulse/mangapulse/internal/rooms"
	"github.com/mangapulse/mangapulse/internal/supervisor"
	"github.com/mangapulse/mangapulse/internal/supervisor/services"
	"github.com/mangapulse/mangapulse/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("db_path", cfg.Database.Path).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Starting MangaPulse")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	if cfg.Database.SeedAdmin {
		if err := db.SeedAdmin(context.Background(), cfg.Security.AdminUsername, cfg.Security.AdminPassword); err != nil {
			logging.Fatal().Err(err).Msg("Failed to seed admin account")
		}
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := ws.NewHub(ws.Options{
		WriteWait:            cfg.Realtime.WriteWait,
		PongWait:             cfg.Realtime.PongWait,
		MaxMessageSize:       cfg.Realtime.MaxMessageSize,
		SendBuffer:           cfg.Realtime.SendBuffer,
		MembershipRatePerSec: cfg.Realtime.MembershipRatePerSec,
		MembershipBurst:      cfg.Realtime.MembershipBurst,
	})

	publisher, subscriber, closeTransport := setupTransport(cfg)
	defer closeTransport()

	notifier := notify.NewNotifier(publisher)
	bridge := notify.NewBridge(subscriber, hub)
	resolver := rooms.NewResolver(db)

	handler := api.NewHandler(cfg, db, jwtManager, hub, resolver, notifier)
	authMw := auth.NewMiddleware(jwtManager)
	chiMw := api.NewChiMiddlewareFromSecurity(
		cfg.Security.CORSOrigins,
		cfg.Security.RateLimitReqs,
		cfg.Security.RateLimitWindow,
		cfg.Security.RateLimitDisabled,
	)
	router := api.NewRouter(handler, authMw, chiMw)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddRealtimeService(services.NewHubService(hub))
	tree.AddRealtimeService(services.NewBridgeService(bridge))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))

	errCh := tree.ServeBackground(ctx)
	logging.Info().Str("addr", cfg.Server.Addr()).Msg("MangaPulse is ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("Supervisor stopped with error")
			}
		case <-time.After(15 * time.Second):
			if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
				for _, svc := range report {
					logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
				}
			}
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Fatal().Err(err).Msg("Supervisor tree failed")
		}
	}

	logging.Info().Msg("MangaPulse stopped")
}

// setupTransport picks the event transport. With nats.enabled and a
// binary built with -tags nats this is JetStream; otherwise events flow
// over an in-process bus, falling back with a warning when the NATS
// transport is not compiled in.
func setupTransport(cfg *config.Config) (message.Publisher, message.Subscriber, func()) {
	if cfg.NATS.Enabled {
		transport, err := notify.NewNATSTransport(&cfg.NATS)
		if err == nil {
			logging.Info().Str("url", cfg.NATS.URL).Bool("embedded", cfg.NATS.EmbeddedServer).Msg("NATS JetStream transport enabled")
			return transport.Publisher(), transport.Subscriber(), func() {
				if err := transport.Close(); err != nil {
					logging.Error().Err(err).Msg("Error closing NATS transport")
				}
			}
		}
		logging.Warn().Err(err).Msg("NATS transport unavailable, using in-process bus")
	}

	bus := notify.NewGoChannelBus()
	return bus, bus, func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}
}
