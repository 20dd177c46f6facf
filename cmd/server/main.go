// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

// Package main is the entry point for the PixelTrack server.
//
// PixelTrack is a self-hosted web analytics backend. Sites embed a small
// snippet that posts a beacon to /track on every page view; the server
// enriches each beacon with device, browser, platform, and country data
// and stores it in DuckDB. A dashboard API exposes projects, visit logs,
// visitor-reported issues, and payment history behind JWT sessions.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables, optional YAML file, defaults (Koanf v2)
//  2. Database: DuckDB schema for users, projects, visits, issues, payments
//  3. Mail: SMTP dispatcher for magic links, resets, and goal notifications
//  4. GeoIP: ipapi.co lookups behind a circuit breaker
//  5. Image host: Cloudinary profile-picture storage (optional)
//  6. HTTP server: Chi router with CORS, rate limits, and Prometheus metrics
//
// # Configuration
//
// Required settings:
//   - JWT_SECRET: 32+ character secret for session token signing
//   - WEBSITE_URL: public dashboard URL embedded in outbound emails
//
// Optional integrations:
//   - SMTP_*: outbound mail (magic links, password resets, notifications)
//   - CLOUDINARY_*: hosted profile pictures
//   - GEOIP_ENABLED: visit country enrichment via ipapi.co
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Drains the mail dispatcher and closes the database
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/builderbee/pixeltrack/internal/api"
	"github.com/builderbee/pixeltrack/internal/auth"
	"github.com/builderbee/pixeltrack/internal/config"
	"github.com/builderbee/pixeltrack/internal/database"
	"github.com/builderbee/pixeltrack/internal/geoip"
	"github.com/builderbee/pixeltrack/internal/imagehost"
	"github.com/builderbee/pixeltrack/internal/ingest"
	"github.com/builderbee/pixeltrack/internal/logging"
	"github.com/builderbee/pixeltrack/internal/mailer"
)

const shutdownTimeout = 10 * time.Second

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
		Str("db_path", cfg.Database.Path).
		Str("environment", cfg.Server.Environment).
		Bool("mail_enabled", cfg.Mail.Enabled).
		Bool("geoip_enabled", cfg.GeoIP.Enabled).
		Msg("Starting PixelTrack")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	// Mail dispatcher. When mail is disabled the handlers see a nil
	// notifier and skip enqueueing.
	var dispatcher *mailer.Dispatcher
	var notifier ingest.Notifier
	if cfg.Mail.Enabled {
		dispatcher = mailer.NewDispatcher(mailer.NewSMTPMailer(&cfg.Mail))
		notifier = dispatcher
		logging.Info().Str("smtp_host", cfg.Mail.Host).Msg("Mail dispatcher started")
	} else {
		logging.Info().Msg("Mail disabled - magic links and notifications will not be delivered")
	}

	// GeoIP resolution degrades to "Unknown" when disabled or failing.
	var geoProvider geoip.Provider
	if cfg.GeoIP.Enabled {
		geoProvider = geoip.NewBreakerProvider(
			geoip.NewIPAPIProvider(cfg.GeoIP.BaseURL, cfg.GeoIP.Timeout))
	}
	resolver := geoip.NewResolver(geoProvider)

	var images imagehost.Store
	if cfg.ImageHostConfigured() {
		images, err = imagehost.NewCloudinaryStore(&cfg.ImageHost)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize image host")
		}
		logging.Info().Str("cloud_name", cfg.ImageHost.CloudName).Msg("Image host initialized")
	} else {
		logging.Info().Msg("Image host not configured - profile picture uploads disabled")
	}

	jwtManager := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.SessionTTL)
	google := auth.NewGoogleTokenVerifier("", 5*time.Second)
	ingestSvc := ingest.NewService(db, resolver, notifier)

	handlers := api.NewHandlers(cfg, db, jwtManager, google, images, notifier, ingestSvc)
	router := api.NewRouter(cfg, handlers, jwtManager)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server error")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if dispatcher != nil {
		dispatcher.Stop()
		logging.Info().Msg("Mail dispatcher drained")
	}

	logging.Info().Msg("Application stopped gracefully")
}
