// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/builderbee/pixeltrack/internal/auth"
	"github.com/builderbee/pixeltrack/internal/config"
	"github.com/builderbee/pixeltrack/internal/database"
	"github.com/builderbee/pixeltrack/internal/imagehost"
	"github.com/builderbee/pixeltrack/internal/ingest"
	"github.com/builderbee/pixeltrack/internal/models"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	cfg    *config.Config
	db     *database.DB
	jwt    *auth.JWTManager
	google auth.GoogleVerifier
	images imagehost.Store
	mail   ingest.Notifier
	ingest *ingest.Service
}

// NewHandlers creates the handler set. images may be nil when no image
// host is configured; mail may be nil when mail is disabled.
func NewHandlers(
	cfg *config.Config,
	db *database.DB,
	jwt *auth.JWTManager,
	google auth.GoogleVerifier,
	images imagehost.Store,
	mail ingest.Notifier,
	ingestSvc *ingest.Service,
) *Handlers {
	return &Handlers{
		cfg:    cfg,
		db:     db,
		jwt:    jwt,
		google: google,
		images: images,
		mail:   mail,
		ingest: ingestSvc,
	}
}

// Health reports liveness and database reachability.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// currentUser loads the account behind the session claims in the request
// context.
func (h *Handlers) currentUser(r *http.Request) (*models.User, error) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		return nil, database.ErrNotFound
	}
	return h.db.GetUserByID(r.Context(), claims.UserID)
}

// clientIP extracts the client address. The RealIP middleware has already
// resolved X-Forwarded-For into RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
