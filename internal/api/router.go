// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/builderbee/pixeltrack/internal/auth"
	"github.com/builderbee/pixeltrack/internal/config"
	"github.com/builderbee/pixeltrack/internal/middleware"
)

// Router wires handlers, authentication, and the middleware factories into
// the HTTP route tree.
type Router struct {
	handler       *Handlers
	jwt           *auth.JWTManager
	chiMiddleware *ChiMiddleware

	// maxBodyBytes caps request bodies. Sized to the upload limit plus
	// multipart overhead so profile-picture uploads still fit.
	maxBodyBytes int64
}

// NewRouter creates a router from the loaded configuration.
func NewRouter(cfg *config.Config, handler *Handlers, jwt *auth.JWTManager) *Router {
	mwConfig := DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mwConfig.RateLimitRequests = cfg.Security.RateLimitReqs
	mwConfig.RateLimitWindow = cfg.Security.RateLimitWindow
	mwConfig.RateLimitDisabled = cfg.Security.RateLimitDisabled

	return &Router{
		handler:       handler,
		jwt:           jwt,
		chiMiddleware: NewChiMiddleware(mwConfig),
		maxBodyBytes:  cfg.Security.MaxUploadBytes + 1<<20,
	}
}

// Setup builds the full route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(RequestIDWithLogging())
	r.Use(RequestLogger())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestSize(router.maxBodyBytes))
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	authenticated := auth.Middleware(router.jwt)

	r.Route("/api/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
	})

	// Public beacon endpoint hit by the embedded snippet on every page view.
	r.With(router.chiMiddleware.RateLimitTrack()).Post("/track", router.handler.Track)

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitAuth())
		r.Use(APISecurityHeaders())

		r.Post("/register", router.handler.Register)
		r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", router.handler.Login)
		r.Post("/google-signin", router.handler.GoogleSignIn)
		r.Post("/magic-link", router.handler.MagicLink)
		r.Post("/verify-magic-link", router.handler.VerifyMagicLink)
		r.Post("/reset-password", router.handler.ResetPassword)
		r.Post("/verify-reset-password", router.handler.VerifyResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/user", router.handler.GetUser)
			r.Put("/updateProfile", router.handler.UpdateProfile)
			r.Put("/deleteProfilePicture", router.handler.DeleteProfilePicture)
			r.Put("/disconnect-social", router.handler.DisconnectSocial)
			r.Delete("/delete-account", router.handler.DeleteAccount)
		})
	})

	r.Route("/api/create", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(authenticated)
		r.Post("/", router.handler.CreateProject)
	})

	r.Route("/api/dashboard", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())

		// Issue routes are called from the visitor-facing widget and carry
		// no session, so they stay outside the authenticated group.
		r.Post("/issues/send", router.handler.SendIssue)
		r.Post("/issues/reply", router.handler.ReplyIssue)

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/projects", router.handler.ListProjects)
			r.Get("/projects/{id}", router.handler.GetProject)
		})
	})

	r.Route("/api/settings", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(authenticated)
		r.Put("/project/{id}", router.handler.UpdateProject)
		r.Delete("/project/{id}", router.handler.DeleteProject)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
