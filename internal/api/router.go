// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mangapulse/mangapulse/internal/auth"
	"github.com/mangapulse/mangapulse/internal/middleware"
	"github.com/mangapulse/mangapulse/internal/models"
)

// Router wires handlers and middleware into the HTTP route tree.
type Router struct {
	handler       *Handler
	authMw        *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router from the handler and middleware set.
func NewRouter(handler *Handler, authMw *auth.Middleware, chiMw *ChiMiddleware) *Router {
	if chiMw == nil {
		chiMw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		authMw:        authMw,
		chiMiddleware: chiMw,
	}
}

// requireRole adapts auth.Middleware.RequireRole to chi's middleware shape.
func (router *Router) requireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return router.authMw.RequireRole(role, next)
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight

	// Health endpoints. Permissive rate limiting so monitoring tools can
	// poll frequently.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(SecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// Authentication endpoints with strict rate limiting against brute
	// force.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(SecurityHeaders())
		r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", router.handler.Login)
		r.With(router.authMw.Authenticate).Get("/me", router.handler.Me)
	})

	// Core API endpoints. Everything below requires authentication.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(SecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.authMw.Authenticate)

		// Realtime bootstrap: room list, then the WebSocket itself.
		r.Get("/rooms", router.handler.Rooms)
		r.With(router.chiMiddleware.RateLimitWebSocket()).Get("/ws", router.handler.WebSocket)

		// Catalogue reads.
		r.Get("/mangas", router.handler.ListMangas)
		r.Get("/mangas/{id}", router.handler.GetManga)
		r.Get("/mangas/{id}/chapters", router.handler.ListChapters)

		// Catalogue writes, restricted to manga admins.
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitWrite())
			r.Use(router.requireRole(models.RoleMangaAdmin))
			r.Post("/mangas", router.handler.CreateManga)
			r.Patch("/mangas/{id}/status", router.handler.UpdateMangaStatus)
			r.Post("/mangas/{id}/chapters", router.handler.CreateChapter)
			r.Patch("/chapters/{id}", router.handler.UpdateChapter)
		})

		// Per-user library.
		r.Get("/favorites", router.handler.ListFavorites)
		r.Put("/favorites/{mangaId}", router.handler.AddFavorite)
		r.Delete("/favorites/{mangaId}", router.handler.RemoveFavorite)
		r.Get("/history", router.handler.ListHistory)
		r.Put("/history/{mangaId}", router.handler.RecordProgress)
	})

	// Prometheus metrics endpoint.
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
