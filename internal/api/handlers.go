// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/mangapulse/mangapulse/internal/auth"
	"github.com/mangapulse/mangapulse/internal/config"
	"github.com/mangapulse/mangapulse/internal/database"
	"github.com/mangapulse/mangapulse/internal/logging"
	"github.com/mangapulse/mangapulse/internal/metrics"
	"github.com/mangapulse/mangapulse/internal/notify"
	"github.com/mangapulse/mangapulse/internal/rooms"
	"github.com/mangapulse/mangapulse/internal/ws"
)

// Handler holds dependencies for all HTTP handlers.
type Handler struct {
	cfg      *config.Config
	db       *database.DB
	jwt      *auth.JWTManager
	hub      *ws.Hub
	resolver *rooms.Resolver
	notifier *notify.Notifier
	validate *validator.Validate

	startTime time.Time
}

// NewHandler creates a handler with the given dependencies.
func NewHandler(cfg *config.Config, db *database.DB, jwt *auth.JWTManager, hub *ws.Hub, resolver *rooms.Resolver, notifier *notify.Notifier) *Handler {
	return &Handler{
		cfg:       cfg,
		db:        db,
		jwt:       jwt,
		hub:       hub,
		resolver:  resolver,
		notifier:  notifier,
		validate:  validator.New(),
		startTime: time.Now(),
	}
}

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]interface{}{
		"status": "alive",
		"uptime": time.Since(h.startTime).String(),
	})
}

// HealthReady reports readiness including database connectivity.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.db == nil {
		rw.ServiceUnavailable("Database not configured")
		return
	}
	if err := h.db.Ping(r.Context()); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Readiness check failed")
		rw.ServiceUnavailable("Database unreachable")
		return
	}

	rw.Success(map[string]interface{}{
		"status":      "ready",
		"connections": h.hub.GetClientCount(),
		"rooms":       h.hub.RoomCount(),
	})
}

// Login authenticates a user and returns a signed token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req LoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.db.VerifyPassword(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			logging.Ctx(r.Context()).Warn().Str("username", req.Username).Msg("Login failed")
			rw.Unauthorized("Invalid username or password")
			return
		}
		rw.DatabaseError(err)
		return
	}

	token, err := h.jwt.GenerateToken(user)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Token generation failed")
		rw.InternalError("Failed to issue token")
		return
	}

	expiresAt := time.Now().Add(h.cfg.Security.TokenTTL)
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	rw.Success(map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt,
		"user": map[string]interface{}{
			"id":           user.ID,
			"username":     user.Username,
			"display_name": user.DisplayName,
			"role":         user.Role,
		},
	})
}

// Me returns the authenticated user's identity.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		rw.Unauthorized("Authentication required")
		return
	}

	rw.Success(map[string]interface{}{
		"id":           claims.UserID,
		"username":     claims.Username,
		"display_name": claims.DisplayName,
		"role":         claims.Role,
	})
}

// Rooms resolves the set of rooms the authenticated user should join.
// Clients call this at connect time and again whenever their library
// changes, then drive membership over the WebSocket with join and leave
// frames.
func (h *Handler) Rooms(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		rw.Unauthorized("Authentication required")
		return
	}

	resolved := h.resolver.Resolve(r.Context(), rooms.Identity{
		UserID:      claims.UserID,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
	})
	metrics.RecordRoomResolution(string(claims.Role))

	rw.Success(map[string]interface{}{
		"rooms": resolved,
		"role":  claims.Role,
	})
}

func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates browser WebSocket origins against the
// configured CORS origins. Non-browser clients omit the Origin header
// and are allowed; they already passed token authentication.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if h.cfg == nil {
		return true
	}

	for _, allowed := range h.cfg.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", origin).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// WebSocket upgrades the connection and registers it with the hub. The
// connection starts with no room memberships; the client sends join
// frames after fetching its room list.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		WriteError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "WebSocket service unavailable")
		return
	}

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		WriteError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UserID)
	// Attach before the pumps start so the first join frame cannot race
	// the registration.
	h.hub.Attach(client)
	client.Start()
}
