// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/mangapulse/mangapulse/internal/auth"
	"github.com/mangapulse/mangapulse/internal/database"
	"github.com/mangapulse/mangapulse/internal/models"
)

// ListFavorites returns the authenticated user's favorites, optionally
// filtered by the source query parameter.
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		rw.Unauthorized("Authentication required")
		return
	}

	source := r.URL.Query().Get("source")
	if source != "" && source != models.SourceLocal && source != models.SourceJikan {
		rw.BadRequest("Unknown source filter")
		return
	}

	favorites, err := h.db.ListFavoritesByUser(r.Context(), claims.UserID, source)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]interface{}{
		"favorites": favorites,
		"count":     len(favorites),
	})
}

// AddFavorite marks a manga as a favorite of the authenticated user.
// Re-adding an existing favorite updates its source.
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		rw.Unauthorized("Authentication required")
		return
	}

	// Body is optional; the source defaults to the catalogue entry.
	var req AddFavoriteRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		rw.BadRequest("Failed to read request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			rw.BadRequest("Invalid JSON request body")
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			rw.ValidationError("Request validation failed", err.Error())
			return
		}
	}

	mangaID := chi.URLParam(r, "mangaId")
	manga, err := h.db.GetManga(r.Context(), mangaID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("Manga not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	source := req.Source
	if source == "" {
		source = manga.Source
	}

	if err := h.db.AddFavorite(r.Context(), claims.UserID, mangaID, source); err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]interface{}{
		"manga_id": mangaID,
		"source":   source,
	})
}

// RemoveFavorite removes a manga from the user's favorites. Removing a
// manga that was never favorited succeeds quietly.
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		rw.Unauthorized("Authentication required")
		return
	}

	if err := h.db.RemoveFavorite(r.Context(), claims.UserID, chi.URLParam(r, "mangaId")); err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.NoContent()
}

// ListHistory returns the user's reading history, most recent first.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		rw.Unauthorized("Authentication required")
		return
	}

	history, err := h.db.ListProgressByUser(r.Context(), claims.UserID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]interface{}{
		"history": history,
		"count":   len(history),
	})
}

// RecordProgress marks a chapter as the user's latest read position for
// a manga. Re-reading overwrites the previous position.
func (h *Handler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		rw.Unauthorized("Authentication required")
		return
	}

	var req RecordProgressRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	mangaID := chi.URLParam(r, "mangaId")
	chapter, err := h.db.GetChapter(r.Context(), req.ChapterID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("Chapter not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	if chapter.MangaID != mangaID {
		rw.BadRequest("Chapter does not belong to this manga")
		return
	}

	if err := h.db.UpsertProgress(r.Context(), models.ReadingProgress{
		UserID:    claims.UserID,
		MangaID:   mangaID,
		ChapterID: req.ChapterID,
	}); err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]interface{}{
		"manga_id":   mangaID,
		"chapter_id": req.ChapterID,
	})
}
