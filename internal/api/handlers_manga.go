// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mangapulse/mangapulse/internal/auth"
	"github.com/mangapulse/mangapulse/internal/database"
	"github.com/mangapulse/mangapulse/internal/logging"
	"github.com/mangapulse/mangapulse/internal/models"
)

// canManage reports whether the claims holder may modify the manga.
// Admins manage everything; manga admins manage the titles they author.
// Ownership is matched on the author name, not a foreign key.
func canManage(claims *auth.Claims, manga *models.Manga) bool {
	if claims.Role == models.RoleAdmin {
		return true
	}
	return claims.Role == models.RoleMangaAdmin && manga.Author == claims.DisplayName
}

// ListMangas returns the full catalogue ordered by title.
func (h *Handler) ListMangas(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	mangas, err := h.db.ListMangas(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]interface{}{
		"mangas": mangas,
		"count":  len(mangas),
	})
}

// GetManga returns a single manga by id.
func (h *Handler) GetManga(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	manga, err := h.db.GetManga(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("Manga not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	rw.Success(manga)
}

// CreateManga adds a new title to the catalogue.
func (h *Handler) CreateManga(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		rw.Unauthorized("Authentication required")
		return
	}

	var req CreateMangaRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	// Manga admins publish under their own name only.
	if claims.Role != models.RoleAdmin && req.Author != claims.DisplayName {
		rw.Forbidden("Manga admins may only create titles they author")
		return
	}

	manga, err := h.db.CreateManga(r.Context(), &models.Manga{
		Title:       req.Title,
		Author:      req.Author,
		Source:      req.Source,
		Status:      req.Status,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			rw.Conflict("Manga already exists")
			return
		}
		rw.DatabaseError(err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("manga_id", manga.ID).Str("title", manga.Title).Msg("manga created")
	rw.Created(manga)
}

// UpdateMangaStatus changes a manga's publication status and notifies
// room members.
func (h *Handler) UpdateMangaStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		rw.Unauthorized("Authentication required")
		return
	}

	var req UpdateMangaStatusRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	mangaID := chi.URLParam(r, "id")
	manga, err := h.db.GetManga(r.Context(), mangaID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("Manga not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	if !canManage(claims, manga) {
		rw.Forbidden("You do not manage this manga")
		return
	}

	updated, err := h.db.UpdateMangaStatus(r.Context(), mangaID, req.Status)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("Manga not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	h.notifier.NotifyMangaStatus(r.Context(), mangaID, map[string]interface{}{
		"status": updated.Status,
		"title":  updated.Title,
	})

	rw.Success(updated)
}

// ListChapters returns a manga's chapters ordered by number.
func (h *Handler) ListChapters(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	mangaID := chi.URLParam(r, "id")
	if _, err := h.db.GetManga(r.Context(), mangaID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("Manga not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	chapters, err := h.db.ListChaptersByManga(r.Context(), mangaID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]interface{}{
		"chapters": chapters,
		"count":    len(chapters),
	})
}

// CreateChapter publishes a new chapter and notifies room members.
func (h *Handler) CreateChapter(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		rw.Unauthorized("Authentication required")
		return
	}

	var req CreateChapterRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	mangaID := chi.URLParam(r, "id")
	manga, err := h.db.GetManga(r.Context(), mangaID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("Manga not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	if !canManage(claims, manga) {
		rw.Forbidden("You do not manage this manga")
		return
	}

	chapter, err := h.db.CreateChapter(r.Context(), &models.Chapter{
		MangaID: mangaID,
		Number:  req.Number,
		Title:   req.Title,
		Pages:   req.Pages,
	})
	if err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicate):
			rw.Conflict("Chapter number already exists for this manga")
		case errors.Is(err, database.ErrNotFound):
			rw.NotFound("Manga not found")
		default:
			rw.DatabaseError(err)
		}
		return
	}

	h.notifier.NotifyNewChapter(r.Context(), mangaID, chapter)

	logging.Ctx(r.Context()).Info().
		Str("manga_id", mangaID).
		Int("chapter_number", chapter.Number).
		Msg("chapter published")
	rw.Created(chapter)
}

// UpdateChapter edits a chapter's title or pages and notifies room
// members.
func (h *Handler) UpdateChapter(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		rw.Unauthorized("Authentication required")
		return
	}

	var req UpdateChapterRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	chapterID := chi.URLParam(r, "id")
	existing, err := h.db.GetChapter(r.Context(), chapterID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("Chapter not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	manga, err := h.db.GetManga(r.Context(), existing.MangaID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	if !canManage(claims, manga) {
		rw.Forbidden("You do not manage this manga")
		return
	}

	existing.Title = req.Title
	existing.Pages = req.Pages
	chapter, err := h.db.UpdateChapter(r.Context(), existing)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("Chapter not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	h.notifier.NotifyChapterUpdated(r.Context(), chapter.MangaID, chapter)

	rw.Success(chapter)
}
