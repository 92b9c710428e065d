// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// LoginRequest is the payload for POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required,min=1,max=256"`
}

// CreateMangaRequest is the payload for POST /api/v1/mangas.
type CreateMangaRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=256"`
	Author      string `json:"author" validate:"required,min=1,max=128"`
	Source      string `json:"source" validate:"omitempty,oneof=local jikan"`
	Status      string `json:"status" validate:"omitempty,oneof=ongoing completed hiatus"`
	Description string `json:"description" validate:"max=4096"`
}

// UpdateMangaStatusRequest is the payload for PATCH /api/v1/mangas/{id}/status.
type UpdateMangaStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ongoing completed hiatus"`
}

// CreateChapterRequest is the payload for POST /api/v1/mangas/{id}/chapters.
type CreateChapterRequest struct {
	Number int      `json:"number" validate:"required,min=1"`
	Title  string   `json:"title" validate:"required,min=1,max=256"`
	Pages  []string `json:"pages" validate:"omitempty,dive,required,max=1024"`
}

// UpdateChapterRequest is the payload for PATCH /api/v1/chapters/{id}.
type UpdateChapterRequest struct {
	Title string   `json:"title" validate:"required,min=1,max=256"`
	Pages []string `json:"pages" validate:"omitempty,dive,required,max=1024"`
}

// AddFavoriteRequest is the payload for PUT /api/v1/favorites/{mangaId}.
type AddFavoriteRequest struct {
	Source string `json:"source" validate:"omitempty,oneof=local jikan"`
}

// RecordProgressRequest is the payload for PUT /api/v1/history/{mangaId}.
type RecordProgressRequest struct {
	ChapterID string `json:"chapter_id" validate:"required,min=1,max=128"`
}

// ValidationFieldError describes a single failed validation rule.
type ValidationFieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// decodeAndValidate decodes the request body into dst and runs struct
// validation. On failure a response is written and false returned.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	rw := NewResponseWriter(w, r)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		rw.BadRequest("Invalid JSON request body")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]ValidationFieldError, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, ValidationFieldError{
					Field: fe.Field(),
					Rule:  fe.Tag(),
					Param: fe.Param(),
				})
			}
			rw.ValidationError("Request validation failed", fields)
			return false
		}
		rw.BadRequest("Invalid request")
		return false
	}

	return true
}
