// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mangapulse/mangapulse/internal/models"
)

func okHandler(claims **Claims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := ClaimsFromContext(r.Context()); ok && claims != nil {
			*claims = c
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	m := newTestManager(t, time.Hour)
	mw := NewMiddleware(m)

	token, err := m.GenerateToken(testUser())
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	tests := []struct {
		name       string
		setup      func(*http.Request)
		wantStatus int
	}{
		{"bearer header", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		}, http.StatusOK},
		{"cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "token", Value: token})
		}, http.StatusOK},
		{"query param", func(r *http.Request) {
			q := r.URL.Query()
			q.Set("token", token)
			r.URL.RawQuery = q.Encode()
		}, http.StatusOK},
		{"missing token", func(r *http.Request) {}, http.StatusUnauthorized},
		{"malformed header", func(r *http.Request) {
			r.Header.Set("Authorization", "Token "+token)
		}, http.StatusUnauthorized},
		{"garbage token", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer garbage")
		}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *Claims
			req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			mw.Authenticate(okHandler(&got)).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if got == nil {
					t.Fatal("claims not attached to context")
				}
				if got.Username != "rei" {
					t.Errorf("claims.Username = %q, want rei", got.Username)
				}
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	m := newTestManager(t, time.Hour)
	mw := NewMiddleware(m)

	tokenFor := func(role models.Role) string {
		u := testUser()
		u.Role = role
		token, err := m.GenerateToken(u)
		if err != nil {
			t.Fatalf("GenerateToken() error = %v", err)
		}
		return token
	}

	tests := []struct {
		name       string
		role       models.Role
		required   models.Role
		wantStatus int
	}{
		{"exact match", models.RoleMangaAdmin, models.RoleMangaAdmin, http.StatusOK},
		{"admin passes any check", models.RoleAdmin, models.RoleMangaAdmin, http.StatusOK},
		{"user denied manga-admin", models.RoleUser, models.RoleMangaAdmin, http.StatusForbidden},
		{"manga-admin denied admin", models.RoleMangaAdmin, models.RoleAdmin, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/mangas", nil)
			req.Header.Set("Authorization", "Bearer "+tokenFor(tt.role))
			rec := httptest.NewRecorder()

			mw.RequireRole(tt.required, okHandler(nil)).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
