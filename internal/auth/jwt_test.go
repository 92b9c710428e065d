// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package auth

import (
	"testing"
	"time"

	"github.com/mangapulse/mangapulse/internal/config"
	"github.com/mangapulse/mangapulse/internal/models"
)

func newTestManager(t *testing.T, ttl time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret: "0123456789abcdef0123456789abcdef",
		TokenTTL:  ttl,
	})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return m
}

func testUser() *models.User {
	return &models.User{
		ID:          "u1",
		Username:    "rei",
		DisplayName: "Rei Ichijo",
		Role:        models.RoleMangaAdmin,
	}
}

func TestNewJWTManagerRejectsWeakSecrets(t *testing.T) {
	if _, err := NewJWTManager(&config.SecurityConfig{JWTSecret: ""}); err == nil {
		t.Error("NewJWTManager(empty secret) error = nil, want error")
	}
	if _, err := NewJWTManager(&config.SecurityConfig{JWTSecret: "short"}); err == nil {
		t.Error("NewJWTManager(short secret) error = nil, want error")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := newTestManager(t, time.Hour)

	token, err := m.GenerateToken(testUser())
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", claims.UserID)
	}
	if claims.DisplayName != "Rei Ichijo" {
		t.Errorf("DisplayName = %q, want Rei Ichijo", claims.DisplayName)
	}
	if claims.Role != models.RoleMangaAdmin {
		t.Errorf("Role = %q, want manga-admin", claims.Role)
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m := newTestManager(t, -time.Minute)

	token, err := m.GenerateToken(testUser())
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("ValidateToken(expired) error = nil, want error")
	}
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	m := newTestManager(t, time.Hour)

	token, err := m.GenerateToken(testUser())
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	other := newTestManager(t, time.Hour)
	other.secret = []byte("ffffffffffffffffffffffffffffffff")
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("ValidateToken() with wrong secret = nil, want error")
	}

	if _, err := m.ValidateToken(token + "x"); err == nil {
		t.Error("ValidateToken(tampered) error = nil, want error")
	}
	if _, err := m.ValidateToken("not-a-token"); err == nil {
		t.Error("ValidateToken(garbage) error = nil, want error")
	}
}
