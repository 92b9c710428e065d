// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package models

import (
	"fmt"
	"time"
)

// Role is the authorization role attached to a user and its JWT claims.
type Role string

const (
	// RoleUser is a plain reader: receives events for locally-sourced
	// favorites only.
	RoleUser Role = "user"

	// RoleMangaAdmin manages only the mangas they authored; receives events
	// for mangas whose author field matches their display name.
	RoleMangaAdmin Role = "manga-admin"

	// RoleAdmin is the global administrator: receives events for every manga
	// in the catalogue.
	RoleAdmin Role = "admin"
)

// ParseRole validates a role string from an external source (JWT claim,
// request body).
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleMangaAdmin, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// User is an account row. PasswordHash is a bcrypt hash and never serialized.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
