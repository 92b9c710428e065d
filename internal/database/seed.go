// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/mangapulse/mangapulse/internal/logging"
	"github.com/mangapulse/mangapulse/internal/models"
)

// SeedAdmin ensures an admin account exists with the given credentials.
// It does nothing when the username is already taken.
func (db *DB) SeedAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("admin username and password must both be set to seed an admin account")
	}

	_, err := db.GetUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	if _, err := db.CreateUser(ctx, username, username, password, models.RoleAdmin); err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}
	logging.Info().Str("username", username).Msg("Seeded admin account")
	return nil
}
