// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mangapulse/mangapulse/internal/models"
)

// AddFavorite records that a user follows a manga. Adding an existing
// favorite refreshes its source and is not an error.
func (db *DB) AddFavorite(ctx context.Context, userID, mangaID, source string) error {
	if source == "" {
		source = models.SourceLocal
	}
	stmt, err := db.prepare(ctx, `INSERT INTO favorites (user_id, manga_id, source, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, manga_id) DO UPDATE SET source = excluded.source`)
	if err != nil {
		return err
	}
	if _, err := stmt.ExecContext(ctx, userID, mangaID, source, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite deletes a favorite. Removing a favorite that does not
// exist is a no-op.
func (db *DB) RemoveFavorite(ctx context.Context, userID, mangaID string) error {
	stmt, err := db.prepare(ctx, `DELETE FROM favorites WHERE user_id = ? AND manga_id = ?`)
	if err != nil {
		return err
	}
	if _, err := stmt.ExecContext(ctx, userID, mangaID); err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

// ListFavoritesByUser returns a user's favorites, optionally filtered by
// source. An empty source returns all favorites.
func (db *DB) ListFavoritesByUser(ctx context.Context, userID, source string) ([]models.Favorite, error) {
	query := `SELECT user_id, manga_id, source, created_at FROM favorites WHERE user_id = ?`
	args := []any{userID}
	if source != "" {
		query += ` AND source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY created_at`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var res []models.Favorite
	for rows.Next() {
		var f models.Favorite
		if err := rows.Scan(&f.UserID, &f.MangaID, &f.Source, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		res = append(res, f)
	}
	return res, rows.Err()
}
