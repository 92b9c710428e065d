// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mangapulse/mangapulse/internal/models"
)

// UpsertProgress records the latest chapter a user has read for a manga,
// replacing any earlier entry for the same manga.
func (db *DB) UpsertProgress(ctx context.Context, p models.ReadingProgress) error {
	if p.ReadAt.IsZero() {
		p.ReadAt = time.Now().UTC()
	}
	stmt, err := db.prepare(ctx, `INSERT INTO reading_history (user_id, manga_id, chapter_id, read_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, manga_id)
		DO UPDATE SET chapter_id = excluded.chapter_id, read_at = excluded.read_at`)
	if err != nil {
		return err
	}
	if _, err := stmt.ExecContext(ctx, p.UserID, p.MangaID, p.ChapterID, p.ReadAt); err != nil {
		return fmt.Errorf("failed to upsert reading progress: %w", err)
	}
	return nil
}

// GetProgress returns a user's progress for one manga.
func (db *DB) GetProgress(ctx context.Context, userID, mangaID string) (*models.ReadingProgress, error) {
	var p models.ReadingProgress
	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id, manga_id, chapter_id, read_at
		 FROM reading_history WHERE user_id = ? AND manga_id = ?`,
		userID, mangaID).Scan(&p.UserID, &p.MangaID, &p.ChapterID, &p.ReadAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan reading progress: %w", err)
	}
	return &p, nil
}

// ListProgressByUser returns a user's reading history, most recent first.
func (db *DB) ListProgressByUser(ctx context.Context, userID string) ([]models.ReadingProgress, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, manga_id, chapter_id, read_at
		 FROM reading_history WHERE user_id = ? ORDER BY read_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reading history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var res []models.ReadingProgress
	for rows.Next() {
		var p models.ReadingProgress
		if err := rows.Scan(&p.UserID, &p.MangaID, &p.ChapterID, &p.ReadAt); err != nil {
			return nil, fmt.Errorf("failed to scan reading progress: %w", err)
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
