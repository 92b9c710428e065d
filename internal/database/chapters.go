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

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/mangapulse/mangapulse/internal/models"
)

// CreateChapter inserts a chapter and bumps the parent manga's chapter
// count inside a single transaction.
func (db *DB) CreateChapter(ctx context.Context, c *models.Chapter) (*models.Chapter, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	pages, err := marshalPages(c.Pages)
	if err != nil {
		return nil, err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chapters (id, manga_id, number, title, pages, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.MangaID, c.Number, c.Title, pages, c.CreatedAt, c.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("chapter %d of manga %s: %w", c.Number, c.MangaID, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to insert chapter: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE mangas SET total_chapters = total_chapters + 1, updated_at = ? WHERE id = ?`,
		now, c.MangaID)
	if err != nil {
		return nil, fmt.Errorf("failed to bump chapter count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("manga %s: %w", c.MangaID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit chapter: %w", err)
	}
	return c, nil
}

// UpdateChapter replaces the title and pages of an existing chapter.
func (db *DB) UpdateChapter(ctx context.Context, c *models.Chapter) (*models.Chapter, error) {
	pages, err := marshalPages(c.Pages)
	if err != nil {
		return nil, err
	}
	c.UpdatedAt = time.Now().UTC()

	stmt, err := db.prepare(ctx,
		`UPDATE chapters SET title = ?, pages = ?, updated_at = ? WHERE id = ?`)
	if err != nil {
		return nil, err
	}
	res, err := stmt.ExecContext(ctx, c.Title, pages, c.UpdatedAt, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update chapter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return db.GetChapter(ctx, c.ID)
}

// GetChapter fetches a chapter by ID.
func (db *DB) GetChapter(ctx context.Context, id string) (*models.Chapter, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, manga_id, number, title, pages, created_at, updated_at
		 FROM chapters WHERE id = ?`, id)

	var c models.Chapter
	var pages string
	err := row.Scan(&c.ID, &c.MangaID, &c.Number, &c.Title, &pages, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan chapter: %w", err)
	}
	if err := json.Unmarshal([]byte(pages), &c.Pages); err != nil {
		return nil, fmt.Errorf("failed to decode pages: %w", err)
	}
	return &c, nil
}

// ListChaptersByManga returns all chapters of a manga in reading order.
func (db *DB) ListChaptersByManga(ctx context.Context, mangaID string) ([]models.Chapter, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, manga_id, number, title, pages, created_at, updated_at
		 FROM chapters WHERE manga_id = ? ORDER BY number`, mangaID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chapters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var res []models.Chapter
	for rows.Next() {
		var c models.Chapter
		var pages string
		if err := rows.Scan(&c.ID, &c.MangaID, &c.Number, &c.Title, &pages,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		if err := json.Unmarshal([]byte(pages), &c.Pages); err != nil {
			return nil, fmt.Errorf("failed to decode pages: %w", err)
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// marshalPages encodes the page list as JSON text for storage.
func marshalPages(pages []string) (string, error) {
	if pages == nil {
		pages = []string{}
	}
	b, err := json.Marshal(pages)
	if err != nil {
		return "", fmt.Errorf("failed to encode pages: %w", err)
	}
	return string(b), nil
}
