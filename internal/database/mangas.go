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

	"github.com/google/uuid"

	"github.com/mangapulse/mangapulse/internal/models"
)

const mangaColumns = `id, title, author, source, status, description, total_chapters, created_at, updated_at`

// CreateManga inserts a new manga and returns the stored record.
func (db *DB) CreateManga(ctx context.Context, m *models.Manga) (*models.Manga, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Source == "" {
		m.Source = models.SourceLocal
	}
	if m.Status == "" {
		m.Status = models.StatusOngoing
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	stmt, err := db.prepare(ctx, `INSERT INTO mangas (`+mangaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	if _, err := stmt.ExecContext(ctx, m.ID, m.Title, m.Author, m.Source, m.Status,
		m.Description, m.TotalChapters, m.CreatedAt, m.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("manga %q: %w", m.ID, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to insert manga: %w", err)
	}
	return m, nil
}

// GetManga fetches a manga by ID.
func (db *DB) GetManga(ctx context.Context, id string) (*models.Manga, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+mangaColumns+` FROM mangas WHERE id = ?`, id)
	return scanManga(row)
}

// ListMangas returns all mangas ordered by title.
func (db *DB) ListMangas(ctx context.Context) ([]models.Manga, error) {
	return db.queryMangas(ctx,
		`SELECT `+mangaColumns+` FROM mangas ORDER BY title`)
}

// ListMangasByAuthor returns mangas whose author field matches exactly.
func (db *DB) ListMangasByAuthor(ctx context.Context, author string) ([]models.Manga, error) {
	return db.queryMangas(ctx,
		`SELECT `+mangaColumns+` FROM mangas WHERE author = ? ORDER BY title`, author)
}

// UpdateMangaStatus changes the publication status of a manga.
// Returns ErrNotFound when the manga does not exist.
func (db *DB) UpdateMangaStatus(ctx context.Context, id, status string) (*models.Manga, error) {
	stmt, err := db.prepare(ctx,
		`UPDATE mangas SET status = ?, updated_at = ? WHERE id = ?`)
	if err != nil {
		return nil, err
	}
	res, err := stmt.ExecContext(ctx, status, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update manga status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return db.GetManga(ctx, id)
}

func (db *DB) queryMangas(ctx context.Context, query string, args ...any) ([]models.Manga, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mangas: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var res []models.Manga
	for rows.Next() {
		var m models.Manga
		if err := rows.Scan(&m.ID, &m.Title, &m.Author, &m.Source, &m.Status,
			&m.Description, &m.TotalChapters, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan manga: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func scanManga(row *sql.Row) (*models.Manga, error) {
	var m models.Manga
	err := row.Scan(&m.ID, &m.Title, &m.Author, &m.Source, &m.Status,
		&m.Description, &m.TotalChapters, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan manga: %w", err)
	}
	return &m, nil
}
