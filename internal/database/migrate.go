// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package database

import (
	"context"
	"fmt"
)

// schema holds the full catalogue schema. Statements are idempotent so
// migrate can run on every startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		display_name  TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'user',
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS mangas (
		id             TEXT PRIMARY KEY,
		title          TEXT NOT NULL,
		author         TEXT NOT NULL,
		source         TEXT NOT NULL DEFAULT 'local',
		status         TEXT NOT NULL DEFAULT 'ongoing',
		description    TEXT NOT NULL DEFAULT '',
		total_chapters INTEGER NOT NULL DEFAULT 0,
		created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mangas_author ON mangas(author)`,

	`CREATE TABLE IF NOT EXISTS chapters (
		id         TEXT PRIMARY KEY,
		manga_id   TEXT NOT NULL REFERENCES mangas(id) ON DELETE CASCADE,
		number     INTEGER NOT NULL,
		title      TEXT NOT NULL DEFAULT '',
		pages      TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (manga_id, number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chapters_manga ON chapters(manga_id)`,

	`CREATE TABLE IF NOT EXISTS favorites (
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		manga_id   TEXT NOT NULL,
		source     TEXT NOT NULL DEFAULT 'local',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, manga_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_favorites_user_source ON favorites(user_id, source)`,

	`CREATE TABLE IF NOT EXISTS reading_history (
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		manga_id   TEXT NOT NULL,
		chapter_id TEXT NOT NULL,
		read_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, manga_id)
	)`,
}

func (db *DB) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
