// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package models

import "time"

// Manga source: where the catalogue record originated. Only locally-sourced
// mangas have realtime channels; externally-sourced records (Jikan mirror)
// are read-only here and never publish events.
const (
	SourceLocal = "local"
	SourceJikan = "jikan"
)

// Manga publication statuses.
const (
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusHiatus    = "hiatus"
)

// Manga is a catalogue entry. Author is a free-form display name, not a
// foreign key; manga-admin ownership is resolved by exact string match
// against the admin's display name.
type Manga struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Source        string    `json:"source"`
	Status        string    `json:"status"`
	Description   string    `json:"description,omitempty"`
	TotalChapters int       `json:"total_chapters"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Chapter is an ordered unit of a manga, composed of image pages.
type Chapter struct {
	ID        string    `json:"id"`
	MangaID   string    `json:"manga_id"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Pages     []string  `json:"pages,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Favorite links a user to a manga. Source is copied from the manga at
// favorite time; only favorites with SourceLocal participate in room
// resolution.
type Favorite struct {
	UserID    string    `json:"user_id"`
	MangaID   string    `json:"manga_id"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// ReadingProgress records the latest chapter a user read for a manga.
type ReadingProgress struct {
	UserID    string    `json:"user_id"`
	MangaID   string    `json:"manga_id"`
	ChapterID string    `json:"chapter_id"`
	ReadAt    time.Time `json:"read_at"`
}
