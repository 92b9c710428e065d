// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

// Package rooms computes per-user notification room membership.
//
// Every manga has exactly one room, named "manga:" + mangaID. Which rooms
// a user belongs to depends on their role: admins see the whole
// catalogue, manga-admins see the mangas they authored, and plain users
// see their locally-sourced favorites. Resolution is read-only and
// computed fresh on every call; clients re-resolve through the bootstrap
// endpoint whenever their membership may have changed.
package rooms

import (
	"context"
	"fmt"

	"github.com/mangapulse/mangapulse/internal/logging"
	"github.com/mangapulse/mangapulse/internal/models"
)

// Prefix is the room name prefix shared by all manga rooms.
const Prefix = "manga:"

// ForManga returns the room name for a manga ID.
func ForManga(mangaID string) string {
	return Prefix + mangaID
}

// Identity is the resolved authentication identity a resolution runs for.
type Identity struct {
	UserID      string
	DisplayName string
	Role        models.Role
}

// Catalogue is the data layer surface the resolver reads from.
type Catalogue interface {
	ListMangas(ctx context.Context) ([]models.Manga, error)
	ListMangasByAuthor(ctx context.Context, author string) ([]models.Manga, error)
	ListFavoritesByUser(ctx context.Context, userID, source string) ([]models.Favorite, error)
}

// Resolver maps an identity to its set of notification rooms.
type Resolver struct {
	catalogue Catalogue
}

// NewResolver creates a resolver backed by the given catalogue.
func NewResolver(catalogue Catalogue) *Resolver {
	return &Resolver{catalogue: catalogue}
}

// Resolve computes the rooms the identity should belong to. Resolution is
// best-effort: data layer failures degrade to an empty set and never fail
// the caller. The returned slice contains unique room names in no
// particular order.
func (r *Resolver) Resolve(ctx context.Context, id Identity) []string {
	if id.UserID == "" {
		return []string{}
	}

	names, err := r.resolve(ctx, id)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("user_id", id.UserID).
			Str("role", string(id.Role)).
			Msg("Room resolution degraded to empty set")
		return []string{}
	}
	return names
}

func (r *Resolver) resolve(ctx context.Context, id Identity) ([]string, error) {
	switch id.Role {
	case models.RoleAdmin:
		mangas, err := r.catalogue.ListMangas(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list catalogue: %w", err)
		}
		return mangaRooms(mangas), nil

	case models.RoleMangaAdmin:
		// Ownership is matched on the author name, not a foreign key.
		// A manga-admin whose display name drifts from the stored
		// author field silently loses its rooms.
		mangas, err := r.catalogue.ListMangasByAuthor(ctx, id.DisplayName)
		if err != nil {
			return nil, fmt.Errorf("failed to list authored mangas: %w", err)
		}
		return mangaRooms(mangas), nil

	case models.RoleUser:
		favorites, err := r.catalogue.ListFavoritesByUser(ctx, id.UserID, models.SourceLocal)
		if err != nil {
			return nil, fmt.Errorf("failed to list favorites: %w", err)
		}
		names := make([]string, 0, len(favorites))
		seen := make(map[string]struct{}, len(favorites))
		for _, f := range favorites {
			room := ForManga(f.MangaID)
			if _, ok := seen[room]; ok {
				continue
			}
			seen[room] = struct{}{}
			names = append(names, room)
		}
		return names, nil

	default:
		return nil, fmt.Errorf("unknown role %q", id.Role)
	}
}

func mangaRooms(mangas []models.Manga) []string {
	names := make([]string, 0, len(mangas))
	seen := make(map[string]struct{}, len(mangas))
	for _, m := range mangas {
		room := ForManga(m.ID)
		if _, ok := seen[room]; ok {
			continue
		}
		seen[room] = struct{}{}
		names = append(names, room)
	}
	return names
}
