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
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mangapulse/mangapulse/internal/models"
)

// CreateUser inserts a new user with a bcrypt-hashed password and
// returns the stored record.
func (db *DB) CreateUser(ctx context.Context, username, displayName, password string, role models.Role) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		DisplayName:  displayName,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	stmt, err := db.prepare(ctx, `INSERT INTO users (id, username, display_name, role, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	if _, err := stmt.ExecContext(ctx, user.ID, user.Username, user.DisplayName,
		string(user.Role), user.PasswordHash, user.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("username %q: %w", username, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

// GetUserByID fetches a user by primary key.
func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return db.scanUser(db.conn.QueryRowContext(ctx,
		`SELECT id, username, display_name, role, password_hash, created_at
		 FROM users WHERE id = ?`, id))
}

// GetUserByUsername fetches a user by unique username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return db.scanUser(db.conn.QueryRowContext(ctx,
		`SELECT id, username, display_name, role, password_hash, created_at
		 FROM users WHERE username = ?`, username))
}

// VerifyPassword checks the given password against the user's stored hash.
func (db *DB) VerifyPassword(ctx context.Context, username, password string) (*models.User, error) {
	user, err := db.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("password mismatch: %w", ErrNotFound)
	}
	return user, nil
}

func (db *DB) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &role, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	u.Role = models.Role(role)
	return &u, nil
}

// isUniqueViolation reports whether an error is a SQLite uniqueness
// constraint failure. String matching avoids importing the driver's
// cgo-backed error types into callers.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
