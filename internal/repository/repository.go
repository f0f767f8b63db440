// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

// Package repository contains the credential store implementations. The same
// Store contract is served by the embedded SQLite fallback and the hosted
// Postgres primary; backend selection lives in the auth service, not here.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/adscope/authcore/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when a user with the same email exists.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Store is the backend-agnostic credential store contract.
type Store interface {
	// CreateUser persists a new user with an already-hashed password. The
	// email must be stored lowercase; a conflict yields ErrDuplicateEmail.
	CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error)

	// FindUserByEmail looks up a user by lowercased email.
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID looks up a user by its opaque id.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// CreateSession persists a session keyed by the token digest.
	CreateSession(ctx context.Context, tokenDigest, userID string, maxAge time.Duration) error

	// FindSession returns the session for a token digest. Expired rows are
	// deleted in the same call and reported as ErrNotFound.
	FindSession(ctx context.Context, tokenDigest string) (*models.Session, error)

	// DeleteSession removes a session. Deleting an absent session is not an
	// error.
	DeleteSession(ctx context.Context, tokenDigest string) error

	// DeleteUserSessions removes every session belonging to a user.
	DeleteUserSessions(ctx context.Context, userID string) error

	// SetResetToken stores a password-reset token and its expiry on the user.
	SetResetToken(ctx context.Context, email, token string, expiry time.Time) error

	// ConsumeResetToken atomically reads and clears a reset token, returning
	// the owning email. A missing, expired or already-consumed token yields
	// ErrNotFound. Two concurrent consumers of the same token cannot both
	// succeed.
	ConsumeResetToken(ctx context.Context, token string) (string, error)

	// UpdatePassword replaces a user's password hash.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
