// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vinovest/sqlx"

	"github.com/adscope/authcore/internal/models"
)

// SQLite is the embedded fallback store. Writes are serialized through a
// mutex, matching the single-writer model of file-backed SQLite; reads run
// concurrently on the pool.
type SQLite struct {
	db *sqlx.DB
	mu sync.Mutex
}

// NewSQLite creates a store on an open connection.
func NewSQLite(db *sqlx.DB) *SQLite {
	return &SQLite{db: db}
}

// isUniqueViolation identifies SQLite unique-constraint errors.
// modernc.org/sqlite surfaces them as strings.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLite) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var nameArg any
	if name != "" {
		nameArg = name
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, name) VALUES (?, ?, ?)`,
		email, passwordHash, nameArg)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           strconv.FormatInt(id, 10),
		Email:        email,
		PasswordHash: passwordHash,
	}
	if name != "" {
		user.Name = sql.NullString{String: name, Valid: true}
	}
	return user, nil
}

func (s *SQLite) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user,
		`SELECT id, email, password_hash, name, reset_token, reset_expiry FROM users WHERE email = ?`,
		email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLite) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return nil, ErrNotFound
	}

	var user models.User
	err := s.db.GetContext(ctx, &user,
		`SELECT id, email, password_hash, name, reset_token, reset_expiry FROM users WHERE id = ?`,
		id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLite) CreateSession(ctx context.Context, tokenDigest, userID string, maxAge time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := time.Now().Add(maxAge).UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		tokenDigest, userID, expiresAt)
	return err
}

func (s *SQLite) FindSession(ctx context.Context, tokenDigest string) (*models.Session, error) {
	var session models.Session
	err := s.db.GetContext(ctx, &session,
		`SELECT token, user_id, expires_at FROM sessions WHERE token = ?`,
		tokenDigest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// Lazy expiry: a stale row is removed on the read that discovers it.
	if session.Expired(time.Now()) {
		if err := s.DeleteSession(ctx, tokenDigest); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	return &session, nil
}

func (s *SQLite) DeleteSession(ctx context.Context, tokenDigest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, tokenDigest)
	return err
}

func (s *SQLite) DeleteUserSessions(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

func (s *SQLite) SetResetToken(ctx context.Context, email, token string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET reset_token = ?, reset_expiry = ? WHERE email = ?`,
		token, expiry.UnixMilli(), email)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) ConsumeResetToken(ctx context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Single statement read-and-clear; the mutex plus the WHERE clause make
	// the token single-use even under concurrent callers.
	var email string
	err := s.db.QueryRowContext(ctx,
		`UPDATE users SET reset_token = NULL, reset_expiry = NULL
		 WHERE reset_token = ? AND reset_expiry > ?
		 RETURNING email`,
		token, time.Now().UnixMilli()).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return email, nil
}

func (s *SQLite) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`,
		passwordHash, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
