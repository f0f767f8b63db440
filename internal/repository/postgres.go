// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vinovest/sqlx"

	"github.com/adscope/authcore/internal/models"
)

const defaultPostgresTimeout = 3 * time.Second

// Postgres is the hosted primary store. Every call carries a bounded timeout
// so an unreachable primary cannot stall the fallback path.
type Postgres struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgres creates a store on an open connection. A non-positive timeout
// falls back to the default.
func NewPostgres(db *sqlx.DB, timeout time.Duration) *Postgres {
	if timeout <= 0 {
		timeout = defaultPostgresTimeout
	}
	return &Postgres{db: db, timeout: timeout}
}

func (p *Postgres) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.timeout)
}

// isPgUniqueViolation identifies Postgres unique-constraint errors (23505).
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (p *Postgres) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var nameArg any
	if name != "" {
		nameArg = name
	}

	id := uuid.NewString()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, name) VALUES ($1, $2, $3, $4)`,
		id, email, passwordHash, nameArg)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	user := &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
	}
	if name != "" {
		user.Name = sql.NullString{String: name, Valid: true}
	}
	return user, nil
}

func (p *Postgres) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var user models.User
	err := p.db.GetContext(ctx, &user,
		`SELECT id, email, password_hash, name, reset_token, reset_expiry FROM users WHERE email = $1`,
		email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var user models.User
	err := p.db.GetContext(ctx, &user,
		`SELECT id, email, password_hash, name, reset_token, reset_expiry FROM users WHERE id = $1`,
		id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (p *Postgres) CreateSession(ctx context.Context, tokenDigest, userID string, maxAge time.Duration) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	expiresAt := time.Now().Add(maxAge).UnixMilli()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		tokenDigest, userID, expiresAt)
	return err
}

func (p *Postgres) FindSession(ctx context.Context, tokenDigest string) (*models.Session, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var session models.Session
	err := p.db.GetContext(ctx, &session,
		`SELECT token, user_id, expires_at FROM sessions WHERE token = $1`,
		tokenDigest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if session.Expired(time.Now()) {
		if _, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, tokenDigest); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	return &session, nil
}

func (p *Postgres) DeleteSession(ctx context.Context, tokenDigest string) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, tokenDigest)
	return err
}

func (p *Postgres) DeleteUserSessions(ctx context.Context, userID string) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func (p *Postgres) SetResetToken(ctx context.Context, email, token string, expiry time.Time) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	res, err := p.db.ExecContext(ctx,
		`UPDATE users SET reset_token = $1, reset_expiry = $2 WHERE email = $3`,
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

func (p *Postgres) ConsumeResetToken(ctx context.Context, token string) (string, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	// Atomic read-and-clear; the row update guards double consumption.
	var email string
	err := p.db.QueryRowContext(ctx,
		`UPDATE users SET reset_token = NULL, reset_expiry = NULL
		 WHERE reset_token = $1 AND reset_expiry > $2
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

func (p *Postgres) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	res, err := p.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1 WHERE id = $2`,
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

func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.db.PingContext(ctx)
}
