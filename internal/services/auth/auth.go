// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

// Package auth implements the credential flows: login, signup, logout,
// session introspection, password reset and the admin existence check. It
// owns backend selection between the primary and fallback stores.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/adscope/authcore/internal/models"
	"github.com/adscope/authcore/internal/ratelimit"
	"github.com/adscope/authcore/internal/repository"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrRateLimited        = errors.New("rate limited")
	ErrUnconfigured       = errors.New("no credential store available")
)

// errBackendUnavailable marks a backend lookup that failed for reasons other
// than a missing record. It never leaves this package; it only drives the
// one-shot primary-to-fallback hop.
var errBackendUnavailable = errors.New("backend unavailable")

// RateLimitedError carries the window reset hint for Retry-After headers.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string { return "rate limited" }

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }

// emailRe is the minimal local@domain.tld shape; anything stricter is the UI
// tier's problem.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLen = 8

// Config tunes the auth service.
type Config struct {
	AdminEmail    string
	AdminSecret   string
	SessionMaxAge time.Duration
	TokenSecret   string
	Development   bool

	LoginLimit   int
	LoginWindow  time.Duration
	SignupLimit  int
	SignupWindow time.Duration
	ForgotLimit  int
	ForgotWindow time.Duration
}

// Backend names reported by AdminExists and Health.
const (
	BackendPrimary  = "primary"
	BackendFallback = "fallback"
)

// Service orchestrates the credential flows over the two stores.
type Service struct {
	primary  repository.Store // nil when the primary backend is disabled
	fallback repository.Store
	limiter  ratelimit.Limiter
	cfg      Config
}

// NewService wires the orchestrator. primary may be nil; fallback and limiter
// must not be.
func NewService(primary, fallback repository.Store, limiter ratelimit.Limiter, cfg Config) *Service {
	return &Service{
		primary:  primary,
		fallback: fallback,
		limiter:  limiter,
		cfg:      cfg,
	}
}

// Session is an issued login session.
type Session struct {
	User    *models.User
	Token   string
	MaxAge  time.Duration
	IsAdmin bool
}

// NormalizeEmail lowercases and trims an email for case-insensitive matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	return email != "" && len(email) <= 254 && emailRe.MatchString(email)
}

// checkLimit consults the limiter. A limiter backend failure degrades open:
// login availability must not hinge on the shared counter store.
func (s *Service) checkLimit(ctx context.Context, key string, limit int, window time.Duration) error {
	if limit <= 0 {
		return nil
	}
	res, err := s.limiter.Check(ctx, key, limit, window)
	if err != nil {
		slog.Warn("ratelimit_unavailable", "key", key, "error", err)
		return nil
	}
	if res.Limited {
		return &RateLimitedError{RetryAfter: res.ResetIn}
	}
	return nil
}

// ready guards against a service wired without its mandatory fallback store.
func (s *Service) ready() error {
	if s.fallback == nil {
		return ErrUnconfigured
	}
	return nil
}

// findUser resolves a user, trying the primary first. The returned store is
// the backend that held the user and is where the session must be persisted.
// A wrong password is decided by the caller; this only distinguishes "found",
// "nowhere present" and "no backend reachable".
func (s *Service) findUser(ctx context.Context, email string) (*models.User, repository.Store, error) {
	var unavailable int

	if s.primary != nil {
		user, err := s.primary.FindUserByEmail(ctx, email)
		switch {
		case err == nil:
			return user, s.primary, nil
		case errors.Is(err, repository.ErrNotFound):
			// Miss at the primary: fall through to the fallback once.
		default:
			unavailable++
			slog.Warn("primary_unavailable", "op", "find_user", "error", err)
		}
	}

	user, err := s.fallback.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return user, s.fallback, nil
	case errors.Is(err, repository.ErrNotFound):
		return nil, nil, repository.ErrNotFound
	default:
		unavailable++
		slog.Error("fallback_unavailable", "op", "find_user", "error", err)
	}

	if s.primary != nil && unavailable < 2 {
		// Primary answered but the fallback is down; the primary's miss
		// stands.
		return nil, nil, repository.ErrNotFound
	}
	return nil, nil, errBackendUnavailable
}

// issueSession creates a session token in the given backend and flags
// privilege elevation for the configured admin email.
func (s *Service) issueSession(ctx context.Context, store repository.Store, user *models.User) (*Session, error) {
	token, err := NewToken(SessionTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	digest := DigestToken(s.cfg.TokenSecret, token)
	if err := store.CreateSession(ctx, digest, user.ID, s.cfg.SessionMaxAge); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	return &Session{
		User:    user,
		Token:   token,
		MaxAge:  s.cfg.SessionMaxAge,
		IsAdmin: s.cfg.AdminEmail != "" && strings.EqualFold(user.Email, s.cfg.AdminEmail),
	}, nil
}

// Login authenticates an email/password pair and issues a session.
func (s *Service) Login(ctx context.Context, origin, email, password string) (*Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	if !validEmail(email) || len(password) < minPasswordLen {
		return nil, ErrInvalidInput
	}

	key := fmt.Sprintf("login:%s:%s", origin, email)
	if err := s.checkLimit(ctx, key, s.cfg.LoginLimit, s.cfg.LoginWindow); err != nil {
		return nil, err
	}

	user, store, err := s.findUser(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		// Same KDF cost as a wrong password, same response.
		VerifyDummy(password)
		slog.Warn("login_failed", "reason", "unknown_email")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !VerifyPassword(password, user.PasswordHash) {
		slog.Warn("login_failed", "user_id", user.ID, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	session, err := s.issueSession(ctx, store, user)
	if err != nil {
		return nil, err
	}

	slog.Info("login_success", "user_id", user.ID, "admin", session.IsAdmin)
	return session, nil
}

// Signup registers a new user and logs them in.
func (s *Service) Signup(ctx context.Context, origin, name, email, password string) (*Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if !validEmail(email) || len(password) < minPasswordLen {
		return nil, ErrInvalidInput
	}

	key := fmt.Sprintf("signup:%s:%s", origin, email)
	if err := s.checkLimit(ctx, key, s.cfg.SignupLimit, s.cfg.SignupWindow); err != nil {
		return nil, err
	}

	// The email must be free on both backends, or the account would shadow
	// an existing one after a fallback hop.
	if _, _, err := s.findUser(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	store := s.fallback
	if s.primary != nil {
		store = s.primary
	}

	user, err := store.CreateUser(ctx, name, email, hash)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, ErrDuplicateEmail
	}
	if err != nil && store == s.primary {
		slog.Warn("primary_unavailable", "op", "create_user", "error", err)
		store = s.fallback
		user, err = store.CreateUser(ctx, name, email, hash)
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	session, err := s.issueSession(ctx, store, user)
	if err != nil {
		return nil, err
	}

	slog.Info("signup_success", "user_id", user.ID)
	return session, nil
}

// Logout deletes the session on whichever backend holds it. A missing
// session is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if token == "" {
		return nil
	}
	digest := DigestToken(s.cfg.TokenSecret, token)

	if s.primary != nil {
		if err := s.primary.DeleteSession(ctx, digest); err != nil {
			slog.Warn("primary_unavailable", "op", "delete_session", "error", err)
		}
	}
	return s.fallback.DeleteSession(ctx, digest)
}

// CurrentUser resolves a session token to its user. Absent, expired or
// orphaned sessions yield (nil, nil): "not logged in" is not an error.
func (s *Service) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}
	digest := DigestToken(s.cfg.TokenSecret, token)

	stores := []repository.Store{s.fallback}
	if s.primary != nil {
		stores = []repository.Store{s.primary, s.fallback}
	}

	for _, store := range stores {
		session, err := store.FindSession(ctx, digest)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			slog.Warn("store_unavailable", "op", "find_session", "error", err)
			continue
		}

		user, err := store.GetUserByID(ctx, session.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			// User vanished under the session.
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return user, nil
	}

	return nil, nil
}

// ForgotPassword stores a one-hour reset token for the account and returns
// it for the delivery tier. An unknown email returns an empty token with no
// error so callers cannot probe for accounts.
func (s *Service) ForgotPassword(ctx context.Context, origin, email string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return "", ErrInvalidInput
	}

	key := fmt.Sprintf("forgot:%s:%s", origin, email)
	if err := s.checkLimit(ctx, key, s.cfg.ForgotLimit, s.cfg.ForgotWindow); err != nil {
		return "", err
	}

	user, store, err := s.findUser(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	token, err := NewToken(ResetTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	if err := store.SetResetToken(ctx, user.Email, token, time.Now().Add(time.Hour)); err != nil {
		return "", fmt.Errorf("persist reset token: %w", err)
	}

	slog.Info("reset_token_issued", "user_id", user.ID)
	return token, nil
}

// ResetPassword consumes a reset token, replaces the password and revokes
// the user's existing sessions. Consumption is single-use; a second call
// with the same token fails.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if token == "" || len(newPassword) < minPasswordLen {
		return ErrInvalidInput
	}

	stores := []repository.Store{s.fallback}
	if s.primary != nil {
		stores = []repository.Store{s.primary, s.fallback}
	}

	for _, store := range stores {
		email, err := store.ConsumeResetToken(ctx, token)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			slog.Warn("store_unavailable", "op", "consume_reset_token", "error", err)
			continue
		}

		user, err := store.FindUserByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("load user after reset: %w", err)
		}

		hash, err := HashPassword(newPassword)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		if err := store.UpdatePassword(ctx, user.ID, hash); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if err := store.DeleteUserSessions(ctx, user.ID); err != nil {
			slog.Warn("session_revocation_failed", "user_id", user.ID, "error", err)
		}

		slog.Info("password_reset", "user_id", user.ID)
		return nil
	}

	return ErrInvalidInput
}

// AdminStatus is the result of the setup tooling's existence check.
type AdminStatus struct {
	Configured bool
	Exists     bool
	Backend    string
}

// AdminExists reports whether the configured admin account exists and which
// backend holds it. It never reveals credentials.
func (s *Service) AdminExists(ctx context.Context) (AdminStatus, error) {
	if err := s.ready(); err != nil {
		return AdminStatus{}, err
	}
	if s.cfg.AdminEmail == "" {
		return AdminStatus{}, nil
	}

	email := NormalizeEmail(s.cfg.AdminEmail)

	if s.primary != nil {
		_, err := s.primary.FindUserByEmail(ctx, email)
		if err == nil {
			return AdminStatus{Configured: true, Exists: true, Backend: BackendPrimary}, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Warn("primary_unavailable", "op", "admin_exists", "error", err)
		}
	}

	_, err := s.fallback.FindUserByEmail(ctx, email)
	if err == nil {
		return AdminStatus{Configured: true, Exists: true, Backend: BackendFallback}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return AdminStatus{}, err
	}

	return AdminStatus{Configured: true}, nil
}

// CheckAdminSecret gates the admin endpoints outside development.
func (s *Service) CheckAdminSecret(header string) bool {
	if s.cfg.Development {
		return true
	}
	if s.cfg.AdminSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(s.cfg.AdminSecret)) == 1
}
