// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"

	"github.com/adscope/authcore/internal/database"
	"github.com/adscope/authcore/internal/models"
	"github.com/adscope/authcore/internal/repository"
	"github.com/adscope/authcore/internal/services/auth"
)

// NewTestDB creates a migrated throwaway SQLite database for tests.
// A file under t.TempDir keeps the schema visible to every pooled
// connection, unlike :memory:.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.SQLite) {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, repository.NewSQLite(db)
}

// NewTestUser creates a user with a real password hash.
func NewTestUser(t *testing.T, store repository.Store, email, password string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	user, err := store.CreateUser(context.Background(), "", email, hash)
	require.NoError(t, err)
	return user
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}
