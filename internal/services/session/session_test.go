// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

package session

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCookie(t *testing.T) {
	issuer := New("session_token", time.Hour, true)

	c := issuer.Cookie("abc123")
	assert.Equal(t, "session_token", c.Name)
	assert.Equal(t, "abc123", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 3600, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

func TestCookieInsecureForDevelopment(t *testing.T) {
	issuer := New("session_token", time.Hour, false)
	assert.False(t, issuer.Cookie("abc123").Secure)
	assert.False(t, issuer.AdminCookie().Secure)
}

func TestAdminCookie(t *testing.T) {
	issuer := New("session_token", time.Hour, true)

	c := issuer.AdminCookie()
	assert.Equal(t, AdminCookieName, c.Name)
	assert.Equal(t, "1", c.Value)
	assert.Equal(t, 3600, c.MaxAge)
	assert.True(t, c.HttpOnly)
}

func TestExpired(t *testing.T) {
	issuer := New("session_token", time.Hour, true)

	c := issuer.Expired()
	assert.Equal(t, "session_token", c.Name)
	assert.Empty(t, c.Value)
	assert.Equal(t, -1, c.MaxAge)

	admin := issuer.ExpiredAdmin()
	assert.Equal(t, AdminCookieName, admin.Name)
	assert.Equal(t, -1, admin.MaxAge)
}

func TestName(t *testing.T) {
	assert.Equal(t, "session_token", New("session_token", time.Hour, true).Name())
}
