// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

// Package session translates issued sessions into transport-level cookies.
package session

import (
	"net/http"
	"time"
)

// AdminCookieName marks privilege-elevated sessions. The flag is a UI hint;
// authorization is re-derived server-side on every request.
const AdminCookieName = "is_admin"

// Issuer builds the session cookies from configuration.
type Issuer struct {
	name   string
	maxAge time.Duration
	secure bool
}

// New creates an issuer. secure should be true outside development so the
// cookies are HTTPS-only.
func New(cookieName string, maxAge time.Duration, secure bool) *Issuer {
	return &Issuer{name: cookieName, maxAge: maxAge, secure: secure}
}

func (i *Issuer) base() http.Cookie {
	return http.Cookie{
		Path:     "/",
		HttpOnly: true,
		Secure:   i.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Cookie wraps a session token for the client.
func (i *Issuer) Cookie(token string) *http.Cookie {
	c := i.base()
	c.Name = i.name
	c.Value = token
	c.MaxAge = int(i.maxAge.Seconds())
	return &c
}

// AdminCookie marks the session as privilege-elevated.
func (i *Issuer) AdminCookie() *http.Cookie {
	c := i.base()
	c.Name = AdminCookieName
	c.Value = "1"
	c.MaxAge = int(i.maxAge.Seconds())
	return &c
}

// Expired returns a cookie that clears the session on the client.
func (i *Issuer) Expired() *http.Cookie {
	c := i.base()
	c.Name = i.name
	c.Value = ""
	c.MaxAge = -1
	return &c
}

// ExpiredAdmin returns a cookie that clears the admin marker.
func (i *Issuer) ExpiredAdmin() *http.Cookie {
	c := i.base()
	c.Name = AdminCookieName
	c.Value = ""
	c.MaxAge = -1
	return &c
}

// Name exposes the session cookie name for request parsing.
func (i *Issuer) Name() string { return i.name }
