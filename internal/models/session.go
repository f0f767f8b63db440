// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

package models

import "time"

// Session is a server-side login session. Token holds the at-rest digest of
// the random token handed to the client, never the token itself.
type Session struct {
	Token     string `db:"token" json:"-"`
	UserID    string `db:"user_id" json:"user_id"`
	ExpiresAt int64  `db:"expires_at" json:"expires_at"` // epoch milliseconds
}

// Expired reports whether the session has passed its deadline.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt <= now.UnixMilli()
}
