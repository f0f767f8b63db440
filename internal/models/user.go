// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

package models

import "database/sql"

// User is an account record. IDs are backend-specific (integer rowids on the
// embedded store, UUIDs on Postgres) and are treated as opaque strings.
type User struct {
	ID           string         `db:"id" json:"id"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Name         sql.NullString `db:"name" json:"-"`
	ResetToken   sql.NullString `db:"reset_token" json:"-"`
	ResetExpiry  sql.NullInt64  `db:"reset_expiry" json:"-"`
}

// PublicUser is the wire representation of a user.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Public strips everything that must not leave the service.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name.String,
	}
}
