// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

const (
	// SessionTokenBytes is the entropy of session tokens.
	SessionTokenBytes = 48
	// ResetTokenBytes is the entropy of password-reset tokens.
	ResetTokenBytes = 24
)

// fallbackDigestKey keys the at-rest token digest when no secret is
// configured. Tokens are never stored raw; configure a secret in production
// so digests survive a rebuild.
var fallbackDigestKey = []byte("authcore-builtin-token-digest-key")

// NewToken returns nbytes of cryptographic randomness, base64url encoded.
func NewToken(nbytes int) (string, error) {
	if nbytes < 24 {
		return "", errors.New("token size too small")
	}
	b := make([]byte, nbytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DigestToken maps a client token to its at-rest store key via keyed HMAC.
func DigestToken(secret, token string) string {
	key := fallbackDigestKey
	if secret != "" {
		key = []byte(secret)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
