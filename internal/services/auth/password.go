// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Scheme     = "pbkdf2"
	pbkdf2Iterations = 210000
	pbkdf2SaltLen    = 16
	pbkdf2KeyLen     = 32
)

// HashPassword derives a tagged PBKDF2-HMAC-SHA256 hash string.
// Format: pbkdf2$<iterations>$<salt_hex>$<key_hex>
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	salt := make([]byte, pbkdf2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	return strings.Join([]string{
		pbkdf2Scheme,
		strconv.Itoa(pbkdf2Iterations),
		hex.EncodeToString(salt),
		hex.EncodeToString(key),
	}, "$"), nil
}

// VerifyPassword checks a plaintext password against a stored hash string.
// Empty, malformed or unknown-scheme hashes verify as false, never as an
// error; the comparison is constant-time.
func VerifyPassword(password, encoded string) bool {
	if password == "" || encoded == "" {
		return false
	}

	iterations, salt, want, ok := parsePBKDF2(encoded)
	if !ok {
		return false
	}

	got := pbkdf2.Key([]byte(password), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func parsePBKDF2(s string) (iterations int, salt, key []byte, ok bool) {
	parts := strings.Split(s, "$")
	if len(parts) != 4 || parts[0] != pbkdf2Scheme {
		return 0, nil, nil, false
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations < 1 {
		return 0, nil, nil, false
	}
	salt, err = hex.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return 0, nil, nil, false
	}
	key, err = hex.DecodeString(parts[3])
	if err != nil || len(key) < 16 {
		return 0, nil, nil, false
	}
	return iterations, salt, key, true
}

// dummyHash is a valid hash of no account's password. Verifying against it
// keeps the missing-user path on the same KDF cost as a wrong password.
var dummyHash = func() string {
	h, err := HashPassword("dummy-password-for-timing")
	if err != nil {
		panic(err)
	}
	return h
}()

// VerifyDummy burns one KDF computation for paths where no user was found.
func VerifyDummy(password string) {
	_ = VerifyPassword(password, dummyHash)
}
