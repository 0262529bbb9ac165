package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCostFactor = 12
)

// dummyHash is compared against when the user is unknown so both paths cost
// one bcrypt evaluation.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("unknown-user"), bcryptCostFactor)
	return h
})

// HashPassword generates a bcrypt hash for the given password.
// Use this to produce API_BASIC_AUTH_USERS entries.
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCostFactor)
	if err != nil {
		slog.Error("Failed to generate bcrypt hash for password", slog.Any("error", err))
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plaintext password with a stored bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			// Malformed hash in configuration
			slog.Warn("Error comparing password hash", slog.Any("error", err))
		}
		return false
	}
	return true
}

// Users maps a Basic auth user name to its bcrypt hash.
type Users map[string]string

// Verify reports whether user/password match a configured pair.
func (u Users) Verify(user, password string) bool {
	hash, ok := u[user]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return false
	}
	return CheckPasswordHash(password, hash)
}
