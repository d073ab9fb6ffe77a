package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost = 10

	// MinPasswordLength is the shortest password accepted at registration.
	MinPasswordLength = 6
	// bcrypt ignores everything past 72 bytes, so longer passwords are refused.
	maxPasswordBytes = 72
)

// ValidatePassword checks a new password against the account policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrInvalidPassword, MinPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: must be at most %d bytes", ErrInvalidPassword, maxPasswordBytes)
	}
	return nil
}

// HashPassword validates and hashes a staff password for storage.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
// A malformed hash counts as a mismatch.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
