package identity

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used when Config.BcryptCost is zero.
const DefaultBcryptCost = 10

// Password length bounds. bcrypt ignores input past 72 bytes, so longer
// passwords are refused instead of silently truncated.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

var (
	// ErrInvalidCredentials is returned when an email/password pair does
	// not match a user.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 characters")
)

// ValidatePassword checks the length bounds.
func ValidatePassword(password string) error {
	switch n := len(password); {
	case n < MinPasswordLength:
		return ErrPasswordTooShort
	case n > MaxPasswordLength:
		return ErrPasswordTooLong
	}
	return nil
}

// hasher produces and checks bcrypt password hashes at a fixed cost.
type hasher struct {
	cost int
}

func (h hasher) hash(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	return string(out), err
}

func (h hasher) matches(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// stale reports whether hash should be recomputed at the current cost.
func (h hasher) stale(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost < h.cost
}
