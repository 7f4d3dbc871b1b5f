package accounts

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"libcirc/lending"
)

// bcrypt's input limit; longer passwords would be silently truncated.
const maxPasswordLength = 72

// ErrPasswordTooLong occurs when a password exceeds the bcrypt input limit.
var ErrPasswordTooLong = fmt.Errorf("%w: password exceeds %d bytes", lending.ErrValidation, maxPasswordLength)

// HashPassword derives a bcrypt hash at the default cost.
func HashPassword(password string) (string, error) {
	if len(password) > maxPasswordLength {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Join(lending.ErrOperationFailed, err)
	}

	return string(hash), nil
}

// CheckPassword reports whether the password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
