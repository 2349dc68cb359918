package mocks

import (
	"errors"

	"github.com/phrazzld/tracker-api/internal/service/auth"
	"golang.org/x/crypto/bcrypt"
)

// MockPasswordHasher implements auth.PasswordHasher without bcrypt's cost.
// Hash prefixes the password with "hashed:"; Compare accepts exactly that.
type MockPasswordHasher struct {
	HashErr error
}

var _ auth.PasswordHasher = (*MockPasswordHasher)(nil)

// Hash implements auth.PasswordHasher.
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	if m.HashErr != nil {
		return "", m.HashErr
	}
	return "hashed:" + password, nil
}

// Compare implements auth.PasswordVerifier. A mismatch returns bcrypt's
// mismatch error so callers can classify it the same way.
func (m *MockPasswordHasher) Compare(hashedPassword, password string) error {
	if hashedPassword == "hashed:"+password {
		return nil
	}
	if len(hashedPassword) < len("hashed:") {
		return errors.New("malformed hash")
	}
	return bcrypt.ErrMismatchedHashAndPassword
}
